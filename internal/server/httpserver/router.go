// Package httpserver exposes the REST API: account management, image
// prediction and a liveness endpoint.
package httpserver

import (
	"context"
	"slices"

	"github.com/dmitrijs2005/agrodetect/internal/common"
	"github.com/dmitrijs2005/agrodetect/internal/logging"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Options struct {
	CORSOrigins    []string
	MaxUploadBytes int64
	RateLimitRPS   float64
	RateLimitBurst int
	// TrustedProxies may set X-Forwarded-For; with none, the peer address
	// keys rate limiting and request logs.
	TrustedProxies []string
}

func NewRouter(accounts Accounts, predictor Predictor, o Options, logger logging.Logger) *gin.Engine {
	logger = logger.With("module", "http")

	h := &handler{
		accounts:  accounts,
		predictor: predictor,
		maxUpload: o.MaxUploadBytes,
		logger:    logger,
	}
	limiter := newIPLimiter(o.RateLimitRPS, o.RateLimitBurst)

	r := gin.New()
	if err := r.SetTrustedProxies(o.TrustedProxies); err != nil {
		logger.Warn(context.Background(), "invalid trusted proxies, trusting none", "error", err)
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(gin.Recovery(), requestLogger(logger), cors.New(corsConfig(o.CORSOrigins)))

	r.GET("/health", h.health)

	auth := r.Group("/auth", limiter.middleware())
	auth.POST("/register", h.register)
	auth.POST("/login", h.login)
	auth.DELETE("/delete", bearerAuth(accounts), h.deleteAccount)

	r.POST("/predict", limiter.middleware(), h.predict)

	return r
}

func corsConfig(origins []string) cors.Config {
	config := cors.DefaultConfig()
	if len(origins) == 0 || slices.Contains(origins, "*") {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = origins
	}
	config.AllowHeaders = append(config.AllowHeaders, common.AuthorizationHeaderName)
	config.ExposeHeaders = []string{requestIDHeader}
	return config
}
