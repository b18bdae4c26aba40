// Package server wires the agrodetect API together: storage backends, the
// detector, services, and the HTTP and gRPC servers, with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/agrodetect/internal/logging"
	"github.com/dmitrijs2005/agrodetect/internal/server/auth"
	"github.com/dmitrijs2005/agrodetect/internal/server/cache"
	"github.com/dmitrijs2005/agrodetect/internal/server/config"
	"github.com/dmitrijs2005/agrodetect/internal/server/detector"
	"github.com/dmitrijs2005/agrodetect/internal/server/events"
	"github.com/dmitrijs2005/agrodetect/internal/server/httpserver"
	"github.com/dmitrijs2005/agrodetect/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/agrodetect/internal/server/services"
	"github.com/dmitrijs2005/agrodetect/internal/server/storage"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/agrodetect/internal/server/grpc"
)

// healthProbeInterval is how often the gRPC health service re-checks the
// inference backend.
const healthProbeInterval = 30 * time.Second

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	httpServer *httpserver.HTTPServer
	grpcServer *gs.GRPCServer
	closers    []func()
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)
	app := &App{config: c, logger: logger}

	if err := app.init(ctx); err != nil {
		app.Close()
		return nil, err
	}

	return app, nil
}

func (app *App) init(ctx context.Context) error {
	c := app.config

	db, err := repomanager.OpenDB(ctx, c.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	app.db = db
	app.closers = append(app.closers, func() { _ = db.Close() })

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migrations error: %w", err)
	}

	tokens, err := newTokenIssuer(c)
	if err != nil {
		return err
	}

	metadataCache, err := app.openCache(ctx)
	if err != nil {
		return err
	}

	archive, err := app.openArchive(ctx)
	if err != nil {
		return err
	}

	publisher, err := app.openPublisher()
	if err != nil {
		return err
	}

	model := detector.NewHTTPModel(c.InferenceURL, nil)
	labels, err := detector.LoadLabels(ctx, model, c.LabelsFile, app.logger)
	if err != nil {
		return fmt.Errorf("labels init error: %w", err)
	}
	app.logger.Info(ctx, "detector labels loaded", "count", len(labels))

	det := detector.New(model, labels, c.MaxConcurrentInferences, c.InferenceTimeout, app.logger)

	userService := services.NewUserService(db, rm, tokens, app.logger)
	cropService := services.NewCropService(db, rm, metadataCache, app.logger)

	predictionService := services.NewPredictionService(det, cropService, archive, publisher, app.logger)

	gin.SetMode(gin.ReleaseMode)
	router := httpserver.NewRouter(userService, predictionService, httpserver.Options{
		CORSOrigins:    c.CORSOrigins,
		MaxUploadBytes: c.MaxUploadBytes,
		RateLimitRPS:   c.RateLimitRPS,
		RateLimitBurst: c.RateLimitBurst,
		TrustedProxies: c.TrustedProxies,
	}, app.logger)

	app.httpServer = httpserver.NewHTTPServer(c.EndpointAddrHTTP, router, app.logger)
	app.grpcServer = gs.NewGRPCServer(c.EndpointAddrGRPC, app.logger, model, healthProbeInterval)

	return nil
}

func (app *App) openCache(ctx context.Context) (cache.MetadataCache, error) {
	c := app.config
	if c.RedisAddr == "" {
		return cache.Nop{}, nil
	}

	client, err := cache.NewRedisClient(ctx, c.RedisAddr, c.RedisPassword, c.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("cache init error: %w", err)
	}
	app.closers = append(app.closers, func() { _ = client.Close() })

	app.logger.Info(ctx, "metadata cache enabled", "addr", c.RedisAddr)
	return cache.NewRedisCache(client, c.MetadataCacheTTL), nil
}

// openArchive returns nil when archiving is disabled.
func (app *App) openArchive(ctx context.Context) (storage.Archive, error) {
	c := app.config
	if c.S3Bucket == "" {
		return nil, nil
	}

	archive, err := storage.NewS3Archive(ctx, storage.Options{
		AccessKey: c.S3RootUser,
		SecretKey: c.S3RootPassword,
		Bucket:    c.S3Bucket,
		Region:    c.S3Region,
		Endpoint:  c.S3BaseEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("archive init error: %w", err)
	}

	app.logger.Info(ctx, "upload archive enabled", "bucket", c.S3Bucket)
	return archive, nil
}

func (app *App) openPublisher() (events.Publisher, error) {
	c := app.config
	if c.NATSURL == "" {
		return events.Nop{}, nil
	}

	pub, err := events.Connect(c.NATSURL, c.NATSSubject)
	if err != nil {
		return nil, fmt.Errorf("events init error: %w", err)
	}
	app.closers = append(app.closers, pub.Close)

	return pub, nil
}

// Close releases everything opened by NewApp, newest first.
func (app *App) Close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		app.closers[i]()
	}
	app.closers = nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves HTTP and gRPC until a signal arrives or either server fails,
// then shuts both down and closes backends.
func (app *App) Run(ctx context.Context) error {
	defer app.Close()

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.httpServer.Run(ctx)
	})
	g.Go(func() error {
		return app.grpcServer.Run(ctx)
	})

	err := g.Wait()
	if err != nil {
		app.logger.Error(ctx, "server stopped with error", "error", err)
	}

	app.logger.Info(ctx, "App stopped")
	return err
}

func newTokenIssuer(c *config.Config) (*auth.TokenIssuer, error) {
	tokens, err := auth.NewTokenIssuer([]byte(c.SecretKey), c.JWTAlgorithm, c.AccessTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("token issuer init error: %w", err)
	}
	return tokens, nil
}
