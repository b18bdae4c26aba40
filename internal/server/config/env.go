package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv loads dotenvPath (if it exists) into the process environment and
// then overlays any recognised variables onto config. Variables already set
// in the environment win over the .env file.
func parseEnv(config *Config, dotenvPath string) error {
	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", dotenvPath, err)
		}
	}
	return applyEnv(config, os.LookupEnv)
}

func applyEnv(c *Config, lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}

	var errs []error
	num := func(name string, set func(string) error) {
		v, ok := lookup(name)
		if !ok || v == "" {
			return
		}
		if err := set(v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	str("HTTP_ADDR", &c.EndpointAddrHTTP)
	str("GRPC_ADDR", &c.EndpointAddrGRPC)
	str("DATABASE_URL", &c.DatabaseDSN)
	str("LOG_LEVEL", &c.LogLevel)
	str("SECRET_KEY", &c.SecretKey)
	str("JWT_ALGORITHM", &c.JWTAlgorithm)
	str("INFERENCE_URL", &c.InferenceURL)
	str("LABELS_FILE", &c.LabelsFile)
	str("S3_ACCESS_KEY", &c.S3RootUser)
	str("S3_SECRET_KEY", &c.S3RootPassword)
	str("S3_BUCKET", &c.S3Bucket)
	str("S3_REGION", &c.S3Region)
	str("S3_ENDPOINT", &c.S3BaseEndpoint)
	str("REDIS_ADDR", &c.RedisAddr)
	str("REDIS_PASSWORD", &c.RedisPassword)
	str("NATS_URL", &c.NATSURL)
	str("NATS_SUBJECT", &c.NATSSubject)

	if v, ok := lookup("CORS_ORIGINS"); ok && v != "" {
		c.CORSOrigins = splitList(v)
	}
	if v, ok := lookup("TRUSTED_PROXIES"); ok && v != "" {
		c.TrustedProxies = splitList(v)
	}

	num("ACCESS_TOKEN_EXPIRE_MINUTES", func(v string) error {
		m, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		c.AccessTokenValidityDuration = time.Duration(m) * time.Minute
		return nil
	})
	num("INFERENCE_TIMEOUT", func(v string) (err error) {
		c.InferenceTimeout, err = time.ParseDuration(v)
		return err
	})
	num("METADATA_CACHE_TTL", func(v string) (err error) {
		c.MetadataCacheTTL, err = time.ParseDuration(v)
		return err
	})
	num("MAX_CONCURRENT_INFERENCES", func(v string) (err error) {
		c.MaxConcurrentInferences, err = strconv.ParseInt(v, 10, 64)
		return err
	})
	num("MAX_UPLOAD_BYTES", func(v string) (err error) {
		c.MaxUploadBytes, err = strconv.ParseInt(v, 10, 64)
		return err
	})
	num("REDIS_DB", func(v string) (err error) {
		c.RedisDB, err = strconv.Atoi(v)
		return err
	})
	num("RATE_LIMIT_RPS", func(v string) (err error) {
		c.RateLimitRPS, err = strconv.ParseFloat(v, 64)
		return err
	})
	num("RATE_LIMIT_BURST", func(v string) (err error) {
		c.RateLimitBurst, err = strconv.Atoi(v)
		return err
	})

	return errors.Join(errs...)
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
