package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/agrodetect/internal/flagx"
	"github.com/dmitrijs2005/agrodetect/internal/timex"
)

// JsonConfig is the on-disk shape of the JSON config file. Durations use
// timex.Duration so both "30s" and integer nanoseconds are accepted.
// Fields left out of the file keep their current value.
type JsonConfig struct {
	EndpointAddrHTTP            string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC            string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                 string         `json:"database_dsn"`
	LogLevel                    string         `json:"log_level"`
	SecretKey                   string         `json:"secret_key"`
	JWTAlgorithm                string         `json:"jwt_algorithm"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
	InferenceURL                string         `json:"inference_url"`
	InferenceTimeout            timex.Duration `json:"inference_timeout"`
	MaxConcurrentInferences     int64          `json:"max_concurrent_inferences"`
	LabelsFile                  string         `json:"labels_file"`
	MaxUploadBytes              int64          `json:"max_upload_bytes"`
	RateLimitRPS                float64        `json:"rate_limit_rps"`
	RateLimitBurst              int            `json:"rate_limit_burst"`
	CORSOrigins                 []string       `json:"cors_origins"`
	TrustedProxies              []string       `json:"trusted_proxies"`
	S3RootUser                  string         `json:"s3_root_user"`
	S3RootPassword              string         `json:"s3_root_password"`
	S3Bucket                    string         `json:"s3_bucket"`
	S3Region                    string         `json:"s3_region"`
	S3BaseEndpoint              string         `json:"s3_base_endpoint"`
	RedisAddr                   string         `json:"redis_addr"`
	RedisPassword               string         `json:"redis_password"`
	RedisDB                     int            `json:"redis_db"`
	MetadataCacheTTL            timex.Duration `json:"metadata_cache_ttl"`
	NATSURL                     string         `json:"nats_url"`
	NATSSubject                 string         `json:"nats_subject"`
}

// parseJson overlays values from the JSON file named by -c/-config onto
// config. Nothing happens when no file is given. An unreadable file or
// invalid JSON panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigFileFlag()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setStr := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}

	setStr(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setStr(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setStr(&config.DatabaseDSN, c.DatabaseDSN)
	setStr(&config.LogLevel, c.LogLevel)
	setStr(&config.SecretKey, c.SecretKey)
	setStr(&config.JWTAlgorithm, c.JWTAlgorithm)
	setStr(&config.InferenceURL, c.InferenceURL)
	setStr(&config.LabelsFile, c.LabelsFile)
	setStr(&config.S3RootUser, c.S3RootUser)
	setStr(&config.S3RootPassword, c.S3RootPassword)
	setStr(&config.S3Bucket, c.S3Bucket)
	setStr(&config.S3Region, c.S3Region)
	setStr(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setStr(&config.RedisAddr, c.RedisAddr)
	setStr(&config.RedisPassword, c.RedisPassword)
	setStr(&config.NATSURL, c.NATSURL)
	setStr(&config.NATSSubject, c.NATSSubject)

	if c.AccessTokenValidityDuration.Duration > 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.InferenceTimeout.Duration > 0 {
		config.InferenceTimeout = c.InferenceTimeout.Duration
	}
	if c.MetadataCacheTTL.Duration > 0 {
		config.MetadataCacheTTL = c.MetadataCacheTTL.Duration
	}
	if c.MaxConcurrentInferences > 0 {
		config.MaxConcurrentInferences = c.MaxConcurrentInferences
	}
	if c.MaxUploadBytes > 0 {
		config.MaxUploadBytes = c.MaxUploadBytes
	}
	if c.RateLimitRPS > 0 {
		config.RateLimitRPS = c.RateLimitRPS
	}
	if c.RateLimitBurst > 0 {
		config.RateLimitBurst = c.RateLimitBurst
	}
	if c.RedisDB > 0 {
		config.RedisDB = c.RedisDB
	}
	if len(c.CORSOrigins) > 0 {
		config.CORSOrigins = c.CORSOrigins
	}
	if len(c.TrustedProxies) > 0 {
		config.TrustedProxies = c.TrustedProxies
	}
}
