package server

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/agrodetect/internal/logging"
	"github.com/dmitrijs2005/agrodetect/internal/server/cache"
	"github.com/dmitrijs2005/agrodetect/internal/server/config"
	"github.com/dmitrijs2005/agrodetect/internal/server/models"
	"github.com/dmitrijs2005/agrodetect/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/agrodetect/internal/server/services"
)

// ReadCropsFile loads a JSON array of crop metadata records.
func ReadCropsFile(path string) ([]models.CropMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var records []models.CropMetadata
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return records, nil
}

// Seed migrates the database and upserts the records from path. Cached
// entries for the seeded classes are dropped when Redis is configured.
func Seed(ctx context.Context, c *config.Config, path string, logger logging.Logger) (int, error) {
	records, err := ReadCropsFile(path)
	if err != nil {
		return 0, err
	}

	db, err := repomanager.OpenDB(ctx, c.DatabaseDSN)
	if err != nil {
		return 0, fmt.Errorf("db init error: %w", err)
	}
	defer db.Close()

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return 0, fmt.Errorf("migrations error: %w", err)
	}

	var mc cache.MetadataCache = cache.Nop{}
	if c.RedisAddr != "" {
		client, err := cache.NewRedisClient(ctx, c.RedisAddr, c.RedisPassword, c.RedisDB)
		if err != nil {
			logger.Warn(ctx, "cache unavailable, stale entries expire by TTL", "error", err)
		} else {
			defer client.Close()
			mc = cache.NewRedisCache(client, c.MetadataCacheTTL)
		}
	}

	return services.NewCropService(db, rm, mc, logger).Seed(ctx, records)
}
