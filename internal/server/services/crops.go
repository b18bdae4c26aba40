package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/agrodetect/internal/common"
	"github.com/dmitrijs2005/agrodetect/internal/dbx"
	"github.com/dmitrijs2005/agrodetect/internal/logging"
	"github.com/dmitrijs2005/agrodetect/internal/server/cache"
	"github.com/dmitrijs2005/agrodetect/internal/server/models"
	"github.com/dmitrijs2005/agrodetect/internal/server/repositories/repomanager"
)

// CropService resolves detector labels to reference metadata. Reads go
// through the cache; cache problems are logged and never returned.
type CropService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	cache       cache.MetadataCache
	logger      logging.Logger
}

func NewCropService(db *sql.DB, m repomanager.RepositoryManager, c cache.MetadataCache, logger logging.Logger) *CropService {
	if c == nil {
		c = cache.Nop{}
	}
	return &CropService{db: db, repomanager: m, cache: c, logger: logger.With("module", "crops")}
}

// FindByClass returns the record whose class name equals label exactly,
// or common.ErrorNotFound.
func (s *CropService) FindByClass(ctx context.Context, label string) (*models.CropMetadata, error) {
	m, ok, err := s.cache.Get(ctx, label)
	if err != nil {
		s.logger.Warn(ctx, "metadata cache read failed", "class", label, "error", err)
	} else if ok {
		return m, nil
	}

	m, err = s.repomanager.Crops(s.db).FindByClass(ctx, label)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	if err := s.cache.Set(ctx, m); err != nil {
		s.logger.Warn(ctx, "metadata cache write failed", "class", label, "error", err)
	}

	return m, nil
}

// Seed validates records and upserts them in one transaction. It returns the
// number of records written.
func (s *CropService) Seed(ctx context.Context, records []models.CropMetadata) (int, error) {
	for i := range records {
		if err := validateCrop(&records[i]); err != nil {
			return 0, fmt.Errorf("record %d: %w", i, err)
		}
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Crops(tx)
		for i := range records {
			if err := repo.Upsert(ctx, &records[i]); err != nil {
				return fmt.Errorf("upsert %s: %w", records[i].ClassName, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	classes := make([]string, len(records))
	for i := range records {
		classes[i] = records[i].ClassName
	}
	if err := s.cache.Delete(ctx, classes...); err != nil {
		s.logger.Warn(ctx, "metadata cache invalidation failed", "error", err)
	}

	s.logger.Info(ctx, "crop metadata seeded", "count", len(records))
	return len(records), nil
}

func validateCrop(m *models.CropMetadata) error {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"class_name", m.ClassName},
		{"crop_name", m.CropName},
		{"crop_description", m.CropDescription},
		{"care_description", m.CareDescription},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", common.ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}
