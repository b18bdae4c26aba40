// Package crops reads and seeds the crop/disease reference table.
package crops

import (
	"context"

	"github.com/dmitrijs2005/agrodetect/internal/server/models"
)

type Repository interface {
	FindByClass(ctx context.Context, className string) (*models.CropMetadata, error)
	Upsert(ctx context.Context, record *models.CropMetadata) error
}
