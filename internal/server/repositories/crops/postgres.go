package crops

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/agrodetect/internal/common"
	"github.com/dmitrijs2005/agrodetect/internal/dbx"
	"github.com/dmitrijs2005/agrodetect/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// FindByClass looks up the record by exact class name.
func (r *PostgresRepository) FindByClass(ctx context.Context, className string) (*models.CropMetadata, error) {
	query :=
		`SELECT class_name, crop_name, crop_description, disease_name, disease_description, care_description
		 FROM crop_descriptions
		 WHERE class_name = $1
		 `

	var (
		m                  models.CropMetadata
		diseaseName        sql.NullString
		diseaseDescription sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, className).Scan(
		&m.ClassName, &m.CropName, &m.CropDescription, &diseaseName, &diseaseDescription, &m.CareDescription)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	m.DiseaseName = nullable(diseaseName)
	m.DiseaseDescription = nullable(diseaseDescription)

	return &m, nil
}

// Upsert inserts record or replaces the row with the same class name.
func (r *PostgresRepository) Upsert(ctx context.Context, record *models.CropMetadata) error {
	query :=
		`INSERT INTO crop_descriptions
		   (class_name, crop_name, crop_description, disease_name, disease_description, care_description)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (class_name) DO UPDATE SET
		   crop_name = EXCLUDED.crop_name,
		   crop_description = EXCLUDED.crop_description,
		   disease_name = EXCLUDED.disease_name,
		   disease_description = EXCLUDED.disease_description,
		   care_description = EXCLUDED.care_description
		 `

	_, err := r.db.ExecContext(ctx, query,
		record.ClassName, record.CropName, record.CropDescription,
		toNull(record.DiseaseName), toNull(record.DiseaseDescription), record.CareDescription)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

func toNull(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
