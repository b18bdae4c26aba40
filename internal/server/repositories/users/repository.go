// Package users persists user accounts.
package users

import (
	"context"

	"github.com/dmitrijs2005/agrodetect/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	DeleteByEmail(ctx context.Context, email string) error
}
