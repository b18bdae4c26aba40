package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/agrodetect/internal/dbx"
	"github.com/dmitrijs2005/agrodetect/internal/server/repositories/crops"
	"github.com/dmitrijs2005/agrodetect/internal/server/repositories/users"
)

// RepositoryManager hands out repositories bound to a DBTX, so the same
// service code runs against the pool or inside a dbx.WithTx transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Crops(db dbx.DBTX) crops.Repository
}
