package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/agrodetect/internal/common"
	"github.com/dmitrijs2005/agrodetect/internal/dbx"
	"github.com/dmitrijs2005/agrodetect/internal/server/models"
	"github.com/dmitrijs2005/agrodetect/internal/server/repositories/crops"
	"github.com/dmitrijs2005/agrodetect/internal/server/repositories/users"
)

var errBoom = errors.New("boom")

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

// memUsers enforces email uniqueness like the real table.
type memUsers struct {
	mu     sync.Mutex
	byMail map[string]*models.User
	nextID int64

	createErr error
	getErr    error
	deleteErr error
}

func newMemUsers() *memUsers { return &memUsers{byMail: map[string]*models.User{}} }

func (r *memUsers) Create(ctx context.Context, u *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	if _, ok := r.byMail[u.Email]; ok {
		return nil, common.ErrDuplicateEmail
	}
	r.nextID++
	cp := *u
	cp.ID = r.nextID
	cp.CreatedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	r.byMail[u.Email] = &cp
	out := cp
	return &out, nil
}

func (r *memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	u, ok := r.byMail[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUsers) DeleteByEmail(ctx context.Context, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	delete(r.byMail, email)
	return nil
}

type memCrops struct {
	mu        sync.Mutex
	rows      map[string]models.CropMetadata
	finds     int
	findErr   error
	upsertErr error
}

func newMemCrops(rows ...models.CropMetadata) *memCrops {
	r := &memCrops{rows: map[string]models.CropMetadata{}}
	for _, m := range rows {
		r.rows[m.ClassName] = m
	}
	return r
}

func (r *memCrops) FindByClass(ctx context.Context, className string) (*models.CropMetadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finds++
	if r.findErr != nil {
		return nil, r.findErr
	}
	m, ok := r.rows[className]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &m, nil
}

func (r *memCrops) Upsert(ctx context.Context, m *models.CropMetadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.rows[m.ClassName] = *m
	return nil
}

type fakeRepoManager struct {
	u *memUsers
	c *memCrops
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository           { return m.u }
func (m *fakeRepoManager) Crops(db dbx.DBTX) crops.Repository           { return m.c }
