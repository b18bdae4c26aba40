package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/dmitrijs2005/agrodetect/internal/common"
	"github.com/dmitrijs2005/agrodetect/internal/logging"
	"github.com/dmitrijs2005/agrodetect/internal/server/auth"
	"github.com/dmitrijs2005/agrodetect/internal/server/models"
	"github.com/dmitrijs2005/agrodetect/internal/server/repositories/repomanager"
)

type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      *auth.TokenIssuer
	logger      logging.Logger

	dummyOnce sync.Once
	dummyHash string
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, tokens *auth.TokenIssuer, logger logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		tokens:      tokens,
		logger:      logger.With("module", "users"),
	}
}

// Register creates an account and returns a token for it.
// A taken email yields common.ErrDuplicateEmail, bad input common.ErrValidation.
func (s *UserService) Register(ctx context.Context, fullName, email, password string) (*models.AuthResult, error) {
	if err := validateRegistration(fullName, email, password); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrValidation, err)
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.Create(ctx, &models.User{FullName: fullName, Email: email, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, common.ErrDuplicateEmail) {
			return nil, err
		}
		s.logger.Error(ctx, "create user failed", "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID)

	return s.authResult(user)
}

// Login checks credentials. Unknown email and wrong password are
// indistinguishable: both yield common.ErrInvalidCredentials.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.AuthResult, error) {

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// burn the same bcrypt time as a real comparison
			auth.VerifyPassword(password, s.dummy())
			return nil, common.ErrInvalidCredentials
		}
		s.logger.Error(ctx, "get user failed", "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	if !auth.VerifyPassword(password, user.PasswordHash) {
		return nil, common.ErrInvalidCredentials
	}

	return s.authResult(user)
}

// Delete removes the account of an authenticated user.
func (s *UserService) Delete(ctx context.Context, user *models.User) error {
	if err := s.repomanager.Users(s.db).DeleteByEmail(ctx, user.Email); err != nil {
		s.logger.Error(ctx, "delete user failed", "error", err)
		return fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	s.logger.Info(ctx, "user deleted", "user_id", user.ID)
	return nil
}

// Authenticate resolves a bearer token to its user. Every failure matches
// common.ErrorUnauthorized; an expired token also matches common.ErrTokenExpired.
func (s *UserService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	email, err := s.tokens.Parse(token)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", common.ErrorUnauthorized, common.ErrTokenExpired)
		}
		return nil, common.ErrorUnauthorized
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	return user, nil
}

func (s *UserService) authResult(user *models.User) (*models.AuthResult, error) {
	token, err := s.tokens.Issue(user.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return &models.AuthResult{
		AccessToken: token,
		TokenType:   common.TokenType,
		User:        user.Public(),
	}, nil
}

func (s *UserService) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = auth.HashPassword("agrodetect-dummy-password")
	})
	return s.dummyHash
}

// maxFieldLen matches the VARCHAR(100) columns of the users table.
const maxFieldLen = 100

func validateRegistration(fullName, email, password string) error {
	var problems []string

	switch {
	case strings.TrimSpace(fullName) == "":
		problems = append(problems, "full_name is required")
	case utf8.RuneCountInString(fullName) > maxFieldLen:
		problems = append(problems, fmt.Sprintf("full_name must be at most %d characters", maxFieldLen))
	}
	switch addr, err := mail.ParseAddress(email); {
	case err != nil || addr.Address != email:
		problems = append(problems, "email is invalid")
	case utf8.RuneCountInString(email) > maxFieldLen:
		problems = append(problems, fmt.Sprintf("email must be at most %d characters", maxFieldLen))
	}
	switch {
	case password == "":
		problems = append(problems, "password is required")
	case len(password) > 72:
		problems = append(problems, "password must be at most 72 bytes")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", common.ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}
