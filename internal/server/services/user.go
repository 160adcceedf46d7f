// Package services contains server-side business logic. This file implements
// UserService, which handles registration, login and password changes.
package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/contactbook/internal/common"
	"github.com/dmitrijs2005/contactbook/internal/cryptox"
	"github.com/dmitrijs2005/contactbook/internal/dbx"
	"github.com/dmitrijs2005/contactbook/internal/logging"
	"github.com/dmitrijs2005/contactbook/internal/server/models"
	"github.com/dmitrijs2005/contactbook/internal/server/repositories/repomanager"
)

const (
	MinUsernameLen = 3
	MaxUsernameLen = 80
	MinPasswordLen = 6
	maxEmailLen    = 120
)

// UserService provides authentication-related operations:
// - Register: create users
// - Login: verify credentials and return the caller's identity
// - ChangePassword: replace the stored hash after checking the old password
type UserService struct {
	pool        *dbx.Pool
	repomanager repomanager.RepositoryManager
	hasher      *cryptox.PasswordHasher
	log         logging.Logger
	now         Clock
}

// NewUserService constructs a UserService on top of pool.
func NewUserService(pool *dbx.Pool, m repomanager.RepositoryManager, hasher *cryptox.PasswordHasher, log logging.Logger) *UserService {
	return &UserService{
		pool:        pool,
		repomanager: m,
		hasher:      hasher,
		log:         log,
		now:         time.Now,
	}
}

// Register creates a new user. Input is validated before storage is touched;
// a taken username yields common.ErrDuplicateUsername.
func (s *UserService) Register(ctx context.Context, username, password string, email *string) (*models.Identity, error) {
	email = normalizeOptional(email)

	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	if email != nil && utf8.RuneCountInString(*email) > maxEmailLen {
		return nil, common.NewValidationError("email must not exceed %d characters", maxEmailLen)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, translate(ctx, s.log, "register", err)
	}

	user := &models.User{
		UserName:     username,
		PasswordHash: hash,
		Email:        email,
		CreatedAt:    s.now(),
	}

	err = s.pool.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var createErr error
		user, createErr = s.repomanager.Users(tx).Create(ctx, user)
		return createErr
	})
	if err != nil {
		return nil, translate(ctx, s.log, "register", err)
	}

	s.log.Info(ctx, "user registered", "user_id", user.ID)
	return user.Identity(), nil
}

// Login checks username and password. Unknown users and wrong passwords are
// indistinguishable: both return common.ErrInvalidCredentials after one
// bcrypt comparison.
func (s *UserService) Login(ctx context.Context, username, password string) (*models.Identity, error) {
	if username == "" || password == "" {
		return nil, common.ErrInvalidCredentials
	}

	var user *models.User
	err := s.pool.WithConn(ctx, func(ctx context.Context, db dbx.DBTX) error {
		var getErr error
		user, getErr = s.repomanager.Users(db).GetUserByLogin(ctx, username)
		return getErr
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.DummyVerify(password)
			return nil, common.ErrInvalidCredentials
		}
		return nil, translate(ctx, s.log, "login", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, common.ErrInvalidCredentials
	}

	at := s.now()
	err = s.pool.WithConn(ctx, func(ctx context.Context, db dbx.DBTX) error {
		return s.repomanager.Users(db).TouchLastLogin(ctx, user.ID, at)
	})
	if err != nil {
		s.log.Warn(ctx, "failed to record last login", "user_id", user.ID, "error", err)
	}

	return user.Identity(), nil
}

// ChangePassword replaces the password of identity. The old password must
// match; on mismatch nothing changes and common.ErrInvalidCredentials is
// returned. The new password is validated only after the old one matched.
func (s *UserService) ChangePassword(ctx context.Context, identity *models.Identity, oldPassword, newPassword string) error {
	if identity == nil {
		return common.ErrorUnauthorized
	}

	err := s.pool.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		user, err := repo.GetUserByID(ctx, identity.ID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorUnauthorized
			}
			return err
		}
		if !s.hasher.Verify(oldPassword, user.PasswordHash) {
			return common.ErrInvalidCredentials
		}
		if err := validatePassword(newPassword); err != nil {
			return err
		}

		newHash, err := s.hasher.Hash(newPassword)
		if err != nil {
			return err
		}
		return repo.UpdatePasswordHash(ctx, user.ID, newHash)
	})
	if err != nil {
		return translate(ctx, s.log, "change password", err)
	}

	s.log.Info(ctx, "password changed", "user_id", identity.ID)
	return nil
}

// Identity re-reads user id and returns its identity, or
// common.ErrorUnauthorized when the user no longer exists.
func (s *UserService) Identity(ctx context.Context, id int64) (*models.Identity, error) {
	var user *models.User
	err := s.pool.WithConn(ctx, func(ctx context.Context, db dbx.DBTX) error {
		var getErr error
		user, getErr = s.repomanager.Users(db).GetUserByID(ctx, id)
		return getErr
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, translate(ctx, s.log, "identity", err)
	}
	return user.Identity(), nil
}

func validateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	switch {
	case strings.TrimSpace(username) == "":
		return common.NewValidationError("username is required")
	case strings.TrimSpace(username) != username:
		return common.NewValidationError("username must not start or end with whitespace")
	case n < MinUsernameLen:
		return common.NewValidationError("username must have at least %d characters", MinUsernameLen)
	case n > MaxUsernameLen:
		return common.NewValidationError("username must not exceed %d characters", MaxUsernameLen)
	}
	return nil
}

func validatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	switch {
	case n == 0:
		return common.NewValidationError("password is required")
	case n < MinPasswordLen:
		return common.NewValidationError("password must have at least %d characters", MinPasswordLen)
	case len(password) > cryptox.MaxPasswordBytes:
		return common.NewValidationError("password must not exceed %d bytes", cryptox.MaxPasswordBytes)
	}
	return nil
}

// normalizeOptional trims s and maps blank values to nil.
func normalizeOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
