// Package services contains server-side business logic. UserService handles
// registration, login, refresh-token rotation and logout.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/advn1/rback/internal/common"
	"github.com/advn1/rback/internal/logging"
	"github.com/advn1/rback/internal/server/auth"
	"github.com/advn1/rback/internal/server/hasher"
	"github.com/advn1/rback/internal/server/models"
	"github.com/advn1/rback/internal/server/repositories/repomanager"
)

// dummyPassword is hashed once at startup so logins for unknown emails spend
// the same argon2 work as logins with a wrong password.
const dummyPassword = "rback-timing-equalizer"

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// UserService provides authentication-related operations:
// - Register: validate input and create users
// - Login: verify credentials and mint a session
// - Refresh: rotate a refresh token into a new pair
// - Logout: revoke a refresh token
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *hasher.Argon2
	codec       *auth.Codec
	claims      *auth.ClaimsFactory
	logger      logging.Logger
	dummyHash   string
}

// NewUserService wires a UserService. db is used for identity lookups and for
// the transaction around rotation.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, h *hasher.Argon2, codec *auth.Codec,
	claims *auth.ClaimsFactory, l logging.Logger) (*UserService, error) {

	dummy, err := h.Hash(dummyPassword)
	if err != nil {
		return nil, err
	}

	return &UserService{
		db:          db,
		repomanager: m,
		hasher:      h,
		codec:       codec,
		claims:      claims,
		logger:      l.With("module", "user_service"),
		dummyHash:   dummy,
	}, nil
}

func storageError(err error) error {
	return fmt.Errorf("%w: %w", common.ErrStorage, err)
}

// Register validates the input, rejects a taken name or email and stores the
// user with an argon2id password hash.
func (s *UserService) Register(ctx context.Context, name, password, email string) (*models.User, error) {
	if verr := validateRegistration(name, password, email); verr != nil {
		return nil, verr
	}

	repo := s.repomanager.Users(s.db)

	exists, err := repo.ExistsByNameOrEmail(ctx, name, email)
	if err != nil {
		return nil, storageError(err)
	}
	if exists {
		return nil, common.ErrAlreadyExists
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user, err := repo.Create(ctx, &models.User{Name: name, Email: email, PasswordHash: hashed})
	if err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, err
		}
		return nil, storageError(err)
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

// Login verifies email and password and opens a new session. An unknown email
// and a wrong password both yield common.ErrorUnauthorized.
func (s *UserService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_, _ = s.hasher.Verify(s.dummyHash, password)
			return nil, common.ErrorUnauthorized
		}
		return nil, storageError(err)
	}

	ok, err := s.hasher.Verify(user.PasswordHash, password)
	if err != nil {
		s.logger.Error(ctx, "stored password hash is malformed", "user_id", user.ID)
		return nil, err
	}
	if !ok {
		return nil, common.ErrorUnauthorized
	}

	pair, row, err := s.newPair(auth.Identity{UserID: user.ID, Name: user.Name, Email: user.Email})
	if err != nil {
		return nil, err
	}

	if err := s.repomanager.RefreshTokens(s.db).Create(ctx, row); err != nil {
		return nil, storageError(err)
	}

	s.logger.Info(ctx, "user logged in", "user_id", user.ID)
	return pair, nil
}

// newPair issues and signs an access and a refresh token for id and returns
// the row to persist for the refresh token.
func (s *UserService) newPair(id auth.Identity) (*TokenPair, *models.RefreshToken, error) {
	accessClaims := s.claims.Issue(id, auth.Access)
	refreshClaims := s.claims.Issue(id, auth.Refresh)

	access, err := s.codec.Sign(accessClaims)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: signing access token: %w", common.ErrorInternal, err)
	}
	refresh, err := s.codec.Sign(refreshClaims)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: signing refresh token: %w", common.ErrorInternal, err)
	}

	hashed, err := s.hasher.Hash(refresh)
	if err != nil {
		return nil, nil, err
	}

	row := &models.RefreshToken{
		Token:   hashed,
		UserID:  id.UserID,
		Name:    id.Name,
		Email:   id.Email,
		Expires: refreshClaims.Expiry(),
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, row, nil
}

// matchToken returns the first row whose hash verifies presented, or nil.
// Rows with an unreadable hash are skipped.
func (s *UserService) matchToken(ctx context.Context, rows []models.RefreshToken, presented string) *models.RefreshToken {
	for i := range rows {
		ok, err := s.hasher.Verify(rows[i].Token, presented)
		if err != nil {
			s.logger.Warn(ctx, "skipping refresh token row with malformed hash", "row_id", rows[i].ID)
			continue
		}
		if ok {
			return &rows[i]
		}
	}
	return nil
}
