package services

import (
	"context"
	"errors"
	"strings"

	"github.com/advn1/rback/internal/common"
	"github.com/advn1/rback/internal/dbx"
	"github.com/advn1/rback/internal/server/auth"
)

// IdentifyRefresh verifies a presented refresh token (signature and expiry,
// refresh key) and returns its owner. Transports call it to learn the caller
// before Refresh.
func (s *UserService) IdentifyRefresh(presented string) (auth.Identity, error) {
	presented = strings.TrimSpace(presented)
	if presented == "" {
		return auth.Identity{}, common.ErrInvalidInput
	}
	claims, err := s.codec.Verify(presented, auth.Refresh)
	if err != nil {
		return auth.Identity{}, common.ErrInvalidOrExpiredToken
	}
	return claims.Identity(), nil
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// matched against caller's unused rows; the matched row is consumed and the
// new row stored in one transaction, so a token rotates at most once.
func (s *UserService) Refresh(ctx context.Context, presented string, caller auth.Identity) (*TokenPair, error) {
	presented = strings.TrimSpace(presented)
	if presented == "" {
		return nil, common.ErrInvalidInput
	}

	rows, err := s.repomanager.RefreshTokens(s.db).ListUnused(ctx, caller.UserID)
	if err != nil {
		return nil, storageError(err)
	}

	matched := s.matchToken(ctx, rows, presented)
	if matched == nil {
		s.logger.Info(ctx, "refresh token not recognized", "user_id", caller.UserID)
		return nil, common.ErrInvalidOrExpiredToken
	}

	pair, next, err := s.newPair(auth.Identity{UserID: matched.UserID, Name: matched.Name, Email: matched.Email})
	if err != nil {
		return nil, err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.RefreshTokens(tx).Rotate(ctx, matched.Token, next)
	})
	if err != nil {
		if errors.Is(err, common.ErrInvalidOrExpiredToken) {
			s.logger.Warn(ctx, "refresh token already consumed", "user_id", caller.UserID)
			return nil, err
		}
		return nil, storageError(err)
	}

	s.logger.Info(ctx, "refresh token rotated", "user_id", caller.UserID)
	return pair, nil
}
