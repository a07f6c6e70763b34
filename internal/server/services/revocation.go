package services

import (
	"context"
	"strings"

	"github.com/advn1/rback/internal/common"
	"github.com/advn1/rback/internal/server/auth"
)

// Logout revokes a refresh token. The owner is read from the token itself,
// checked against the refresh key with expiry ignored so expired tokens can
// still be revoked. An unverifiable or unknown token is a no-op.
func (s *UserService) Logout(ctx context.Context, presented string) error {
	presented = strings.TrimSpace(presented)
	if presented == "" {
		return common.ErrInvalidInput
	}

	claims, err := s.codec.VerifyIgnoringExpiry(presented, auth.Refresh)
	if err != nil {
		s.logger.Info(ctx, "logout with unverifiable token ignored")
		return nil
	}

	repo := s.repomanager.RefreshTokens(s.db)

	rows, err := repo.ListByUser(ctx, claims.UserID)
	if err != nil {
		return storageError(err)
	}

	matched := s.matchToken(ctx, rows, presented)
	if matched == nil {
		return nil
	}

	n, err := repo.Delete(ctx, claims.UserID, matched.Token)
	if err != nil {
		return storageError(err)
	}

	s.logger.Info(ctx, "refresh token revoked", "user_id", claims.UserID, "deleted", n)
	return nil
}
