// Package auth builds, signs and verifies the JWTs issued by the server and
// carries verified claims through a request context.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType distinguishes access tokens from refresh tokens. Each type is
// signed with its own key.
type TokenType string

const (
	Access  TokenType = "Access"
	Refresh TokenType = "Refresh"
)

const (
	DefaultAccessTokenValidity  = 5 * time.Minute
	DefaultRefreshTokenValidity = 7 * 24 * time.Hour
)

// Identity is the subset of a user record embedded into every token.
type Identity struct {
	UserID int64
	Name   string
	Email  string
}

// TokenClaims is the payload of both token types. Expiry is carried in
// RegisteredClaims.ExpiresAt ("exp") and the unique issuance id in
// RegisteredClaims.ID ("jti").
//
// Used is advisory only; the session store owns the authoritative state.
type TokenClaims struct {
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	TokenType TokenType `json:"token_type"`
	Used      bool      `json:"used"`
	jwt.RegisteredClaims
}

// Identity returns the identity the claims were issued for.
func (c TokenClaims) Identity() Identity {
	return Identity{UserID: c.UserID, Name: c.Name, Email: c.Email}
}

// Expiry returns the absolute expiry time, or the zero time if unset.
func (c TokenClaims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// ClaimsFactory builds fresh claim sets. It has no side effects.
type ClaimsFactory struct {
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewClaimsFactory returns a factory issuing tokens with the given lifetimes.
// Non-positive durations fall back to the defaults.
func NewClaimsFactory(accessTTL, refreshTTL time.Duration) *ClaimsFactory {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenValidity
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenValidity
	}
	return &ClaimsFactory{accessTTL: accessTTL, refreshTTL: refreshTTL, now: time.Now}
}

// Issue builds a new claim set of the given kind for id.
func (f *ClaimsFactory) Issue(id Identity, kind TokenType) TokenClaims {
	now := f.now()

	ttl := f.accessTTL
	if kind == Refresh {
		ttl = f.refreshTTL
	}

	return TokenClaims{
		UserID:    id.UserID,
		Name:      id.Name,
		Email:     id.Email,
		TokenType: kind,
		Used:      false,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
}
