package auth

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/advn1/rback/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Codec signs and verifies tokens. Access and refresh tokens use distinct
// HMAC keys, so a token of one type never verifies as the other.
type Codec struct {
	accessKey  []byte
	refreshKey []byte
	now        func() time.Time
}

// NewCodec returns a Codec. Both keys are required and must differ.
func NewCodec(accessKey, refreshKey []byte) (*Codec, error) {
	if len(accessKey) == 0 || len(refreshKey) == 0 {
		return nil, errors.New("access and refresh signing keys are required")
	}
	if bytes.Equal(accessKey, refreshKey) {
		return nil, errors.New("access and refresh signing keys must differ")
	}
	return &Codec{
		accessKey:  bytes.Clone(accessKey),
		refreshKey: bytes.Clone(refreshKey),
		now:        time.Now,
	}, nil
}

func (c *Codec) keyFor(kind TokenType) ([]byte, error) {
	switch kind {
	case Access:
		return c.accessKey, nil
	case Refresh:
		return c.refreshKey, nil
	default:
		return nil, fmt.Errorf("unknown token type %q", kind)
	}
}

// Sign serializes claims into an HS256 JWT using the key for claims.TokenType.
func (c *Codec) Sign(claims TokenClaims) (string, error) {
	key, err := c.keyFor(claims.TokenType)
	if err != nil {
		return "", err
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// Verify checks the signature and expiry of tokenString against the key for
// kind and returns its claims.
func (c *Codec) Verify(tokenString string, kind TokenType) (*TokenClaims, error) {
	return c.parse(tokenString, kind, jwt.WithExpirationRequired(), jwt.WithTimeFunc(c.now))
}

// VerifyIgnoringExpiry checks only the signature. It lets an expired refresh
// token still be revoked.
func (c *Codec) VerifyIgnoringExpiry(tokenString string, kind TokenType) (*TokenClaims, error) {
	return c.parse(tokenString, kind, jwt.WithoutClaimsValidation())
}

func (c *Codec) parse(tokenString string, kind TokenType, opts ...jwt.ParserOption) (*TokenClaims, error) {
	key, err := c.keyFor(kind)
	if err != nil {
		return nil, err
	}

	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return key, nil
	}, opts...)
	if err != nil {
		return nil, mapJWTError(err)
	}

	if !token.Valid {
		return nil, common.ErrInvalidSignature
	}

	if claims.TokenType != kind {
		return nil, common.ErrInvalidSignature
	}

	return claims, nil
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return common.ErrMalformedToken
	case errors.Is(err, jwt.ErrTokenExpired):
		return common.ErrTokenExpired
	default:
		// signature mismatch, disallowed alg, unverifiable or otherwise invalid claims
		return common.ErrInvalidSignature
	}
}
