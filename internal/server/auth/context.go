package auth

import "context"

type claimsContextKey struct{}

// WithClaims returns a child context carrying verified access-token claims.
func WithClaims(ctx context.Context, c *TokenClaims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, c)
}

// ClaimsFromContext returns the claims stored by WithClaims.
func ClaimsFromContext(ctx context.Context) (*TokenClaims, bool) {
	if ctx == nil {
		return nil, false
	}
	c, ok := ctx.Value(claimsContextKey{}).(*TokenClaims)
	return c, ok && c != nil
}
