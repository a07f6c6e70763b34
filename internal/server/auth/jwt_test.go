package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/advn1/rback/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var alice = Identity{UserID: 7, Name: "alice123", Email: "a@x.com"}

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec([]byte("access-key"), []byte("refresh-key"))
	require.NoError(t, err)
	return c
}

func TestIssue_Lifetimes(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	f := NewClaimsFactory(0, 0)
	f.now = func() time.Time { return fixed }

	access := f.Issue(alice, Access)
	refresh := f.Issue(alice, Refresh)

	assert.Equal(t, Access, access.TokenType)
	assert.Equal(t, Refresh, refresh.TokenType)
	assert.False(t, access.Used)
	assert.False(t, refresh.Used)
	assert.Equal(t, fixed.Add(5*time.Minute), access.Expiry())
	assert.Equal(t, fixed.Add(7*24*time.Hour), refresh.Expiry())
	assert.Equal(t, alice, access.Identity())
	assert.NotEmpty(t, access.ID)
	assert.NotEqual(t, access.ID, refresh.ID, "jti must be unique per issuance")
}

func TestSignVerify_RoundTrip(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t)
	f := NewClaimsFactory(time.Minute, time.Hour)

	for _, kind := range []TokenType{Access, Refresh} {
		claims := f.Issue(alice, kind)
		tok, err := c.Sign(claims)
		require.NoError(t, err)

		got, err := c.Verify(tok, kind)
		require.NoError(t, err)
		assert.Equal(t, alice, got.Identity())
		assert.Equal(t, kind, got.TokenType)
		assert.Equal(t, claims.ID, got.ID)
	}
}

func TestVerify_KeySeparation(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t)
	f := NewClaimsFactory(time.Minute, time.Hour)

	access, err := c.Sign(f.Issue(alice, Access))
	require.NoError(t, err)
	refresh, err := c.Sign(f.Issue(alice, Refresh))
	require.NoError(t, err)

	_, err = c.Verify(access, Refresh)
	assert.ErrorIs(t, err, common.ErrInvalidSignature)

	_, err = c.Verify(refresh, Access)
	assert.ErrorIs(t, err, common.ErrInvalidSignature)

	_, err = c.VerifyIgnoringExpiry(refresh, Access)
	assert.ErrorIs(t, err, common.ErrInvalidSignature)
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t)
	f := NewClaimsFactory(time.Minute, time.Hour)
	f.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	for _, kind := range []TokenType{Access, Refresh} {
		tok, err := c.Sign(f.Issue(alice, kind))
		require.NoError(t, err)

		_, err = c.Verify(tok, kind)
		assert.ErrorIs(t, err, common.ErrTokenExpired)

		claims, err := c.VerifyIgnoringExpiry(tok, kind)
		require.NoError(t, err)
		assert.Equal(t, alice.UserID, claims.UserID)
	}
}

func TestVerify_CodecClock(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t)
	tok, err := c.Sign(NewClaimsFactory(time.Minute, time.Hour).Issue(alice, Access))
	require.NoError(t, err)

	c.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = c.Verify(tok, Access)
	assert.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t)

	for _, tok := range []string{"", "not.a.jwt", "abc", "a.b"} {
		_, err := c.Verify(tok, Access)
		assert.ErrorIs(t, err, common.ErrMalformedToken, "token %q", tok)
	}
}

func TestVerify_TamperedPayload(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t)
	tok, err := c.Sign(NewClaimsFactory(time.Minute, time.Hour).Issue(alice, Access))
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	require.Len(t, parts, 3)
	other, err := c.Sign(NewClaimsFactory(time.Minute, time.Hour).Issue(Identity{UserID: 1}, Access))
	require.NoError(t, err)
	forged := parts[0] + "." + strings.Split(other, ".")[1] + "." + parts[2]

	_, err = c.Verify(forged, Access)
	assert.ErrorIs(t, err, common.ErrInvalidSignature)
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t)
	claims := NewClaimsFactory(time.Minute, time.Hour).Issue(alice, Access)

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("access-key"))
	require.NoError(t, err)
	_, err = c.Verify(tok, Access)
	assert.ErrorIs(t, err, common.ErrInvalidSignature)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = c.Verify(none, Access)
	assert.Error(t, err)
}

func TestVerify_WrongTypeClaimUnderRightKey(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t)
	claims := NewClaimsFactory(time.Minute, time.Hour).Issue(alice, Refresh)

	// refresh-typed payload signed with the access key
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("access-key"))
	require.NoError(t, err)

	_, err = c.Verify(tok, Access)
	assert.ErrorIs(t, err, common.ErrInvalidSignature)
}

func TestNewCodec_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewCodec(nil, []byte("r"))
	assert.Error(t, err)
	_, err = NewCodec([]byte("a"), nil)
	assert.Error(t, err)
	_, err = NewCodec([]byte("same"), []byte("same"))
	assert.Error(t, err)
}

func TestSign_UnknownType(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t)
	_, err := c.Sign(TokenClaims{TokenType: "Other"})
	assert.Error(t, err)
}

func TestClaimsContext(t *testing.T) {
	t.Parallel()

	_, ok := ClaimsFromContext(context.Background())
	assert.False(t, ok)

	claims := NewClaimsFactory(0, 0).Issue(alice, Access)
	ctx := WithClaims(context.Background(), &claims)

	got, ok := ClaimsFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, alice, got.Identity())

	_, ok = ClaimsFromContext(WithClaims(context.Background(), nil))
	assert.False(t, ok)
}
