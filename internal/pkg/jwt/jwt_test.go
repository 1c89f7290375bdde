package jwt

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestIssuePairAndParse(t *testing.T) {
	pair, err := IssuePair("user-1", "op@example.com", false)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.Equal(t, int(AccessTTL/time.Second), pair.ExpiresIn)

	claims, err := ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, "op@example.com", claims.Email)
	require.Equal(t, TypeAccess, claims.Type)

	rclaims, err := ParseRefresh(pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, TypeRefresh, rclaims.Type)
}

func TestIssuePairRememberMe(t *testing.T) {
	pair, err := IssuePair("user-1", "op@example.com", true)
	require.NoError(t, err)
	require.Equal(t, int(AccessTTLRemember/time.Second), pair.ExpiresIn)
}

func TestBackToBackIssuancesAreUnique(t *testing.T) {
	first, err := IssuePair("user-1", "op@example.com", false)
	require.NoError(t, err)
	second, err := IssuePair("user-1", "op@example.com", false)
	require.NoError(t, err)

	// Both signings almost certainly share an issuance second; the jti must
	// still keep the tokens distinct or sessions keyed on them collide.
	require.NotEqual(t, first.AccessToken, second.AccessToken)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)

	claims, err := ParseAccess(first.AccessToken)
	require.NoError(t, err)
	require.NotEmpty(t, claims.ID)
}

func TestTokensAreNotInterchangeable(t *testing.T) {
	pair, err := IssuePair("user-1", "op@example.com", false)
	require.NoError(t, err)

	_, err = ParseAccess(pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseRefresh(pair.AccessToken)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsTamperedToken(t *testing.T) {
	pair, err := IssuePair("user-1", "op@example.com", false)
	require.NoError(t, err)

	_, err = ParseAccess(pair.AccessToken + "x")
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseAccess("not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	tok, err := sign("user-1", "op@example.com", TypeAccess, -time.Minute, accessSecret)
	require.NoError(t, err)

	_, err = ParseAccess(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsEmptySubject(t *testing.T) {
	tok, err := sign("", "op@example.com", TypeAccess, time.Minute, accessSecret)
	require.NoError(t, err)

	_, err = ParseAccess(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsWrongAlgorithm(t *testing.T) {
	claims := Claims{
		Email: "op@example.com",
		Type:  TypeAccess,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	tok, err := jwtlib.NewWithClaims(jwtlib.SigningMethodNone, claims).
		SignedString(jwtlib.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseAccess(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}
