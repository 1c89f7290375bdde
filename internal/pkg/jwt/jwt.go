package jwt

import (
	"errors"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token lifetimes. Remember-me extends both; refresh always re-issues with the
// default pair regardless of the original login's remember-me choice.
const (
	AccessTTL          = 15 * time.Minute
	AccessTTLRemember  = 24 * time.Hour
	RefreshTTL         = 7 * 24 * time.Hour
	RefreshTTLRemember = 30 * 24 * time.Hour
)

// TokenType tags a claim set as access or refresh so one can never be
// replayed as the other.
type TokenType string

const (
	TypeAccess  TokenType = "access"
	TypeRefresh TokenType = "refresh"
)

var (
	accessSecret  = []byte("pgdeck-access-secret-change-me")
	refreshSecret = []byte("pgdeck-refresh-secret-change-me")
)

// ErrInvalidToken is the single error surfaced for any verification failure:
// bad signature, expired, malformed, or wrong type.
var ErrInvalidToken = errors.New("invalid token")

// Configure sets the signing secrets (call on startup). Access and refresh
// secrets are independent so neither can forge the other's tokens.
func Configure(access, refresh string) {
	if access != "" {
		accessSecret = []byte(access)
	}
	if refresh != "" {
		refreshSecret = []byte(refresh)
	}
}

// Claims is the signed token payload.
type Claims struct {
	Email string    `json:"email"`
	Type  TokenType `json:"type"`
	jwtlib.RegisteredClaims
}

// Pair bundles a freshly issued access/refresh token pair. ExpiresIn is the
// access-token lifetime in seconds, advisory for clients scheduling refresh.
type Pair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}

// IssuePair signs a new access/refresh pair for the user. Signing failures
// indicate misconfiguration, not user error.
func IssuePair(userID, email string, rememberMe bool) (Pair, error) {
	accessTTL, refreshTTL := AccessTTL, RefreshTTL
	if rememberMe {
		accessTTL, refreshTTL = AccessTTLRemember, RefreshTTLRemember
	}

	access, err := sign(userID, email, TypeAccess, accessTTL, accessSecret)
	if err != nil {
		return Pair{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := sign(userID, email, TypeRefresh, refreshTTL, refreshSecret)
	if err != nil {
		return Pair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(accessTTL / time.Second),
	}, nil
}

// ParseAccess validates an access token and returns its claims.
func ParseAccess(tokenStr string) (*Claims, error) {
	return parse(tokenStr, TypeAccess, accessSecret)
}

// ParseRefresh validates a refresh token and returns its claims.
func ParseRefresh(tokenStr string) (*Claims, error) {
	return parse(tokenStr, TypeRefresh, refreshSecret)
}

func sign(userID, email string, typ TokenType, ttl time.Duration, secret []byte) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		Type:  typ,
		RegisteredClaims: jwtlib.RegisteredClaims{
			// The jti makes every issued token unique even when two signings
			// for the same user land in the same second. Session rows key on
			// the token string, so uniqueness here is what keeps revocation
			// and rotation scoped to a single session.
			ID:        uuid.NewString(),
			Subject:   userID,
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwtlib.NewNumericDate(now),
		},
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func parse(tokenStr string, want TokenType, secret []byte) (*Claims, error) {
	token, err := jwtlib.ParseWithClaims(tokenStr, &Claims{}, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Type != want || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
