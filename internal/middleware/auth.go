package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pgdeck/pgdeck/internal/models"
	"github.com/pgdeck/pgdeck/internal/pkg/jwt"
	"github.com/pgdeck/pgdeck/internal/pkg/response"
	"gorm.io/gorm"
)

const (
	ContextKeyUserID = "user_id"
	ContextKeyEmail  = "user_email"
)

var errNotActive = errors.New("account is not active")

// Auth returns a middleware enforcing bearer access-token authentication.
// Any failure — missing token, bad signature, expired, wrong type, or a user
// that is no longer ACTIVE — yields the same 401.
func Auth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := ValidateAccessToken(db, extractBearer(c))
		if err != nil {
			response.Unauthorized(c)
			return
		}
		c.Set(ContextKeyUserID, claims.Subject)
		c.Set(ContextKeyEmail, claims.Email)
		c.Next()
	}
}

// ValidateAccessToken verifies the token signature and that the subject is
// still an ACTIVE user.
func ValidateAccessToken(db *gorm.DB, rawToken string) (*jwt.Claims, error) {
	token := NormalizeToken(rawToken)
	if token == "" {
		return nil, errors.New("token is required")
	}

	claims, err := jwt.ParseAccess(token)
	if err != nil {
		return nil, err
	}

	var user struct{ Status models.UserStatus }
	err = db.Model(&models.UserModel{}).
		Select("status").
		Where("id = ?", claims.Subject).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	if user.Status != models.UserActive {
		return nil, errNotActive
	}
	return claims, nil
}

// CurrentUserID extracts the authenticated user ID from context.
func CurrentUserID(c *gin.Context) string {
	v, _ := c.Get(ContextKeyUserID)
	id, _ := v.(string)
	return id
}

// IsAuthenticated reports whether the request carries a valid auth token.
func IsAuthenticated(c *gin.Context) bool {
	return CurrentUserID(c) != ""
}

func extractBearer(c *gin.Context) string {
	return NormalizeToken(c.GetHeader("Authorization"))
}

// NormalizeToken trims spaces and strips the optional Bearer prefix.
func NormalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if token == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}
