package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pgdeck/pgdeck/internal/models"
	"github.com/pgdeck/pgdeck/internal/pkg/jwt"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newAuthTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.UserModel{}, &models.RoleGrant{}))
	return db
}

func seedActiveUser(t *testing.T, db *gorm.DB) *models.UserModel {
	t.Helper()
	u := &models.UserModel{Email: "ada@example.com", Status: models.UserActive}
	require.NoError(t, db.Create(u).Error)
	return u
}

func TestNormalizeToken(t *testing.T) {
	require.Equal(t, "abc", NormalizeToken("abc"))
	require.Equal(t, "abc", NormalizeToken("Bearer abc"))
	require.Equal(t, "abc", NormalizeToken("bearer abc"))
	require.Equal(t, "abc", NormalizeToken("  Bearer  abc  "))
	require.Equal(t, "", NormalizeToken("   "))
}

func TestValidateAccessToken(t *testing.T) {
	db := newAuthTestDB(t)
	u := seedActiveUser(t, db)

	pair, err := jwt.IssuePair(u.ID, u.Email, false)
	require.NoError(t, err)

	claims, err := ValidateAccessToken(db, "Bearer "+pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, u.ID, claims.Subject)

	// refresh tokens are not bearer credentials
	_, err = ValidateAccessToken(db, pair.RefreshToken)
	require.Error(t, err)

	_, err = ValidateAccessToken(db, "")
	require.Error(t, err)
}

func TestValidateAccessTokenInactiveUser(t *testing.T) {
	db := newAuthTestDB(t)
	u := seedActiveUser(t, db)

	pair, err := jwt.IssuePair(u.ID, u.Email, false)
	require.NoError(t, err)

	require.NoError(t, db.Model(u).Update("status", models.UserSuspended).Error)

	_, err = ValidateAccessToken(db, pair.AccessToken)
	require.ErrorIs(t, err, errNotActive)
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newAuthTestDB(t)
	u := seedActiveUser(t, db)

	r := gin.New()
	r.GET("/protected", Auth(db), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": CurrentUserID(c)})
	})

	// no token
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// valid token
	pair, err := jwt.IssuePair(u.ID, u.Email, false)
	require.NoError(t, err)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), u.ID)
}
