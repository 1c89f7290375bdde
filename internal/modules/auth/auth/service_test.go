package auth

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pgdeck/pgdeck/internal/models"
	jwtpkg "github.com/pgdeck/pgdeck/internal/pkg/jwt"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T, opts ...ServiceOption) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.UserModel{}, &models.RoleGrant{}, &models.SessionModel{}))

	// low bcrypt cost keeps the suite fast
	opts = append([]ServiceOption{WithBcryptCost(4)}, opts...)
	return NewService(db, opts...)
}

func register(t *testing.T, svc *Service, email string) *TokenResponse {
	t.Helper()
	resp, err := svc.Register(&RegisterDTO{
		Email:     email,
		Password:  "correct-horse",
		FirstName: "Ada",
		LastName:  "Lovelace",
	}, "10.0.0.1", "test/1.0")
	require.NoError(t, err)
	return resp
}

func TestRegisterOpensSession(t *testing.T) {
	svc := newTestService(t)

	resp := register(t, svc, "ada@example.com")
	require.NotNil(t, resp.User)
	require.Equal(t, "ada@example.com", resp.User.Email)
	require.Equal(t, string(models.UserActive), resp.User.Status)
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)
	require.Equal(t, 900, resp.ExpiresIn)

	sessions, err := svc.ListSessions(resp.User.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newTestService(t)
	register(t, svc, "ada@example.com")

	_, err := svc.Register(&RegisterDTO{
		Email:    "Ada@Example.COM", // case-insensitive match
		Password: "another-pass",
	}, "", "")
	require.ErrorIs(t, err, errEmailTaken)
}

func TestRegisterDuplicateRaceMapsToEmailTaken(t *testing.T) {
	svc := newTestService(t)

	// A rival registration lands between the existence check and the insert.
	// The unique index rejects the insert; the caller must still see the
	// taken-email answer, not a raw database error.
	var once sync.Once
	err := svc.db.Callback().Create().Before("gorm:create").Register("rival_insert", func(tx *gorm.DB) {
		once.Do(func() {
			hash := "unused"
			rival := models.UserModel{
				Base:         models.Base{ID: "rival-1"},
				Email:        "ada@example.com",
				PasswordHash: &hash,
				Status:       models.UserActive,
			}
			require.NoError(t, tx.Session(&gorm.Session{NewDB: true}).Create(&rival).Error)
		})
	})
	require.NoError(t, err)

	_, rerr := svc.Register(&RegisterDTO{
		Email:    "ada@example.com",
		Password: "correct-horse",
	}, "", "")
	require.ErrorIs(t, rerr, errEmailTaken)
}

func TestLoginWrongPasswordIsGeneric(t *testing.T) {
	svc := newTestService(t)
	register(t, svc, "ada@example.com")

	_, err := svc.Login(&LoginDTO{Email: "ada@example.com", Password: "wrong"}, "", "")
	require.ErrorIs(t, err, errInvalidCredentials)

	// unknown email yields the identical error
	_, err2 := svc.Login(&LoginDTO{Email: "ghost@example.com", Password: "wrong"}, "", "")
	require.ErrorIs(t, err2, errInvalidCredentials)
	require.Equal(t, err.Error(), err2.Error())
}

func TestLoginRememberMeExtendsExpiry(t *testing.T) {
	svc := newTestService(t)
	register(t, svc, "ada@example.com")

	resp, err := svc.Login(&LoginDTO{
		Email:      "ada@example.com",
		Password:   "correct-horse",
		RememberMe: true,
	}, "", "")
	require.NoError(t, err)
	require.Equal(t, 86400, resp.ExpiresIn)

	resp, err = svc.Login(&LoginDTO{
		Email:    "ada@example.com",
		Password: "correct-horse",
	}, "", "")
	require.NoError(t, err)
	require.Equal(t, 900, resp.ExpiresIn)
}

func TestLockoutAfterRepeatedFailures(t *testing.T) {
	svc := newTestService(t, WithLockoutPolicy(5, 15*time.Minute))
	resp := register(t, svc, "ada@example.com")

	for i := 0; i < 5; i++ {
		_, err := svc.Login(&LoginDTO{Email: "ada@example.com", Password: "wrong"}, "", "")
		require.ErrorIs(t, err, errInvalidCredentials)
	}

	var u models.UserModel
	require.NoError(t, svc.db.First(&u, "id = ?", resp.User.ID).Error)
	require.Equal(t, models.UserLocked, u.Status)
	require.NotNil(t, u.LockedUntil)

	// even the correct password is rejected while locked
	_, err := svc.Login(&LoginDTO{Email: "ada@example.com", Password: "correct-horse"}, "", "")
	var locked lockedError
	require.ErrorAs(t, err, &locked)
	require.Contains(t, err.Error(), "account is locked")
}

func TestLockoutExpiryAllowsLoginAndResetsCounters(t *testing.T) {
	svc := newTestService(t, WithLockoutPolicy(5, 15*time.Minute))
	resp := register(t, svc, "ada@example.com")

	for i := 0; i < 5; i++ {
		_, _ = svc.Login(&LoginDTO{Email: "ada@example.com", Password: "wrong"}, "", "")
	}

	// simulate the lock window elapsing
	past := time.Now().Add(-time.Minute)
	require.NoError(t, svc.db.Model(&models.UserModel{}).
		Where("id = ?", resp.User.ID).
		Update("locked_until", past).Error)

	got, err := svc.Login(&LoginDTO{Email: "ada@example.com", Password: "correct-horse"}, "", "")
	require.NoError(t, err)
	require.Equal(t, string(models.UserActive), got.User.Status)

	var u models.UserModel
	require.NoError(t, svc.db.First(&u, "id = ?", resp.User.ID).Error)
	require.Equal(t, 0, u.FailedLoginAttempts)
	require.Nil(t, u.LockedUntil)
	require.NotNil(t, u.LastLoginAt)
}

func TestLockedErrorRoundsMinutesUp(t *testing.T) {
	require.Equal(t, "account is locked, try again in 15 minutes",
		lockedError{remaining: 14*time.Minute + 30*time.Second}.Error())
	require.Equal(t, "account is locked, try again in 1 minute",
		lockedError{remaining: 20 * time.Second}.Error())
}

func TestRefreshRotatesSessionInPlace(t *testing.T) {
	svc := newTestService(t)
	resp := register(t, svc, "ada@example.com")

	before, err := svc.ListSessions(resp.User.ID)
	require.NoError(t, err)
	require.Len(t, before, 1)

	got, err := svc.Refresh(resp.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, got.AccessToken)
	require.NotEqual(t, resp.RefreshToken, got.RefreshToken)
	require.Equal(t, 900, got.ExpiresIn)

	after, err := svc.ListSessions(resp.User.ID)
	require.NoError(t, err)
	require.Len(t, after, 1)
	require.Equal(t, before[0].ID, after[0].ID)

	// the superseded refresh token is dead
	_, err = svc.Refresh(resp.RefreshToken)
	require.ErrorIs(t, err, errInvalidRefresh)
}

func TestRefreshNeverExtendsExpiry(t *testing.T) {
	svc := newTestService(t)
	register(t, svc, "ada@example.com")

	resp, err := svc.Login(&LoginDTO{
		Email:      "ada@example.com",
		Password:   "correct-horse",
		RememberMe: true,
	}, "", "")
	require.NoError(t, err)
	require.Equal(t, 86400, resp.ExpiresIn)

	got, err := svc.Refresh(resp.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, 900, got.ExpiresIn)
}

func TestRefreshRejectsGarbageToken(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Refresh("garbage")
	require.ErrorIs(t, err, errInvalidRefresh)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	svc := newTestService(t)
	resp := register(t, svc, "ada@example.com")

	_, err := svc.Refresh(resp.AccessToken)
	require.ErrorIs(t, err, errInvalidRefresh)
}

func TestRefreshAfterLogoutAll(t *testing.T) {
	svc := newTestService(t)
	resp := register(t, svc, "ada@example.com")

	require.NoError(t, svc.LogoutAll(resp.User.ID))

	// signature is still valid, but the session row is gone
	_, err := jwtpkg.ParseRefresh(resp.RefreshToken)
	require.NoError(t, err)
	_, err = svc.Refresh(resp.RefreshToken)
	require.ErrorIs(t, err, errInvalidRefresh)
}

func TestRefreshRejectsInactiveUser(t *testing.T) {
	svc := newTestService(t)
	resp := register(t, svc, "ada@example.com")

	require.NoError(t, svc.db.Model(&models.UserModel{}).
		Where("id = ?", resp.User.ID).
		Update("status", models.UserSuspended).Error)

	_, err := svc.Refresh(resp.RefreshToken)
	require.ErrorIs(t, err, errInvalidRefresh)
}

func TestLogoutSingleSession(t *testing.T) {
	svc := newTestService(t)
	resp := register(t, svc, "ada@example.com")

	second, err := svc.Login(&LoginDTO{Email: "ada@example.com", Password: "correct-horse"}, "", "")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(resp.User.ID, resp.AccessToken))

	sessions, err := svc.ListSessions(resp.User.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	// the surviving session still refreshes
	_, err = svc.Refresh(second.RefreshToken)
	require.NoError(t, err)
	// the revoked one does not
	_, err = svc.Refresh(resp.RefreshToken)
	require.ErrorIs(t, err, errInvalidRefresh)
}

func TestRevokeSessionByID(t *testing.T) {
	svc := newTestService(t)
	resp := register(t, svc, "ada@example.com")

	sessions, err := svc.ListSessions(resp.User.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	require.NoError(t, svc.RevokeSession(resp.User.ID, sessions[0].ID))
	require.NoError(t, svc.RevokeSession(resp.User.ID, sessions[0].ID)) // idempotent

	remaining, err := svc.ListSessions(resp.User.ID)
	require.NoError(t, err)
	require.Empty(t, remaining)
}
