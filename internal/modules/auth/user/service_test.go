package user

import (
	"fmt"
	"testing"
	"time"

	"github.com/pgdeck/pgdeck/internal/models"
	sessionpkg "github.com/pgdeck/pgdeck/internal/pkg/session"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.UserModel{}, &models.RoleGrant{}, &models.SessionModel{}))

	svc := NewService(db)
	svc.bcryptCost = bcrypt.MinCost
	return svc
}

func seedUser(t *testing.T, svc *Service, password string) *models.UserModel {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	hashStr := string(hash)
	u := &models.UserModel{
		Email:        "ada@example.com",
		PasswordHash: &hashStr,
		FirstName:    "Ada",
		Status:       models.UserActive,
	}
	require.NoError(t, svc.db.Create(u).Error)
	return u
}

func TestGetProfileFiltersExpiredRoles(t *testing.T) {
	svc := newTestService(t)
	u := seedUser(t, svc, "pw")

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	require.NoError(t, svc.db.Create(&models.RoleGrant{UserID: u.ID, Role: "admin"}).Error)
	require.NoError(t, svc.db.Create(&models.RoleGrant{UserID: u.ID, Role: "oncall", ExpiresAt: &future}).Error)
	require.NoError(t, svc.db.Create(&models.RoleGrant{UserID: u.ID, Role: "stale", ExpiresAt: &past}).Error)

	got, err := svc.GetProfile(u.ID)
	require.NoError(t, err)
	require.Len(t, got.Roles, 2)
	for _, r := range got.Roles {
		require.NotEqual(t, "stale", r.Role)
	}
}

func TestGetProfileUnknownUser(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.GetProfile("missing")
	require.ErrorIs(t, err, errUserNotFound)
}

func TestUpdateProfilePartial(t *testing.T) {
	svc := newTestService(t)
	u := seedUser(t, svc, "pw")

	last := "  Lovelace "
	got, err := svc.UpdateProfile(u.ID, &UpdateProfileDTO{LastName: &last})
	require.NoError(t, err)
	require.Equal(t, "Ada", got.FirstName)
	require.Equal(t, "Lovelace", got.LastName)
}

func TestUpdateProfileUnknownUser(t *testing.T) {
	svc := newTestService(t)
	name := "x"
	_, err := svc.UpdateProfile("missing", &UpdateProfileDTO{FirstName: &name})
	require.ErrorIs(t, err, errUserNotFound)
}

func TestChangePassword(t *testing.T) {
	svc := newTestService(t)
	u := seedUser(t, svc, "old-password")

	err := svc.ChangePassword(u.ID, &ChangePasswordDTO{
		CurrentPassword: "wrong",
		NewPassword:     "new-password",
	})
	require.ErrorIs(t, err, errWrongPassword)

	err = svc.ChangePassword(u.ID, &ChangePasswordDTO{
		CurrentPassword: "old-password",
		NewPassword:     "new-password",
	})
	require.NoError(t, err)

	var fresh models.UserModel
	require.NoError(t, svc.db.First(&fresh, "id = ?", u.ID).Error)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(*fresh.PasswordHash), []byte("new-password")))
}

func TestChangePasswordKeepsSessionsAlive(t *testing.T) {
	svc := newTestService(t)
	u := seedUser(t, svc, "old-password")

	_, err := sessionpkg.Create(svc.db, u.ID, "acc", "ref", "", "")
	require.NoError(t, err)

	require.NoError(t, svc.ChangePassword(u.ID, &ChangePasswordDTO{
		CurrentPassword: "old-password",
		NewPassword:     "new-password",
	}))

	sessions, err := sessionpkg.ListActive(svc.db, u.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
}

func TestValidateUser(t *testing.T) {
	svc := newTestService(t)
	u := seedUser(t, svc, "pw")

	got, err := svc.ValidateUser(u.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	require.NoError(t, svc.db.Model(u).Update("status", models.UserSuspended).Error)
	got, err = svc.ValidateUser(u.ID)
	require.NoError(t, err)
	require.Nil(t, got)

	got, err = svc.ValidateUser("missing")
	require.NoError(t, err)
	require.Nil(t, got)
}
