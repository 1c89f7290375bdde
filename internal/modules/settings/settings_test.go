package settings

import (
	"fmt"
	"testing"

	"github.com/pgdeck/pgdeck/internal/models"
	"github.com/stretchr/testify/require"
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
	require.NoError(t, db.AutoMigrate(&models.SettingModel{}))
	return NewService(db)
}

func TestSetGetRoundTrip(t *testing.T) {
	svc := newTestService(t)

	require.NoError(t, svc.Set("theme", "dark"))
	got, err := svc.Get("theme")
	require.NoError(t, err)
	require.Equal(t, "dark", got)
}

func TestSetUpsertsExistingKey(t *testing.T) {
	svc := newTestService(t)

	require.NoError(t, svc.Set("theme", "dark"))
	require.NoError(t, svc.Set("theme", "light"))

	got, err := svc.Get("theme")
	require.NoError(t, err)
	require.Equal(t, "light", got)

	all, err := svc.All()
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestGetMissingKey(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Get("nope")
	require.ErrorIs(t, err, errSettingNotFound)
}

func TestDeleteIsIdempotent(t *testing.T) {
	svc := newTestService(t)

	require.NoError(t, svc.Set("theme", "dark"))
	require.NoError(t, svc.Delete("theme"))
	require.NoError(t, svc.Delete("theme"))

	_, err := svc.Get("theme")
	require.ErrorIs(t, err, errSettingNotFound)
}

func TestAll(t *testing.T) {
	svc := newTestService(t)

	require.NoError(t, svc.Set("a", "1"))
	require.NoError(t, svc.Set("b", "2"))

	all, err := svc.All()
	require.NoError(t, err)
	require.Equal(t, map[string]string{"a": "1", "b": "2"}, all)
}
