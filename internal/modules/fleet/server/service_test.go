package server

import (
	"fmt"
	"testing"

	"github.com/pgdeck/pgdeck/internal/models"
	"github.com/pgdeck/pgdeck/internal/pkg/pagination"
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
	require.NoError(t, db.AutoMigrate(&models.ServerModel{}))
	return NewService(db)
}

func TestCreateAppliesDefaults(t *testing.T) {
	svc := newTestService(t)

	m, err := svc.Create(&CreateServerDTO{
		Name:     "primary",
		Host:     "db.internal",
		Username: "postgres",
	})
	require.NoError(t, err)
	require.NotEmpty(t, m.ID)
	require.Equal(t, 5432, m.Port)
	require.Equal(t, "postgres", m.Database)
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Create(&CreateServerDTO{Name: "primary", Host: "a", Username: "u"})
	require.NoError(t, err)

	_, err = svc.Create(&CreateServerDTO{Name: "primary", Host: "b", Username: "u"})
	require.ErrorIs(t, err, errDuplicateName)
}

func TestListFiltersByEnvironment(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Create(&CreateServerDTO{Name: "prod-1", Host: "a", Username: "u", Environment: "production"})
	require.NoError(t, err)
	_, err = svc.Create(&CreateServerDTO{Name: "stage-1", Host: "b", Username: "u", Environment: "staging"})
	require.NoError(t, err)

	items, pag, err := svc.List(pagination.Query{Page: 1, Size: 20}, "production")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "prod-1", items[0].Name)
	require.EqualValues(t, 1, pag.Total)

	items, _, err = svc.List(pagination.Query{Page: 1, Size: 20}, "")
	require.NoError(t, err)
	require.Len(t, items, 2)
}

func TestUpdatePartial(t *testing.T) {
	svc := newTestService(t)

	m, err := svc.Create(&CreateServerDTO{Name: "primary", Host: "a", Username: "u"})
	require.NoError(t, err)

	desc := "main cluster"
	port := 5433
	got, err := svc.Update(m.ID, &UpdateServerDTO{Description: &desc, Port: &port})
	require.NoError(t, err)
	require.Equal(t, "main cluster", got.Description)
	require.Equal(t, 5433, got.Port)
	require.Equal(t, "primary", got.Name)
}

func TestUpdateUnknownServer(t *testing.T) {
	svc := newTestService(t)
	name := "x"
	_, err := svc.Update("missing", &UpdateServerDTO{Name: &name})
	require.ErrorIs(t, err, errServerNotFound)
}

func TestDeleteIsIdempotent(t *testing.T) {
	svc := newTestService(t)

	m, err := svc.Create(&CreateServerDTO{Name: "primary", Host: "a", Username: "u"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(m.ID))
	require.NoError(t, svc.Delete(m.ID))

	_, err = svc.GetByID(m.ID)
	require.ErrorIs(t, err, errServerNotFound)
}
