package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pgdeck/pgdeck/internal/config"
	"github.com/pgdeck/pgdeck/internal/models"
	"github.com/pgdeck/pgdeck/internal/pkg/pagination"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
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
	require.NoError(t, db.AutoMigrate(&models.ServerModel{}, &models.BackupRecord{}))

	cfg := &config.AppConfig{Paths: config.PathsConfig{Backups: t.TempDir()}}
	svc, err := NewService(db, cfg, zap.NewNop())
	require.NoError(t, err)
	return svc
}

func seedServer(t *testing.T, svc *Service) *models.ServerModel {
	t.Helper()
	srv := &models.ServerModel{
		Name:     "primary",
		Host:     "db.internal",
		Port:     5432,
		Database: "appdb",
		Username: "postgres",
	}
	require.NoError(t, svc.db.Create(srv).Error)
	return srv
}

// fakeDump writes a script standing in for pg_dump: it creates the file named
// by --file so the success path is exercised without a live server.
func fakeDump(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-pg-dump")
	script := `#!/bin/sh
out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "--file" ]; then out="$2"; fi
  shift
done
printf 'dump' > "$out"
`
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestRunSuccess(t *testing.T) {
	svc := newTestService(t)
	srv := seedServer(t, svc)
	svc.dumpPath = fakeDump(t)

	rec, err := svc.Run(context.Background(), srv.ID)
	require.NoError(t, err)
	require.Equal(t, models.BackupCompleted, rec.Status)
	require.EqualValues(t, 4, rec.SizeBytes)
	require.NotNil(t, rec.FinishedAt)
	require.Empty(t, rec.Error)

	path, got, err := svc.LocalPath(rec.ID)
	require.NoError(t, err)
	require.Equal(t, rec.ID, got.ID)
	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestRunDumpFailureIsRecorded(t *testing.T) {
	svc := newTestService(t)
	srv := seedServer(t, svc)
	svc.dumpPath = "/bin/false"

	rec, err := svc.Run(context.Background(), srv.ID)
	require.NoError(t, err)
	require.Equal(t, models.BackupFailed, rec.Status)
	require.NotEmpty(t, rec.Error)
	require.NotNil(t, rec.FinishedAt)
}

func TestRunUnknownServer(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Run(context.Background(), "missing")
	require.ErrorIs(t, err, errServerNotFound)
}

func TestListScopedToServer(t *testing.T) {
	svc := newTestService(t)
	srv := seedServer(t, svc)
	svc.dumpPath = fakeDump(t)

	_, err := svc.Run(context.Background(), srv.ID)
	require.NoError(t, err)

	recs, meta, err := svc.List(srv.ID, pagination.Query{Page: 1, Size: 20})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.EqualValues(t, 1, meta.Total)

	recs, _, err = svc.List("other-server", pagination.Query{Page: 1, Size: 20})
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestDeleteRemovesRecordAndFile(t *testing.T) {
	svc := newTestService(t)
	srv := seedServer(t, svc)
	svc.dumpPath = fakeDump(t)

	rec, err := svc.Run(context.Background(), srv.ID)
	require.NoError(t, err)
	path, _, err := svc.LocalPath(rec.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(rec.ID))
	require.NoError(t, svc.Delete(rec.ID)) // idempotent

	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
	_, err = svc.Get(rec.ID)
	require.ErrorIs(t, err, errBackupNotFound)
}

func TestRenderObjectKey(t *testing.T) {
	now := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)

	require.Equal(t, "backups/2026/03/x.dump", renderObjectKey("", "x.dump", now))
	require.Equal(t, "pg/2026-03-09/x.dump",
		renderObjectKey("pg/{Y}-{m}-{d}/{filename}", "x.dump", now))
	require.Equal(t, "a/b/x.dump", renderObjectKey("/a//b/{filename}", "x.dump", now))
	require.Equal(t, "x.dump", renderObjectKey("/", "x.dump", now))
}
