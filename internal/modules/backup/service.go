// Package backup runs pg_dump against registered servers, keeps the dumps in
// a local directory and optionally ships them to an S3 bucket.
package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/pgdeck/pgdeck/internal/config"
	"github.com/pgdeck/pgdeck/internal/models"
	"github.com/pgdeck/pgdeck/internal/pkg/pagination"
	"github.com/pgdeck/pgdeck/internal/pkg/response"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultS3PathTemplate = "backups/{Y}/{m}/{filename}"

var (
	errServerNotFound = errors.New("server not found")
	errBackupNotFound = errors.New("backup not found")
)

type Service struct {
	db       *gorm.DB
	dir      string
	s3       *s3Uploader // nil when uploads are disabled
	tpl      string
	log      *zap.Logger
	dumpPath string
}

func NewService(db *gorm.DB, cfg *config.AppConfig, log *zap.Logger) (*Service, error) {
	dir := cfg.Paths.Backups
	if dir == "" {
		dir = "./backups"
	}
	s := &Service{
		db:       db,
		dir:      dir,
		tpl:      cfg.S3.PathTemplate,
		log:      log,
		dumpPath: "pg_dump",
	}
	if cfg.S3.Enable {
		up, err := newS3Uploader(cfg.S3)
		if err != nil {
			return nil, err
		}
		s.s3 = up
	}
	return s, nil
}

// List returns backup records, newest first, optionally scoped to one server.
func (s *Service) List(serverID string, q pagination.Query) ([]models.BackupRecord, response.Pagination, error) {
	tx := s.db.Model(&models.BackupRecord{}).Order("created_at DESC")
	if serverID != "" {
		tx = tx.Where("server_id = ?", serverID)
	}
	var recs []models.BackupRecord
	meta, err := pagination.Paginate(tx, q, &recs)
	return recs, meta, err
}

func (s *Service) Get(id string) (*models.BackupRecord, error) {
	var rec models.BackupRecord
	if err := s.db.First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errBackupNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// Run dumps one server synchronously and records the outcome. The record is
// created in the running state first so concurrent listings can see it.
func (s *Service) Run(ctx context.Context, serverID string) (*models.BackupRecord, error) {
	var srv models.ServerModel
	if err := s.db.First(&srv, "id = ?", serverID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errServerNotFound
		}
		return nil, err
	}

	now := time.Now()
	rec := &models.BackupRecord{
		ServerID: srv.ID,
		Filename: fmt.Sprintf("%s-%s.dump", srv.Name, now.Format("2006-01-02T15-04-05")),
		Status:   models.BackupRunning,
	}
	if err := s.db.Create(rec).Error; err != nil {
		return nil, err
	}

	if err := s.execute(ctx, &srv, rec, now); err != nil {
		finished := time.Now()
		s.db.Model(rec).Updates(map[string]interface{}{
			"status":      models.BackupFailed,
			"error":       err.Error(),
			"finished_at": finished,
		})
		rec.Status = models.BackupFailed
		rec.Error = err.Error()
		rec.FinishedAt = &finished
		return rec, nil
	}
	return rec, nil
}

func (s *Service) execute(ctx context.Context, srv *models.ServerModel, rec *models.BackupRecord, now time.Time) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(s.dir, rec.Filename)

	// custom format keeps dumps compact and restorable with pg_restore
	cmd := exec.CommandContext(ctx, s.dumpPath,
		"--format=custom",
		"--no-password",
		"--host", srv.Host,
		"--port", fmt.Sprint(srv.Port),
		"--username", srv.Username,
		"--dbname", srv.Database,
		"--file", path,
	)
	cmd.Env = append(os.Environ(), "PGPASSWORD="+srv.Password)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		os.Remove(path)
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return fmt.Errorf("pg_dump: %s", msg)
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{
		"status":     models.BackupCompleted,
		"size_bytes": info.Size(),
	}

	if s.s3 != nil {
		key := renderObjectKey(s.tpl, rec.Filename, now)
		if err := s.s3.Upload(ctx, key, path); err != nil {
			s.log.Warn("backup upload failed, keeping local copy",
				zap.String("backup_id", rec.ID), zap.Error(err))
		} else {
			updates["s3_key"] = key
			rec.S3Key = key
		}
	}

	finished := time.Now()
	updates["finished_at"] = finished
	if err := s.db.Model(rec).Updates(updates).Error; err != nil {
		return err
	}
	rec.Status = models.BackupCompleted
	rec.SizeBytes = info.Size()
	rec.FinishedAt = &finished
	return nil
}

// LocalPath resolves a completed backup to its file on disk.
func (s *Service) LocalPath(id string) (string, *models.BackupRecord, error) {
	rec, err := s.Get(id)
	if err != nil {
		return "", nil, err
	}
	path := filepath.Join(s.dir, filepath.Base(rec.Filename))
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", nil, errBackupNotFound
		}
		return "", nil, err
	}
	return path, rec, nil
}

// Delete removes the record and the local dump. Objects already shipped to S3
// are left in place.
func (s *Service) Delete(id string) error {
	rec, err := s.Get(id)
	if err != nil {
		if errors.Is(err, errBackupNotFound) {
			return nil
		}
		return err
	}
	os.Remove(filepath.Join(s.dir, filepath.Base(rec.Filename)))
	return s.db.Delete(&models.BackupRecord{}, "id = ?", id).Error
}

// RunAll dumps every registered server in turn. Used by the nightly job.
func (s *Service) RunAll(ctx context.Context) error {
	var servers []models.ServerModel
	if err := s.db.Order("name ASC").Find(&servers).Error; err != nil {
		return err
	}
	for i := range servers {
		rec, err := s.Run(ctx, servers[i].ID)
		if err != nil {
			s.log.Error("backup run failed", zap.String("server", servers[i].Name), zap.Error(err))
			continue
		}
		if rec.Status == models.BackupFailed {
			s.log.Warn("backup finished with errors",
				zap.String("server", servers[i].Name), zap.String("error", rec.Error))
		}
	}
	return nil
}

func renderObjectKey(template, filename string, now time.Time) string {
	tpl := strings.TrimSpace(template)
	if tpl == "" {
		tpl = defaultS3PathTemplate
	}

	replacer := strings.NewReplacer(
		"{Y}", now.Format("2006"),
		"{m}", now.Format("01"),
		"{d}", now.Format("02"),
		"{filename}", filename,
	)

	key := replacer.Replace(tpl)
	key = strings.TrimPrefix(strings.ReplaceAll(key, "\\", "/"), "/")
	for strings.Contains(key, "//") {
		key = strings.ReplaceAll(key, "//", "/")
	}
	if key == "" {
		return filename
	}
	return key
}
