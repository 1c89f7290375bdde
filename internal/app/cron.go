package app

import (
	"context"
	"fmt"
	"time"

	"github.com/pgdeck/pgdeck/internal/models"
	"github.com/pgdeck/pgdeck/internal/modules/backup"
	pkgcron "github.com/pgdeck/pgdeck/internal/pkg/cron"
	"github.com/pgdeck/pgdeck/internal/pkg/pgconnect"
	sessionpkg "github.com/pgdeck/pgdeck/internal/pkg/session"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// registerCronJobs registers all scheduled background jobs.
func registerCronJobs(sched *pkgcron.Scheduler, db *gorm.DB, backupSvc *backup.Service, logger *zap.Logger) {
	cronLogger := logger.Named("cron")

	sched.Register(pkgcron.Job{
		Name:        "sweep_sessions",
		Description: "remove sessions past their hard expiry",
		Interval:    time.Hour,
		Fn: func(ctx context.Context) error {
			n, err := sessionpkg.SweepExpired(db)
			if err != nil {
				cronLogger.Warn("session sweep failed", zap.Error(err))
				return err
			}
			if n > 0 {
				cronLogger.Info(fmt.Sprintf("swept %d expired sessions", n))
			}
			return nil
		},
	})

	sched.Register(pkgcron.Job{
		Name:        "probe_servers",
		Description: "refresh reachability and version of every registered server",
		Interval:    10 * time.Minute,
		Fn: func(ctx context.Context) error {
			var servers []models.ServerModel
			if err := db.Find(&servers).Error; err != nil {
				return err
			}
			unreachable := 0
			for i := range servers {
				srv := &servers[i]
				conn, err := pgconnect.Connect(ctx, srv)
				if err != nil {
					unreachable++
					continue
				}
				var version string
				if err := conn.QueryRow(ctx, `SELECT version()`).Scan(&version); err == nil {
					now := time.Now()
					db.Model(srv).Updates(map[string]interface{}{
						"last_seen_at": now,
						"last_version": version,
					})
				}
				conn.Close(ctx)
			}
			if unreachable > 0 {
				cronLogger.Warn(fmt.Sprintf("%d of %d servers unreachable", unreachable, len(servers)))
			}
			return nil
		},
	})

	sched.Register(pkgcron.Job{
		Name:        "auto_backup",
		Description: "dump every registered server",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			cronLogger.Info("starting scheduled backups")
			if err := backupSvc.RunAll(ctx); err != nil {
				cronLogger.Warn("scheduled backups failed", zap.Error(err))
				return err
			}
			cronLogger.Info("scheduled backups finished")
			return nil
		},
	})
}
