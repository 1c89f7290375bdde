package app

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pgdeck/pgdeck/internal/middleware"
	"github.com/pgdeck/pgdeck/internal/modules/auth/auth"
	"github.com/pgdeck/pgdeck/internal/modules/auth/user"
	"github.com/pgdeck/pgdeck/internal/modules/backup"
	"github.com/pgdeck/pgdeck/internal/modules/fleet/replication"
	"github.com/pgdeck/pgdeck/internal/modules/fleet/schemabrowse"
	"github.com/pgdeck/pgdeck/internal/modules/fleet/server"
	"github.com/pgdeck/pgdeck/internal/modules/fleet/vacuum"
	"github.com/pgdeck/pgdeck/internal/modules/settings"
	"github.com/pgdeck/pgdeck/internal/modules/tasks/crontask"
	pkgredis "github.com/pgdeck/pgdeck/internal/pkg/redis"
	"github.com/pgdeck/pgdeck/internal/pkg/response"
)

var processStart = time.Now()

func (a *App) registerRoutes(rc *pkgredis.Client, backupSvc *backup.Service) {
	r := a.router
	db := a.db
	authMW := middleware.Auth(db)
	loginRL := middleware.LoginRateLimit(rc.Raw())

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	appInfo := gin.H{
		"name":     "pgdeck",
		"version":  "1.0.0",
		"homepage": "https://github.com/pgdeck/pgdeck",
	}

	api := r.Group("/api/v1")

	api.GET("", func(c *gin.Context) { c.PureJSON(http.StatusOK, appInfo) })
	api.GET("/info", func(c *gin.Context) { c.PureJSON(http.StatusOK, appInfo) })
	api.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"data": "pong"}) })
	api.GET("/uptime", func(c *gin.Context) {
		uptimeMs := time.Since(processStart).Milliseconds()
		c.JSON(http.StatusOK, gin.H{
			"timestamp": uptimeMs,
			"humanize":  humanizeDuration(time.Duration(uptimeMs) * time.Millisecond),
		})
	})

	// Auth & profile
	authSvc := auth.NewService(db,
		auth.WithLockoutPolicy(a.cfg.Auth.MaxLoginRetries, a.cfg.Auth.LockoutDuration()),
		auth.WithBcryptCost(a.cfg.Auth.BcryptCost),
	)
	auth.NewHandler(authSvc).RegisterRoutes(api, authMW, loginRL)
	user.NewHandler(user.NewService(db)).RegisterRoutes(api, authMW)

	// Fleet
	serverSvc := server.NewService(db)
	server.NewHandler(serverSvc).RegisterRoutes(api, authMW)
	schemabrowse.NewHandler(schemabrowse.NewService(db)).RegisterRoutes(api, authMW)
	replication.NewHandler(replication.NewService(db)).RegisterRoutes(api, authMW)
	vacuum.NewHandler(vacuum.NewService(db)).RegisterRoutes(api, authMW)

	// Backups
	backup.NewHandler(backupSvc).RegisterRoutes(api, authMW)

	// Console key-value settings
	settings.NewHandler(settings.NewService(db)).RegisterRoutes(api, authMW)

	// Cron job management
	crontask.NewHandler(a.sched).RegisterRoutes(api, authMW)
}
