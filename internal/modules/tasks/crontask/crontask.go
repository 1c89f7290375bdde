// Package crontask exposes the background job scheduler over HTTP so
// operators can inspect and trigger maintenance jobs.
package crontask

import (
	"github.com/gin-gonic/gin"
	pkgcron "github.com/pgdeck/pgdeck/internal/pkg/cron"
	"github.com/pgdeck/pgdeck/internal/pkg/response"
)

type Handler struct {
	sched *pkgcron.Scheduler
}

func NewHandler(sched *pkgcron.Scheduler) *Handler {
	return &Handler{sched: sched}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/cron-task", authMW)

	g.GET("", h.list)
	g.GET("/:name", h.get)
	g.POST("/:name/run", h.run)
}

// GET /cron-task
func (h *Handler) list(c *gin.Context) {
	response.OK(c, h.sched.List())
}

// GET /cron-task/:name
func (h *Handler) get(c *gin.Context) {
	info, err := h.sched.Get(c.Param("name"))
	if err != nil {
		response.NotFoundMsg(c, "job not found")
		return
	}
	response.OK(c, info)
}

// POST /cron-task/:name/run
func (h *Handler) run(c *gin.Context) {
	if err := h.sched.Trigger(c.Param("name")); err != nil {
		response.NotFoundMsg(c, "job not found")
		return
	}
	response.OK(c, gin.H{"message": "job triggered"})
}
