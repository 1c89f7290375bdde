package backup

import (
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pgdeck/pgdeck/internal/models"
	"github.com/pgdeck/pgdeck/internal/pkg/pagination"
	"github.com/pgdeck/pgdeck/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/backups", authMW)

	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.GET("/:id/download", h.download)
	g.POST("", h.run)
	g.DELETE("/:id", h.delete)
}

type backupView struct {
	ID         string     `json:"id"`
	ServerID   string     `json:"server_id"`
	Filename   string     `json:"filename"`
	SizeBytes  int64      `json:"size_bytes"`
	Status     string     `json:"status"`
	Error      string     `json:"error,omitempty"`
	S3Key      string     `json:"s3_key,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at"`
}

func toView(r *models.BackupRecord) backupView {
	return backupView{
		ID:         r.ID,
		ServerID:   r.ServerID,
		Filename:   r.Filename,
		SizeBytes:  r.SizeBytes,
		Status:     string(r.Status),
		Error:      r.Error,
		S3Key:      r.S3Key,
		CreatedAt:  r.CreatedAt,
		FinishedAt: r.FinishedAt,
	}
}

// GET /backups?server_id=
func (h *Handler) list(c *gin.Context) {
	q := pagination.FromContext(c)
	recs, meta, err := h.svc.List(c.Query("server_id"), q)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	views := make([]backupView, 0, len(recs))
	for i := range recs {
		views = append(views, toView(&recs[i]))
	}
	response.Paged(c, views, meta)
}

// GET /backups/:id
func (h *Handler) get(c *gin.Context) {
	rec, err := h.svc.Get(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, toView(rec))
}

// GET /backups/:id/download
func (h *Handler) download(c *gin.Context) {
	path, rec, err := h.svc.LocalPath(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, rec.Filename))
	c.File(path)
}

type runDTO struct {
	ServerID string `json:"server_id" binding:"required"`
}

// POST /backups
func (h *Handler) run(c *gin.Context) {
	var dto runDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	rec, err := h.svc.Run(c.Request.Context(), dto.ServerID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, toView(rec))
}

// DELETE /backups/:id
func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Param("id")); err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errServerNotFound), errors.Is(err, errBackupNotFound):
		response.NotFoundMsg(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}
