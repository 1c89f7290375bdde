// Package vacuum shows dead-tuple pressure per table and lets an operator
// kick off a manual VACUUM (ANALYZE) on one of them.
package vacuum

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pgdeck/pgdeck/internal/models"
	"github.com/pgdeck/pgdeck/internal/pkg/pgconnect"
	"github.com/pgdeck/pgdeck/internal/pkg/response"
	"gorm.io/gorm"
)

type TableStats struct {
	Schema          string     `json:"schema"`
	Name            string     `json:"name"`
	LiveTuples      int64      `json:"live_tuples"`
	DeadTuples      int64      `json:"dead_tuples"`
	LastVacuum      *time.Time `json:"last_vacuum"`
	LastAutovacuum  *time.Time `json:"last_autovacuum"`
	LastAnalyze     *time.Time `json:"last_analyze"`
	LastAutoanalyze *time.Time `json:"last_autoanalyze"`
}

type RunDTO struct {
	Schema string `json:"schema" binding:"required"`
	Table  string `json:"table" binding:"required"`
}

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

var (
	errServerNotFound = errors.New("server not found")
	errBadIdentifier  = errors.New("invalid schema or table name")

	// pg identifiers we pass through; anything else gets rejected rather
	// than quoted, VACUUM cannot take bind parameters.
	identRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_$]*$`)
)

func (s *Service) server(id string) (*models.ServerModel, error) {
	var m models.ServerModel
	if err := s.db.First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errServerNotFound
		}
		return nil, err
	}
	return &m, nil
}

// Stats lists user tables ordered by dead-tuple count, worst first.
func (s *Service) Stats(ctx context.Context, serverID string) ([]TableStats, error) {
	srv, err := s.server(serverID)
	if err != nil {
		return nil, err
	}
	conn, err := pgconnect.Connect(ctx, srv)
	if err != nil {
		return nil, err
	}
	defer conn.Close(ctx)

	rows, err := conn.Query(ctx, `
		SELECT schemaname, relname, n_live_tup, n_dead_tup,
		       last_vacuum, last_autovacuum, last_analyze, last_autoanalyze
		FROM pg_stat_user_tables
		ORDER BY n_dead_tup DESC, schemaname, relname`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TableStats
	for rows.Next() {
		var t TableStats
		if err := rows.Scan(&t.Schema, &t.Name, &t.LiveTuples, &t.DeadTuples,
			&t.LastVacuum, &t.LastAutovacuum, &t.LastAnalyze, &t.LastAutoanalyze); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Run executes VACUUM (ANALYZE) on one table and blocks until it finishes.
func (s *Service) Run(ctx context.Context, serverID string, dto RunDTO) error {
	if !identRe.MatchString(dto.Schema) || !identRe.MatchString(dto.Table) {
		return errBadIdentifier
	}
	srv, err := s.server(serverID)
	if err != nil {
		return err
	}
	conn, err := pgconnect.Connect(ctx, srv)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	_, err = conn.Exec(ctx, fmt.Sprintf(`VACUUM (ANALYZE) %q.%q`, dto.Schema, dto.Table))
	return err
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/servers/:id/vacuum", authMW)

	g.GET("", h.stats)
	g.POST("", h.run)
}

// GET /servers/:id/vacuum
func (h *Handler) stats(c *gin.Context) {
	out, err := h.svc.Stats(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, out)
}

// POST /servers/:id/vacuum
func (h *Handler) run(c *gin.Context) {
	var dto RunDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.svc.Run(c.Request.Context(), c.Param("id"), dto); err != nil {
		h.fail(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errServerNotFound):
		response.NotFoundMsg(c, err.Error())
	case errors.Is(err, errBadIdentifier):
		response.BadRequest(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}
