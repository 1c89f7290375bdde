// Package schemabrowse is the read-only relational schema browser: databases,
// tables and columns of a registered server, straight from the catalogs.
package schemabrowse

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/pgdeck/pgdeck/internal/models"
	"github.com/pgdeck/pgdeck/internal/pkg/pgconnect"
	"github.com/pgdeck/pgdeck/internal/pkg/response"
	"gorm.io/gorm"
)

type Database struct {
	Name      string `json:"name"`
	Owner     string `json:"owner"`
	SizeBytes int64  `json:"size_bytes"`
}

type Table struct {
	Schema       string `json:"schema"`
	Name         string `json:"name"`
	RowEstimate  int64  `json:"row_estimate"`
	TotalBytes   int64  `json:"total_bytes"`
	IndexesBytes int64  `json:"indexes_bytes"`
}

type Column struct {
	Position int     `json:"position"`
	Name     string  `json:"name"`
	DataType string  `json:"data_type"`
	Nullable bool    `json:"nullable"`
	Default  *string `json:"default,omitempty"`
}

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

var errServerNotFound = errors.New("server not found")

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

// Databases lists non-template databases with owner and size.
func (s *Service) Databases(ctx context.Context, serverID string) ([]Database, error) {
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
		SELECT d.datname, pg_get_userbyid(d.datdba), pg_database_size(d.datname)
		FROM pg_database d
		WHERE NOT d.datistemplate
		ORDER BY d.datname`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Database
	for rows.Next() {
		var d Database
		if err := rows.Scan(&d.Name, &d.Owner, &d.SizeBytes); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Tables lists user tables with live-row estimates and on-disk sizes.
func (s *Service) Tables(ctx context.Context, serverID string) ([]Table, error) {
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
		SELECT schemaname, relname, n_live_tup,
		       pg_total_relation_size(relid), pg_indexes_size(relid)
		FROM pg_stat_user_tables
		ORDER BY schemaname, relname`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Table
	for rows.Next() {
		var t Table
		if err := rows.Scan(&t.Schema, &t.Name, &t.RowEstimate, &t.TotalBytes, &t.IndexesBytes); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Columns lists the columns of one table in declaration order.
func (s *Service) Columns(ctx context.Context, serverID, schema, table string) ([]Column, error) {
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
		SELECT column_name, data_type, is_nullable = 'YES', column_default, ordinal_position
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`, schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Column
	for rows.Next() {
		var col Column
		if err := rows.Scan(&col.Name, &col.DataType, &col.Nullable, &col.Default, &col.Position); err != nil {
			return nil, err
		}
		out = append(out, col)
	}
	return out, rows.Err()
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/servers/:id/schema", authMW)

	g.GET("/databases", h.databases)
	g.GET("/tables", h.tables)
	g.GET("/tables/:schema/:table/columns", h.columns)
}

// GET /servers/:id/schema/databases
func (h *Handler) databases(c *gin.Context) {
	out, err := h.svc.Databases(c.Request.Context(), c.Param("id"))
	h.respond(c, out, err)
}

// GET /servers/:id/schema/tables
func (h *Handler) tables(c *gin.Context) {
	out, err := h.svc.Tables(c.Request.Context(), c.Param("id"))
	h.respond(c, out, err)
}

// GET /servers/:id/schema/tables/:schema/:table/columns
func (h *Handler) columns(c *gin.Context) {
	out, err := h.svc.Columns(c.Request.Context(), c.Param("id"), c.Param("schema"), c.Param("table"))
	h.respond(c, out, err)
}

func (h *Handler) respond(c *gin.Context, out interface{}, err error) {
	if err != nil {
		if errors.Is(err, errServerNotFound) {
			response.NotFoundMsg(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, out)
}
