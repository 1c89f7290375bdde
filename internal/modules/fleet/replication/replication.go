// Package replication surfaces the streaming-replication view of a server:
// whether it is a standby and who is replicating from it right now.
package replication

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/pgdeck/pgdeck/internal/models"
	"github.com/pgdeck/pgdeck/internal/pkg/pgconnect"
	"github.com/pgdeck/pgdeck/internal/pkg/response"
	"gorm.io/gorm"
)

type Standby struct {
	PID             int     `json:"pid"`
	ClientAddr      *string `json:"client_addr"`
	ApplicationName string  `json:"application_name"`
	State           string  `json:"state"`
	SyncState       string  `json:"sync_state"`
	SentLSN         *string `json:"sent_lsn"`
	ReplayLSN       *string `json:"replay_lsn"`
	ReplayLagMS     *int64  `json:"replay_lag_ms"`
}

// Status is the replication snapshot for one server.
type Status struct {
	InRecovery bool      `json:"in_recovery"`
	Standbys   []Standby `json:"standbys"`
}

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

var errServerNotFound = errors.New("server not found")

// Snapshot reads pg_is_in_recovery() and pg_stat_replication in one pass.
func (s *Service) Snapshot(ctx context.Context, serverID string) (*Status, error) {
	var srv models.ServerModel
	if err := s.db.First(&srv, "id = ?", serverID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errServerNotFound
		}
		return nil, err
	}

	conn, err := pgconnect.Connect(ctx, &srv)
	if err != nil {
		return nil, err
	}
	defer conn.Close(ctx)

	st := &Status{Standbys: []Standby{}}
	if err := conn.QueryRow(ctx, `SELECT pg_is_in_recovery()`).Scan(&st.InRecovery); err != nil {
		return nil, err
	}

	rows, err := conn.Query(ctx, `
		SELECT pid, client_addr::text, coalesce(application_name, ''),
		       coalesce(state, ''), coalesce(sync_state, ''),
		       sent_lsn::text, replay_lsn::text,
		       (extract(epoch FROM replay_lag) * 1000)::bigint
		FROM pg_stat_replication
		ORDER BY pid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var sb Standby
		if err := rows.Scan(&sb.PID, &sb.ClientAddr, &sb.ApplicationName,
			&sb.State, &sb.SyncState, &sb.SentLSN, &sb.ReplayLSN, &sb.ReplayLagMS); err != nil {
			return nil, err
		}
		st.Standbys = append(st.Standbys, sb)
	}
	return st, rows.Err()
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	rg.GET("/servers/:id/replication", authMW, h.snapshot)
}

// GET /servers/:id/replication
func (h *Handler) snapshot(c *gin.Context) {
	st, err := h.svc.Snapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, errServerNotFound) {
			response.NotFoundMsg(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, st)
}
