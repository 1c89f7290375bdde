package server

import (
	"errors"
	"time"

	"github.com/pgdeck/pgdeck/internal/models"
)

type CreateServerDTO struct {
	Name        string `json:"name"        binding:"required,min=2"`
	Host        string `json:"host"        binding:"required"`
	Port        int    `json:"port"`
	Database    string `json:"database"`
	Username    string `json:"username"    binding:"required"`
	Password    string `json:"password"`
	SSLMode     string `json:"ssl_mode"`
	Environment string `json:"environment"`
	Description string `json:"description"`
}

type UpdateServerDTO struct {
	Name        *string `json:"name"`
	Host        *string `json:"host"`
	Port        *int    `json:"port"`
	Database    *string `json:"database"`
	Username    *string `json:"username"`
	Password    *string `json:"password"`
	SSLMode     *string `json:"ssl_mode"`
	Environment *string `json:"environment"`
	Description *string `json:"description"`
}

type serverResponse struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Host        string     `json:"host"`
	Port        int        `json:"port"`
	Database    string     `json:"database"`
	Username    string     `json:"username"`
	SSLMode     string     `json:"ssl_mode"`
	Environment string     `json:"environment"`
	Description string     `json:"description"`
	LastSeenAt  *time.Time `json:"last_seen_at"`
	LastVersion string     `json:"last_version"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ProbeResult is the outcome of an on-demand connectivity check.
type ProbeResult struct {
	Reachable bool   `json:"reachable"`
	Version   string `json:"version,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

func toResponse(m *models.ServerModel) serverResponse {
	return serverResponse{
		ID:          m.ID,
		Name:        m.Name,
		Host:        m.Host,
		Port:        m.Port,
		Database:    m.Database,
		Username:    m.Username,
		SSLMode:     m.SSLMode,
		Environment: string(m.Environment),
		Description: m.Description,
		LastSeenAt:  m.LastSeenAt,
		LastVersion: m.LastVersion,
		CreatedAt:   m.CreatedAt,
	}
}

var (
	errServerNotFound = errors.New("server not found")
	errDuplicateName  = errors.New("a server with this name already exists")
)
