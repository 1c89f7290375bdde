package server

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/pgdeck/pgdeck/internal/models"
	"github.com/pgdeck/pgdeck/internal/pkg/pagination"
	"github.com/pgdeck/pgdeck/internal/pkg/pgconnect"
	"github.com/pgdeck/pgdeck/internal/pkg/response"
	"gorm.io/gorm"
)

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

func (s *Service) List(q pagination.Query, env string) ([]models.ServerModel, response.Pagination, error) {
	query := s.db.Model(&models.ServerModel{}).Order("name ASC")
	if env != "" {
		query = query.Where("environment = ?", env)
	}
	var items []models.ServerModel
	pag, err := pagination.Paginate(query, q, &items)
	return items, pag, err
}

func (s *Service) GetByID(id string) (*models.ServerModel, error) {
	var m models.ServerModel
	if err := s.db.First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errServerNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (s *Service) Create(dto *CreateServerDTO) (*models.ServerModel, error) {
	var count int64
	if err := s.db.Model(&models.ServerModel{}).
		Where("name = ?", strings.TrimSpace(dto.Name)).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errDuplicateName
	}

	m := models.ServerModel{
		Name:        strings.TrimSpace(dto.Name),
		Host:        strings.TrimSpace(dto.Host),
		Port:        dto.Port,
		Database:    dto.Database,
		Username:    dto.Username,
		Password:    dto.Password,
		SSLMode:     dto.SSLMode,
		Environment: models.ServerEnv(dto.Environment),
		Description: dto.Description,
	}
	if m.Port == 0 {
		m.Port = 5432
	}
	if m.Database == "" {
		m.Database = "postgres"
	}
	return &m, s.db.Create(&m).Error
}

func (s *Service) Update(id string, dto *UpdateServerDTO) (*models.ServerModel, error) {
	m, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	setIf(updates, "name", dto.Name)
	setIf(updates, "host", dto.Host)
	setIf(updates, "database", dto.Database)
	setIf(updates, "username", dto.Username)
	setIf(updates, "password", dto.Password)
	setIf(updates, "ssl_mode", dto.SSLMode)
	setIf(updates, "environment", dto.Environment)
	setIf(updates, "description", dto.Description)
	if dto.Port != nil {
		updates["port"] = *dto.Port
	}
	if len(updates) == 0 {
		return m, nil
	}
	if err := s.db.Model(m).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

func (s *Service) Delete(id string) error {
	return s.db.Where("id = ?", id).Delete(&models.ServerModel{}).Error
}

// Probe connects to the managed server, measures round-trip and records the
// reported version on success.
func (s *Service) Probe(ctx context.Context, id string) (*ProbeResult, error) {
	m, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	conn, err := pgconnect.Connect(ctx, m)
	if err != nil {
		return &ProbeResult{Reachable: false, LatencyMS: time.Since(start).Milliseconds(), Error: err.Error()}, nil
	}
	defer conn.Close(ctx)

	var version string
	if err := conn.QueryRow(ctx, "SELECT version()").Scan(&version); err != nil {
		return &ProbeResult{Reachable: false, LatencyMS: time.Since(start).Milliseconds(), Error: err.Error()}, nil
	}

	now := time.Now()
	_ = s.db.Model(m).Updates(map[string]interface{}{
		"last_seen_at": now,
		"last_version": version,
	}).Error

	return &ProbeResult{
		Reachable: true,
		Version:   version,
		LatencyMS: now.Sub(start).Milliseconds(),
	}, nil
}

func setIf(updates map[string]interface{}, column string, value *string) {
	if value != nil {
		updates[column] = strings.TrimSpace(*value)
	}
}
