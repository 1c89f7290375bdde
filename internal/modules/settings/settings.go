// Package settings is a small persisted key-value store for console
// preferences that must survive restarts.
package settings

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/pgdeck/pgdeck/internal/models"
	"github.com/pgdeck/pgdeck/internal/pkg/response"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errSettingNotFound = errors.New("setting not found")

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// All returns every setting as a flat map.
func (s *Service) All() (map[string]string, error) {
	var rows []models.SettingModel
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}

func (s *Service) Get(key string) (string, error) {
	var row models.SettingModel
	if err := s.db.First(&row, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", errSettingNotFound
		}
		return "", err
	}
	return row.Value, nil
}

// Set upserts one key.
func (s *Service) Set(key, value string) error {
	row := models.SettingModel{Key: key, Value: value}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
}

// Delete removes one key. Deleting a missing key is not an error.
func (s *Service) Delete(key string) error {
	return s.db.Delete(&models.SettingModel{}, "key = ?", key).Error
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/settings", authMW)

	g.GET("", h.all)
	g.GET("/:key", h.get)
	g.PUT("/:key", h.set)
	g.DELETE("/:key", h.delete)
}

// GET /settings
func (h *Handler) all(c *gin.Context) {
	out, err := h.svc.All()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, out)
}

// GET /settings/:key
func (h *Handler) get(c *gin.Context) {
	value, err := h.svc.Get(c.Param("key"))
	if err != nil {
		if errors.Is(err, errSettingNotFound) {
			response.NotFoundMsg(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"key": c.Param("key"), "value": value})
}

type setDTO struct {
	Value string `json:"value" binding:"required"`
}

// PUT /settings/:key
func (h *Handler) set(c *gin.Context) {
	var dto setDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.svc.Set(c.Param("key"), dto.Value); err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

// DELETE /settings/:key
func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Param("key")); err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}
