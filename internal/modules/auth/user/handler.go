package user

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/pgdeck/pgdeck/internal/middleware"
	"github.com/pgdeck/pgdeck/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/auth", authMW)

	g.GET("/profile", h.getProfile)
	g.PUT("/profile", h.updateProfile)
	g.PUT("/password", h.changePassword)
}

// GET /auth/profile
func (h *Handler) getProfile(c *gin.Context) {
	u, err := h.svc.GetProfile(middleware.CurrentUserID(c))
	if err != nil {
		if errors.Is(err, errUserNotFound) {
			response.NotFoundMsg(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, toProfileResponse(u))
}

// PUT /auth/profile
func (h *Handler) updateProfile(c *gin.Context) {
	var dto UpdateProfileDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.svc.UpdateProfile(middleware.CurrentUserID(c), &dto)
	if err != nil {
		if errors.Is(err, errUserNotFound) {
			response.NotFoundMsg(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, toProfileResponse(u))
}

// PUT /auth/password
func (h *Handler) changePassword(c *gin.Context) {
	var dto ChangePasswordDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	err := h.svc.ChangePassword(middleware.CurrentUserID(c), &dto)
	if err != nil {
		switch {
		case errors.Is(err, errUserNotFound):
			response.NotFoundMsg(c, err.Error())
		case errors.Is(err, errWrongPassword):
			response.BadRequest(c, err.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.NoContent(c)
}
