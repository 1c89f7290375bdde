package auth

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

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW, loginRL gin.HandlerFunc) {
	g := rg.Group("/auth")

	g.POST("/register", h.register)
	g.POST("/login", loginRL, h.login)
	g.POST("/refresh", h.refresh)

	a := g.Group("", authMW)
	a.POST("/logout", h.logout)
	a.POST("/logout-all", h.logoutAll)
	a.GET("/sessions", h.listSessions)
	a.DELETE("/sessions/:id", h.revokeSession)
}

// POST /auth/register
func (h *Handler) register(c *gin.Context) {
	var dto RegisterDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	resp, err := h.svc.Register(&dto, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		if errors.Is(err, errEmailTaken) {
			response.Conflict(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Created(c, resp)
}

// POST /auth/login
func (h *Handler) login(c *gin.Context) {
	var dto LoginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	resp, err := h.svc.Login(&dto, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		var locked lockedError
		if errors.Is(err, errInvalidCredentials) || errors.As(err, &locked) {
			response.UnauthorizedMsg(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, resp)
}

// POST /auth/refresh
func (h *Handler) refresh(c *gin.Context) {
	var dto RefreshDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	resp, err := h.svc.Refresh(dto.RefreshToken)
	if err != nil {
		if errors.Is(err, errInvalidRefresh) {
			response.UnauthorizedMsg(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, resp)
}

// POST /auth/logout
func (h *Handler) logout(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	token := middleware.NormalizeToken(c.GetHeader("Authorization"))
	if err := h.svc.Logout(userID, token); err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

// POST /auth/logout-all
func (h *Handler) logoutAll(c *gin.Context) {
	if err := h.svc.LogoutAll(middleware.CurrentUserID(c)); err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

// GET /auth/sessions
func (h *Handler) listSessions(c *gin.Context) {
	sessions, err := h.svc.ListSessions(middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	out := make([]sessionResponse, len(sessions))
	for i, s := range sessions {
		out[i] = sessionResponse{
			ID:        s.ID,
			IPAddress: s.IPAddress,
			UserAgent: s.UserAgent,
			CreatedAt: s.CreatedAt,
			ExpiresAt: s.ExpiresAt,
		}
	}
	response.OK(c, out)
}

// DELETE /auth/sessions/:id
func (h *Handler) revokeSession(c *gin.Context) {
	if err := h.svc.RevokeSession(middleware.CurrentUserID(c), c.Param("id")); err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}
