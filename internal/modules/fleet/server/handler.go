package server

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/pgdeck/pgdeck/internal/pkg/pagination"
	"github.com/pgdeck/pgdeck/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/servers", authMW)

	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.POST("", h.create)
	g.POST("/:id/probe", h.probe)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.delete)
}

// GET /servers?env=production
func (h *Handler) list(c *gin.Context) {
	q := pagination.FromContext(c)
	items, pag, err := h.svc.List(q, c.Query("env"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	out := make([]serverResponse, len(items))
	for i := range items {
		out[i] = toResponse(&items[i])
	}
	response.Paged(c, out, pag)
}

// GET /servers/:id
func (h *Handler) get(c *gin.Context) {
	m, err := h.svc.GetByID(c.Param("id"))
	if err != nil {
		if errors.Is(err, errServerNotFound) {
			response.NotFoundMsg(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, toResponse(m))
}

// POST /servers
func (h *Handler) create(c *gin.Context) {
	var dto CreateServerDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	m, err := h.svc.Create(&dto)
	if err != nil {
		if errors.Is(err, errDuplicateName) {
			response.Conflict(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Created(c, toResponse(m))
}

// POST /servers/:id/probe
func (h *Handler) probe(c *gin.Context) {
	result, err := h.svc.Probe(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, errServerNotFound) {
			response.NotFoundMsg(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, result)
}

// PUT /servers/:id
func (h *Handler) update(c *gin.Context) {
	var dto UpdateServerDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	m, err := h.svc.Update(c.Param("id"), &dto)
	if err != nil {
		if errors.Is(err, errServerNotFound) {
			response.NotFoundMsg(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, toResponse(m))
}

// DELETE /servers/:id
func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Param("id")); err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}
