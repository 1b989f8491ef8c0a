package handler

import (
	"net/http"

	"lead_broker_backend/internal/analytics/service"
	"lead_broker_backend/internal/analytics/transport"
	"lead_broker_backend/platform/httpkit"
	"lead_broker_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/track", h.Track)
}

func (h *Handler) Track(c *gin.Context) {
	var req transport.TrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", validator.FieldErrors(err))
		return
	}

	result, err := h.svc.Track(c.Request.Context(), req, service.ClientInfo{
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
		Referrer:  c.Request.Referer(),
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, result)
}
