// Package analytics provides the form analytics sink module.
package analytics

import (
	"lead_broker_backend/internal/analytics/handler"
	"lead_broker_backend/internal/analytics/repository"
	"lead_broker_backend/internal/analytics/service"
	"lead_broker_backend/internal/events"
	apphttp "lead_broker_backend/internal/http"
	"lead_broker_backend/platform/logger"
	"lead_broker_backend/platform/validator"
)

// Module is the analytics module implementing http.Module.
type Module struct {
	handler *handler.Handler
}

// NewModule creates the analytics module and subscribes it to lead events.
func NewModule(repo repository.Repository, eventBus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repo, log)
	svc.Subscribe(eventBus)
	return &Module{handler: handler.New(svc, val)}
}

func (m *Module) Name() string {
	return "analytics"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Public.Group("/analytics"))
}

var _ apphttp.Module = (*Module)(nil)
