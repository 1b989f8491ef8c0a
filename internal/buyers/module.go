// Package buyers provides the buyers bounded context module.
package buyers

import (
	"lead_broker_backend/internal/buyers/handler"
	"lead_broker_backend/internal/buyers/repository"
	"lead_broker_backend/internal/buyers/service"
	apphttp "lead_broker_backend/internal/http"
	"lead_broker_backend/platform/logger"
	"lead_broker_backend/platform/validator"
)

// Module is the buyers bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the buyers module around a buyer store.
// The same store instance must be handed to the lead distributor so that
// capacity reservations and listings observe one pool.
func NewModule(repo repository.Repository, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repo, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "buyers"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the buyer store shared with lead distribution.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts buyer routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.V1.Group("/buyers"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
