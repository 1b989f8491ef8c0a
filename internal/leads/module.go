// Package leads provides the lead intake and distribution bounded context.
// This file defines the module that wires qualification, allocation and
// route registration.
package leads

import (
	buyerrepo "lead_broker_backend/internal/buyers/repository"
	"lead_broker_backend/internal/events"
	"lead_broker_backend/internal/geo"
	apphttp "lead_broker_backend/internal/http"
	"lead_broker_backend/internal/leads/distribution"
	"lead_broker_backend/internal/leads/handler"
	"lead_broker_backend/internal/leads/pricing"
	"lead_broker_backend/internal/leads/repository"
	"lead_broker_backend/internal/leads/service"
	"lead_broker_backend/platform/logger"
	"lead_broker_backend/platform/validator"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler     *handler.Handler
	service     *service.Service
	distributor *distribution.Distributor
}

// NewModule creates the leads module. buyers must be the same store the
// buyers module serves so that reservations and listings agree.
func NewModule(
	repo repository.LeadRepository,
	buyers buyerrepo.Repository,
	eval *geo.Evaluator,
	table pricing.Table,
	policy distribution.Policy,
	eventBus events.Bus,
	val *validator.Validator,
	log *logger.Logger,
) *Module {
	dist := distribution.New(eval, table, buyers, buyers, repo, policy, log)
	svc := service.New(repo, dist, eventBus, log)

	return &Module{
		handler:     handler.New(svc, val),
		service:     svc,
		distributor: dist,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service returns the lead service for the scheduler jobs.
func (m *Module) Service() *service.Service {
	return m.service
}

// Distributor returns the qualification and allocation engine.
func (m *Module) Distributor() *distribution.Distributor {
	return m.distributor
}

// RegisterRoutes mounts the public intake route and the management routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterPublicRoutes(ctx.Public.Group("/leads"))
	m.handler.RegisterRoutes(ctx.V1.Group("/leads"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
