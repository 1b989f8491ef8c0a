package maps

import (
	apphttp "lead_broker_backend/internal/http"
)

// Module wires the maps address lookup HTTP routes.
type Module struct {
	handler *Handler
}

func NewModule(svc AddressSearcher) *Module {
	return &Module{handler: NewHandler(svc)}
}

func (m *Module) Name() string {
	return "maps"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Public.Group("/maps")
	group.GET("/address-lookup", m.handler.LookupAddress)
}

var _ apphttp.Module = (*Module)(nil)
