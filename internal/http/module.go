// Package http defines how bounded contexts plug their routes into the API.
package http

import (
	"github.com/gin-gonic/gin"
)

// Module is a bounded context with HTTP routes. cmd/api lists the modules and
// the router mounts each in turn.
type Module interface {
	// Name is used in startup logs.
	Name() string
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext carries the route groups a module may mount on.
type RouterContext struct {
	// Engine is the root engine, for routes outside /api/v1.
	Engine *gin.Engine
	// V1 is /api/v1 without rate limiting: operator endpoints and streams.
	V1 *gin.RouterGroup
	// Public is /api/v1 behind the per-IP rate limiter. Form-facing
	// endpoints (lead submission, analytics, address lookup) mount here.
	Public *gin.RouterGroup
}
