// Package offers provides the offer negotiation domain module: the
// offer state machine, the platform fee schedule and the expiry sweep.
package offers

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"marketplace_backend/internal/events"
	apphttp "marketplace_backend/internal/http"
	"marketplace_backend/internal/offers/handler"
	"marketplace_backend/internal/offers/repository"
	"marketplace_backend/internal/offers/service"
	"marketplace_backend/platform/clock"
	"marketplace_backend/platform/config"
	"marketplace_backend/platform/logger"
	"marketplace_backend/platform/validator"
)

// Module represents the offers domain module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new offers module with all dependencies wired.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, clk clock.Clock, log *logger.Logger, cfg config.OffersConfig, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, eventBus, clk, log, cfg)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "offers"
}

// Service returns the service layer for external use (scheduler wiring).
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/offers"))
	m.handler.RegisterProductRoutes(ctx.Protected.Group("/products"))
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/offers"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
