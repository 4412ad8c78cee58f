// Package conversations provides the messaging domain module.
package conversations

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"marketplace_backend/internal/conversations/handler"
	"marketplace_backend/internal/conversations/repository"
	"marketplace_backend/internal/conversations/service"
	apphttp "marketplace_backend/internal/http"
	"marketplace_backend/platform/validator"
)

// Module represents the conversations domain module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new conversations module with all dependencies wired.
func NewModule(pool *pgxpool.Pool, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "conversations"
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/conversations"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
