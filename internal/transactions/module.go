// Package transactions provides the settlement records domain module.
package transactions

import (
	"github.com/jackc/pgx/v5/pgxpool"

	apphttp "marketplace_backend/internal/http"
	"marketplace_backend/internal/transactions/handler"
	"marketplace_backend/internal/transactions/repository"
	"marketplace_backend/internal/transactions/service"
)

// Module represents the transactions domain module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new transactions module with all dependencies wired.
func NewModule(pool *pgxpool.Pool) *Module {
	repo := repository.New(pool)
	svc := service.New(repo)
	h := handler.New(svc)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "transactions"
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/transactions"))
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/transactions"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
