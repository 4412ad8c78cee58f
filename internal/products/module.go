// Package products provides the product listing domain module.
package products

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"marketplace_backend/internal/adapters/storage"
	apphttp "marketplace_backend/internal/http"
	"marketplace_backend/internal/products/handler"
	"marketplace_backend/internal/products/repository"
	"marketplace_backend/internal/products/service"
	"marketplace_backend/platform/validator"
)

// Module represents the products domain module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new products module with all dependencies wired.
func NewModule(pool *pgxpool.Pool, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
	}
}

// SetStorage injects object storage for listing photos.
func (m *Module) SetStorage(svc storage.StorageService, bucket string) {
	m.service.SetStorage(svc, bucket)
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "products"
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/products"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
