package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"marketplace_backend/internal/transactions/service"
	"marketplace_backend/internal/transactions/transport"
	"marketplace_backend/platform/httpkit"
)

const msgInvalidRequest = "invalid request"

// Handler handles HTTP requests for transactions.
type Handler struct {
	svc *service.Service
}

// New creates a new transactions handler.
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the transaction routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/:id", h.GetByID)
}

// RegisterAdminRoutes registers the admin transaction listing.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.AdminList)
}

func (h *Handler) GetByID(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	transactionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	transaction, err := h.svc.Get(c.Request.Context(), id.UserID(), transactionID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.FromRepo(transaction))
}

func (h *Handler) List(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	page, perPage := pagination(c)
	transactions, total, err := h.svc.List(c.Request.Context(), id.UserID(), perPage, (page-1)*perPage)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.TransactionListResponse{
		Items:   transport.FromRepoList(transactions),
		Total:   total,
		Page:    page,
		PerPage: perPage,
	})
}

func (h *Handler) AdminList(c *gin.Context) {
	page, perPage := pagination(c)
	transactions, total, err := h.svc.AdminList(c.Request.Context(), perPage, (page-1)*perPage)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.TransactionListResponse{
		Items:   transport.FromRepoList(transactions),
		Total:   total,
		Page:    page,
		PerPage: perPage,
	})
}

func pagination(c *gin.Context) (page, perPage int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	perPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return page, perPage
}
