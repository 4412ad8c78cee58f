package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"marketplace_backend/internal/offers/domain"
	"marketplace_backend/internal/offers/repository"
	"marketplace_backend/internal/offers/service"
	"marketplace_backend/internal/offers/transport"
	"marketplace_backend/platform/httpkit"
	"marketplace_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for offers.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new offers handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the offer routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.PATCH("/:id/accept", h.Accept)
	rg.PATCH("/:id/decline", h.Decline)
	rg.PATCH("/:id/counter", h.Counter)
}

// RegisterProductRoutes registers the per-product offer history route.
func (h *Handler) RegisterProductRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/offers", h.ProductOffers)
}

// RegisterAdminRoutes registers the admin offer listing.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.AdminList)
}

func (h *Handler) Create(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	var req transport.CreateOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	offer, err := h.svc.Create(c.Request.Context(), service.CreateOfferInput{
		BuyerID:      id.UserID(),
		ProductID:    req.ProductID,
		OfferedCents: req.OfferedCents,
		Message:      req.Message,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, transport.FromDomain(offer))
}

func (h *Handler) Accept(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	offerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	result, err := h.svc.Accept(c.Request.Context(), id.UserID(), offerID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.AcceptOfferResponse{
		Offer:           transport.FromDomain(result.Offer),
		TransactionID:   result.TransactionID,
		PaymentRequired: result.PaymentRequired,
	})
}

func (h *Handler) Decline(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	offerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	offer, err := h.svc.Decline(c.Request.Context(), id.UserID(), offerID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.FromDomain(offer))
}

func (h *Handler) Counter(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	offerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.CounterOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	offer, err := h.svc.Counter(c.Request.Context(), service.CounterOfferInput{
		SellerID:     id.UserID(),
		OfferID:      offerID,
		CounterCents: req.CounterCents,
		Message:      req.Message,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.FromDomain(offer))
}

func (h *Handler) List(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	page, perPage := pagination(c)
	params := repository.ListParams{
		UserID:   id.UserID(),
		AsBuyer:  boolQuery(c, "as_buyer"),
		AsSeller: boolQuery(c, "as_seller"),
		Limit:    perPage,
		Offset:   (page - 1) * perPage,
	}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := domain.OfferStatus(raw)
		params.Status = &status
	}

	offers, total, err := h.svc.List(c.Request.Context(), params)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.OfferListResponse{
		Items:   transport.FromDomainList(offers),
		Total:   total,
		Page:    page,
		PerPage: perPage,
	})
}

func (h *Handler) ProductOffers(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	offers, err := h.svc.ProductOffers(c.Request.Context(), id.UserID(), productID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.FromDomainList(offers))
}

func (h *Handler) AdminList(c *gin.Context) {
	page, perPage := pagination(c)

	offers, total, err := h.svc.AdminList(c.Request.Context(), perPage, (page-1)*perPage)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.OfferListResponse{
		Items:   transport.FromDomainList(offers),
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

func boolQuery(c *gin.Context, key string) bool {
	return strings.EqualFold(c.Query(key), "true")
}
