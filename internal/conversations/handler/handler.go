package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"marketplace_backend/internal/conversations/service"
	"marketplace_backend/internal/conversations/transport"
	"marketplace_backend/platform/httpkit"
	"marketplace_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for conversations.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new conversations handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the conversation routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/:id", h.GetByID)
	rg.GET("/:id/messages", h.Messages)
	rg.POST("/:id/messages", h.Send)
	rg.POST("/:id/read", h.MarkRead)
}

func (h *Handler) List(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	page, perPage := pagination(c)
	conversations, total, err := h.svc.List(c.Request.Context(), id.UserID(), perPage, (page-1)*perPage)
	if httpkit.HandleError(c, err) {
		return
	}

	items := make([]transport.ConversationResponse, 0, len(conversations))
	for _, conversation := range conversations {
		items = append(items, transport.FromConversation(conversation))
	}

	httpkit.OK(c, transport.ConversationListResponse{
		Items:   items,
		Total:   total,
		Page:    page,
		PerPage: perPage,
	})
}

func (h *Handler) GetByID(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	conversation, err := h.svc.Get(c.Request.Context(), id.UserID(), conversationID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.FromConversation(conversation))
}

func (h *Handler) Messages(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	page, perPage := pagination(c)
	messages, err := h.svc.Messages(c.Request.Context(), id.UserID(), conversationID, perPage, (page-1)*perPage)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.FromMessages(messages))
}

func (h *Handler) Send(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	message, err := h.svc.Send(c.Request.Context(), id.UserID(), conversationID, req.Body)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, transport.FromMessage(message))
}

func (h *Handler) MarkRead(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	if err := h.svc.MarkRead(c.Request.Context(), id.UserID(), conversationID); httpkit.HandleError(c, err) {
		return
	}

	c.Status(http.StatusNoContent)
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
