package handler

import (
	"net/http"

	conversation "anoa.com/scholarhub/internal/modules/conversation/service"
	"anoa.com/scholarhub/pkg/response"
	"github.com/gin-gonic/gin"
)

type ConversationHandler struct {
	service conversation.ConversationService
}

func NewConversationHandler(service conversation.ConversationService) *ConversationHandler {
	return &ConversationHandler{service: service}
}

func (h *ConversationHandler) StartDirect(c *gin.Context) {
	actor, err := response.GetActor(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	conv, err := h.service.StartDirect(c.Request.Context(), actor)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": conv})
}

func (h *ConversationHandler) EnsureCohortGroup(c *gin.Context) {
	actor, err := response.GetActor(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	conv, err := h.service.EnsureCohortGroup(c.Request.Context(), actor)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": conv})
}

func (h *ConversationHandler) ListMine(c *gin.Context) {
	actor, err := response.GetActor(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	convs, err := h.service.ListMine(c.Request.Context(), actor)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": convs})
}
