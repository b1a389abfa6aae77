package handler

import (
	"net/http"

	"anoa.com/scholarhub/internal/modules/interview/dto"
	interview "anoa.com/scholarhub/internal/modules/interview/service"
	"anoa.com/scholarhub/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type InterviewHandler struct {
	service interview.InterviewService
}

func NewInterviewHandler(service interview.InterviewService) *InterviewHandler {
	return &InterviewHandler{service: service}
}

func (h *InterviewHandler) CreateBatch(c *gin.Context) {
	actor, err := response.GetActor(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	result, err := h.service.CreateBatch(c.Request.Context(), actor, req)
	if err != nil {
		if result != nil {
			// batch exists even though assignment failed
			c.Header("Location", "/api/director/interview-slots/"+result.BatchID.String())
		}
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "interview batch created", "data": result})
}

func (h *InterviewHandler) Assign(c *gin.Context) {
	actor, err := response.GetActor(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	batchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch id"})
		return
	}

	var req dto.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	result, err := h.service.Assign(c.Request.Context(), actor, batchID, req.ApplicationIDs)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "applications assigned", "data": result})
}

func (h *InterviewHandler) ListSlots(c *gin.Context) {
	actor, err := response.GetActor(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	slots, err := h.service.ListSlots(c.Request.Context(), actor)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": slots})
}

func (h *InterviewHandler) MySlot(c *gin.Context) {
	actor, err := response.GetActor(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	slot, err := h.service.MySlot(c.Request.Context(), actor)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": slot})
}
