package handler

import (
	"net/http"

	"anoa.com/scholarhub/internal/modules/setting/dto"
	setting "anoa.com/scholarhub/internal/modules/setting/service"
	"anoa.com/scholarhub/pkg/response"
	"github.com/gin-gonic/gin"
)

type SettingHandler struct {
	service setting.SettingService
}

func NewSettingHandler(service setting.SettingService) *SettingHandler {
	return &SettingHandler{service: service}
}

func (h *SettingHandler) Get(c *gin.Context) {
	settings, err := h.service.Get(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": settings})
}

func (h *SettingHandler) Update(c *gin.Context) {
	actor, err := response.GetActor(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	settings, err := h.service.Update(c.Request.Context(), actor, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "settings updated", "data": settings})
}
