package handler

import (
	"net/http"

	"anoa.com/scholarhub/internal/modules/document/dto"
	document "anoa.com/scholarhub/internal/modules/document/service"
	"anoa.com/scholarhub/pkg/response"
	"github.com/gin-gonic/gin"
)

type DocumentHandler struct {
	service document.DocumentService
}

func NewDocumentHandler(service document.DocumentService) *DocumentHandler {
	return &DocumentHandler{service: service}
}

func (h *DocumentHandler) Upload(c *gin.Context) {
	actor, err := response.GetActor(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open file"})
		return
	}
	defer file.Close()

	doc, err := h.service.Upload(c.Request.Context(), actor, document.Upload{
		Category:    c.PostForm("category"),
		FileName:    fileHeader.Filename,
		Size:        fileHeader.Size,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "file uploaded",
		"data": dto.UploadResponse{
			ID:       doc.ID,
			Path:     doc.Path,
			Category: doc.Category,
			Size:     doc.Size,
		},
	})
}

func (h *DocumentHandler) SignedURL(c *gin.Context) {
	actor, err := response.GetActor(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.SignedURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	link, err := h.service.SignedURL(c.Request.Context(), actor, req.Path)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": link})
}

func (h *DocumentHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}

	target, err := h.service.Resolve(c.Request.Context(), token)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Redirect(http.StatusFound, target)
}
