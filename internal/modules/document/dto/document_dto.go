package dto

import "time"

type SignedURLRequest struct {
	Path string `json:"path" binding:"required"`
}

type SignedURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type UploadResponse struct {
	ID       uint   `json:"id"`
	Path     string `json:"path"`
	Category string `json:"category"`
	Size     int64  `json:"size"`
}
