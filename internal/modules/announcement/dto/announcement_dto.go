package dto

import (
	"anoa.com/scholarhub/internal/entity"
	commonDto "anoa.com/scholarhub/pkg/dto"
)

type CreateAnnouncementRequest struct {
	Title    string `json:"title" binding:"required,max=200"`
	Body     string `json:"body" binding:"required"`
	Audience string `json:"audience" binding:"omitempty,oneof=all applicants scholars"`
}

type ListAnnouncementsFilter struct {
	commonDto.PageFilter
}

type PaginatedAnnouncements struct {
	Data []entity.Announcement    `json:"data"`
	Meta commonDto.PaginationMeta `json:"meta"`
}
