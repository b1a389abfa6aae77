package dto

import "math"

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

type PageFilter struct {
	Page  int `form:"page" binding:"omitempty,min=1"`
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// Normalize fills in defaults and returns the row offset.
func (f *PageFilter) Normalize() int {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > MaxPageLimit {
		f.Limit = DefaultPageLimit
	}
	return (f.Page - 1) * f.Limit
}

type PaginationMeta struct {
	CurrentPage int   `json:"current_page"`
	TotalPages  int   `json:"total_pages"`
	TotalItems  int64 `json:"total_items"`
	Limit       int   `json:"limit"`
}

func NewPaginationMeta(f PageFilter, total int64) PaginationMeta {
	return PaginationMeta{
		CurrentPage: f.Page,
		TotalPages:  int(math.Ceil(float64(total) / float64(f.Limit))),
		TotalItems:  total,
		Limit:       f.Limit,
	}
}
