package utils

import (
	"strconv"

	"github.com/plumehq/plume/config"
)

// Pagination describes one page of a listing. Every listing view (global,
// group, profile, follow feed) shares this shape.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// ParsePagination interprets page/page_size query values. A missing or
// non-numeric page defaults to 1; page_size defaults to the configured
// PostsPerPage and is capped at 100.
func ParsePagination(pageStr, sizeStr string) (int, int) {
	page := 1
	pageSize := config.Get().PostsPerPage
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 100 {
		pageSize = s
	}
	return page, pageSize
}

// NewPagination computes page metadata for a listing of total items. A page
// past the end keeps its requested number and reports no next page; the
// caller gets an empty item slice from the offset query, not an error.
func NewPagination(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1 && total > 0,
	}
}

// Offset returns the row offset for this page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}
