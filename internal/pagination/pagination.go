package pagination

import (
	"math"
	"net/url"
	"strconv"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// Params is a 1-based page request.
type Params struct {
	Page  int
	Limit int
}

// FromValues reads page and limit from a query string. Missing, malformed
// or non-positive values fall back to the defaults; limit is capped at maxLimit
// when maxLimit > 0.
func FromValues(q url.Values, maxLimit int) Params {
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = DefaultPage
	}

	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 {
		limit = DefaultLimit
	}
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}

	return Params{Page: page, Limit: limit}
}

// Offset is the number of items skipped before this page. It saturates at
// math.MaxInt instead of overflowing for very large pages.
func (p Params) Offset() int {
	if p.Page <= 1 || p.Limit <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Limit
}

// TotalPages is ceil(total / limit).
func (p Params) TotalPages(total int) int {
	if p.Limit <= 0 || total <= 0 {
		return 0
	}
	return (total + p.Limit - 1) / p.Limit
}

// Response wraps a paginated API response.
type Response struct {
	Data       any `json:"data"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

func NewResponse(data any, p Params, total int) Response {
	return Response{
		Data:       data,
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: p.TotalPages(total),
	}
}
