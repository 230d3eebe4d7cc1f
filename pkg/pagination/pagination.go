// Package pagination extracts page parameters from requests and wraps
// paged API responses.
package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Params holds 1-based pagination parameters extracted from a request.
type Params struct {
	Page     int
	PageSize int
}

// FromContext extracts pagination parameters from the echo context.
// Out-of-range values fall back to defaults rather than erroring.
func FromContext(c echo.Context) Params {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}

	size, _ := strconv.Atoi(c.QueryParam("page_size"))
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	return Params{Page: page, PageSize: size}
}

// Response wraps a paginated API response.
type Response struct {
	Data     interface{} `json:"data"`
	Total    int         `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	HasMore  bool        `json:"has_more"`
}

func NewResponse(data interface{}, total int, p Params) *Response {
	return &Response{
		Data:     data,
		Total:    total,
		Page:     p.Page,
		PageSize: p.PageSize,
		HasMore:  p.Page*p.PageSize < total,
	}
}

// HasNext reports whether results exist after the current page.
func (p Params) HasNext(total int) bool {
	return p.Page*p.PageSize < total
}

// Offset returns the number of items preceding the current page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.PageSize
}
