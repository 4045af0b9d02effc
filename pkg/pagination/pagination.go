package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Params holds pagination parameters extracted from a request.
type Params struct {
	Page     int
	PageSize int
}

// New normalises page and page size: page < 1 becomes 1, a non-positive
// size becomes DefaultPageSize and sizes above MaxPageSize are capped.
func New(page, pageSize int) Params {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return Params{Page: page, PageSize: pageSize}
}

// FromContext extracts pagination parameters from the echo context.
// Both page/page_size and the UI's camel-cased pageSize are accepted.
func FromContext(c echo.Context) Params {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("page_size"))
	if size <= 0 {
		size, _ = strconv.Atoi(c.QueryParam("pageSize"))
	}
	return New(page, size)
}

// Bounds returns the half-open [start, end) window of this page over n items.
func (p Params) Bounds(n int) (start, end int) {
	p = New(p.Page, p.PageSize)
	if n <= 0 || p.Page-1 >= (n+p.PageSize-1)/p.PageSize {
		return n, n
	}
	start = (p.Page - 1) * p.PageSize
	end = start + p.PageSize
	if end > n {
		end = n
	}
	return start, end
}

// TotalPages returns how many pages n items span; zero items is zero pages.
func (p Params) TotalPages(n int) int {
	p = New(p.Page, p.PageSize)
	return (n + p.PageSize - 1) / p.PageSize
}

// HasNext returns true if there are more results after the current page.
func (p Params) HasNext(total int) bool {
	_, end := p.Bounds(total)
	return end < total
}

// HasPrevious returns true if there are results before the current page.
func (p Params) HasPrevious() bool {
	return p.Page > 1
}

// Slice returns the page of items described by p.
func Slice[T any](items []T, p Params) []T {
	start, end := p.Bounds(len(items))
	out := make([]T, end-start)
	copy(out, items[start:end])
	return out
}

// Response wraps a paginated API response.
type Response struct {
	Data       interface{} `json:"data"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
	HasMore    bool        `json:"has_more"`
}

func NewResponse(data interface{}, total int, p Params) *Response {
	p = New(p.Page, p.PageSize)
	return &Response{
		Data:       data,
		Total:      total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: p.TotalPages(total),
		HasMore:    p.HasNext(total),
	}
}

// Page slices items and wraps the result in a Response.
func Page[T any](items []T, p Params) *Response {
	return NewResponse(Slice(items, p), len(items), p)
}
