package entity

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// Pagination is the pagination block of a list response.
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}

// DefaultPagination is the state before the first list call.
func DefaultPagination() Pagination {
	return Pagination{Page: DefaultPage, Limit: DefaultLimit}
}

// Normalize fills zero fields the way an absent block would.
func (p Pagination) Normalize() Pagination {
	if p.Page <= 0 {
		p.Page = DefaultPage
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	return p
}

// ListResponse is the {data, pagination} envelope.
type ListResponse[T any] struct {
	Data       []T         `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// SortOrder is asc or desc.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ListParams selects one page of a list.
type ListParams struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder SortOrder
	// Filters are sent verbatim; empty values are dropped.
	Filters map[string]string
}

// Query renders the params as a query string. Sorting defaults to
// created_at descending.
func (p ListParams) Query() url.Values {
	q := url.Values{}
	page, limit := p.Page, p.Limit
	if page <= 0 {
		page = DefaultPage
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))

	sortBy := strings.TrimSpace(p.SortBy)
	if sortBy == "" {
		sortBy = "created_at"
	}
	order := p.SortOrder
	if order != SortAsc {
		order = SortDesc
	}
	q.Set("sort_by", sortBy)
	q.Set("sort_order", string(order))

	for k, v := range p.Filters {
		if v = strings.TrimSpace(v); v != "" && strings.TrimSpace(k) != "" {
			q.Set(k, v)
		}
	}
	return q
}
