/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package types

const (
	DefaultSkip     = 0
	DefaultLimit    = 100
	DefaultPageSize = 10
)

// QueryFilter describes a WHERE clause and its argument values.
type QueryFilter struct {
	Schema string
	Args   []interface{}
}

func NewQueryFilter(schema string, args ...interface{}) *QueryFilter {
	return &QueryFilter{schema, args}
}

// ListRequest is an offset window over an id-ordered listing.
type ListRequest struct {
	Skip  int `form:"skip,default=0" json:"skip" binding:"min=0"`
	Limit int `form:"limit,default=100" json:"limit" binding:"min=0"`
}

// NewListRequest returns the default window: skip 0, limit 100.
func NewListRequest() *ListRequest {
	return &ListRequest{Skip: DefaultSkip, Limit: DefaultLimit}
}

func (l *ListRequest) GetSkip() int {
	if l == nil || l.Skip < 0 {
		return DefaultSkip
	}
	return l.Skip
}

func (l *ListRequest) GetLimit() int {
	if l == nil || l.Limit < 0 {
		return DefaultLimit
	}
	return l.Limit
}

// PageRequest describes a 1-based page, an optional filter and ordering.
type PageRequest struct {
	Page     int      `form:"page" json:"page"`
	PageSize int      `form:"page_size" json:"page_size"`
	Orders   []string `form:"order" json:"orders"` // "id ASC", "title DESC"
	filter   *QueryFilter
}

func NewPageRequest(page, pageSize int, filter *QueryFilter, orders ...string) *PageRequest {
	return &PageRequest{Page: page, PageSize: pageSize, Orders: orders, filter: filter}
}

func (p *PageRequest) GetPageSize() int {
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	return p.PageSize
}

func (p *PageRequest) GetPage() int {
	if p.Page < 1 {
		p.Page = 1
	}
	return p.Page
}

func (p *PageRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

func (p *PageRequest) GetFilter() *QueryFilter { return p.filter }

func (p *PageRequest) SetFilter(filter *QueryFilter) *PageRequest {
	p.filter = filter
	return p
}

// Pagination holds one page of items with its metadata.
type Pagination[T any] struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	Total    int  `json:"total"`
	Items    []*T `json:"items"`
}

func NewPagination[T any](page, pageSize int) *Pagination[T] {
	return &Pagination[T]{Page: page, PageSize: pageSize, Items: make([]*T, 0)}
}

// MapPagination converts the items of a page, keeping its metadata.
func MapPagination[T, R any](p *Pagination[T], fn func(*T) *R) *Pagination[R] {
	out := &Pagination[R]{Page: p.Page, PageSize: p.PageSize, Total: p.Total, Items: make([]*R, 0, len(p.Items))}
	for _, item := range p.Items {
		out.Items = append(out.Items, fn(item))
	}
	return out
}
