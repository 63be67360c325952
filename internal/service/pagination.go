package service

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// Pagination 描述分页参数，Page 从 1 开始。
type Pagination struct {
	Page  int
	Limit int
}

// Normalize clamps page to >= 1 and limit to 1..100, defaulting limit to 10.
func (p Pagination) Normalize() Pagination {
	if p.Page <= 0 {
		p.Page = defaultPage
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}

// Offset is the number of rows to skip.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

// PageMeta 汇总分页结果的元信息。
type PageMeta struct {
	TotalCount  int64 `json:"totalCount"`
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	TotalPages  int   `json:"totalPages"`
	HasNext     bool  `json:"hasNext"`
	HasPrevious bool  `json:"hasPrevious"`
}

// NewPageMeta computes TotalPages as ceil(total/limit).
func NewPageMeta(total int64, p Pagination) PageMeta {
	p = p.Normalize()
	pages := int((total + int64(p.Limit) - 1) / int64(p.Limit))
	return PageMeta{
		TotalCount:  total,
		Page:        p.Page,
		Limit:       p.Limit,
		TotalPages:  pages,
		HasNext:     p.Page < pages,
		HasPrevious: p.Page > 1,
	}
}

// Page is a page of items with its metadata.
type Page[T any] struct {
	Data []T      `json:"data"`
	Meta PageMeta `json:"meta"`
}

func newPage[T any](items []T, total int64, p Pagination) *Page[T] {
	if items == nil {
		items = []T{}
	}
	return &Page[T]{Data: items, Meta: NewPageMeta(total, p)}
}
