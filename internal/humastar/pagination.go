package humastar

import "fmt"

// Pager is implemented by response bodies that carry pagination metadata.
// The API link transformer turns these into RFC 8288 Link headers.
type Pager interface {
	PaginationLinks(basePath string) []string
}

// PageBody is an offset/limit page of items.
type PageBody[T any] struct {
	Total  int `json:"total" doc:"Total number of items"`
	Offset int `json:"offset" doc:"Index of the first item on this page"`
	Limit  int `json:"limit" doc:"Page size"`
	Data   []T `json:"data" doc:"Items"`
}

// NewPage wraps one page of items. A nil page serialises as an empty list.
func NewPage[T any](items []T, total, offset, limit int) PageBody[T] {
	if items == nil {
		items = []T{}
	}
	return PageBody[T]{Total: total, Offset: offset, Limit: limit, Data: items}
}

// PaginationLinks returns first, prev, next and last links. prev and next
// are omitted at the ends; nothing is returned without a positive limit.
func (p PageBody[T]) PaginationLinks(basePath string) []string {
	if p.Limit <= 0 {
		return nil
	}
	last := 0
	if p.Total > 0 {
		last = (p.Total - 1) / p.Limit * p.Limit
	}

	rels := []struct {
		name   string
		offset int
		ok     bool
	}{
		{"first", 0, true},
		{"prev", max(p.Offset-p.Limit, 0), p.Offset > 0},
		{"next", p.Offset + p.Limit, p.Offset+p.Limit < p.Total},
		{"last", last, true},
	}

	links := make([]string, 0, len(rels))
	for _, rel := range rels {
		if rel.ok {
			links = append(links, fmt.Sprintf(`<%s?offset=%d&limit=%d>; rel=%q`, basePath, rel.offset, p.Limit, rel.name))
		}
	}
	return links
}
