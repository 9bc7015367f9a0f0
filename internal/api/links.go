package api

import (
	"fmt"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-choropleth/internal/humastar"
)

// links maps operation paths to their RFC 8288 Link header values.
var links = map[string][]string{
	"/health": {
		`</api/v1/info>; rel="info"`,
		`</api/v1/dataset>; rel="dataset"`,
		`</api/v1/regions>; rel="regions"`,
		`</api/v1/stats>; rel="stats"`,
	},
	"/api/v1/info": {
		`</health>; rel="health"`,
		`</api/v1/dataset>; rel="dataset"`,
	},
	"/api/v1/dataset": {
		`</api/v1/regions>; rel="regions"`,
		`</api/v1/stats>; rel="stats"`,
	},
	"/api/v1/regions": {
		`</api/v1/stats>; rel="stats"`,
		`</api/v1/dataset>; rel="up"`,
	},
	"/api/v1/regions/{id}": {
		`</api/v1/regions>; rel="collection"`,
	},
	"/api/v1/stats": {
		`</api/v1/regions>; rel="regions"`,
	},
	"/api/v1/tables": {
		`</api/v1/query>; rel="search"`,
	},
}

// LinkTransformer returns a Huma Transformer that injects RFC 8288 Link
// headers, including pagination links for paged bodies.
func LinkTransformer() huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil {
			return v, nil
		}

		for _, link := range links[op.Path] {
			ctx.AppendHeader("Link", link)
		}

		// Item endpoints get a self link
		if strings.Contains(op.Path, "{") {
			ctx.AppendHeader("Link", fmt.Sprintf(`<%s>; rel="self"`, ctx.URL().Path))
		}

		if p, ok := v.(humastar.Pager); ok && strings.HasPrefix(status, "2") {
			for _, link := range p.PaginationLinks(ctx.URL().Path) {
				ctx.AppendHeader("Link", link)
			}
		}

		return v, nil
	}
}
