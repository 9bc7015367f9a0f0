package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
)

type InfoHandler struct {
	svc *Services
}

func NewInfoHandler(svc *Services) *InfoHandler {
	return &InfoHandler{svc: svc}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name     string   `json:"name" doc:"Service name"`
	Version  string   `json:"version" doc:"Service version"`
	Source   string   `json:"source" doc:"Topology document path or URL"`
	DB       bool     `json:"db" doc:"Whether the DuckDB region catalog is available"`
	Sessions int      `json:"sessions" doc:"Open viewer sessions"`
	Features []string `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	features := []string{"topojson", "choropleth", "datastar"}
	if h.svc.Catalog != nil {
		features = append(features, "duckdb")
	}
	sessions := 0
	if h.svc.Sessions != nil {
		sessions = h.svc.Sessions.Len()
	}
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:     "plat-choropleth",
		Version:  Version,
		Source:   h.svc.Dataset.Info().Source,
		DB:       h.svc.Catalog != nil,
		Sessions: sessions,
		Features: features,
	}}, nil
}
