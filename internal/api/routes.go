// Package api defines the Huma API routes and handlers.
package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-choropleth/internal/choropleth"
	"github.com/joeblew999/plat-choropleth/internal/db"
	"github.com/joeblew999/plat-choropleth/internal/humastar"
	"github.com/joeblew999/plat-choropleth/internal/service"
)

// Version is reported by /health and /api/v1/info.
const Version = "0.1.0"

// Services holds the service dependencies for API handlers.
type Services struct {
	Dataset  *service.DatasetService
	Sessions *service.SessionService
	// Catalog is nil when the DuckDB catalog is disabled.
	Catalog *db.Catalog
}

// Types

type RegionIDInput struct {
	ID string `path:"id" doc:"Region ID (feature index)" example:"0"`
}

type PageInput struct {
	Offset int `query:"offset" minimum:"0" default:"0" doc:"Index of the first region"`
	Limit  int `query:"limit" minimum:"1" maximum:"1000" default:"50" doc:"Page size"`
}

type HealthBody struct {
	Status  string        `json:"status" doc:"Health status" example:"ok"`
	Version string        `json:"version" doc:"API version" example:"0.1.0"`
	Dataset service.State `json:"dataset" doc:"Dataset load state" example:"ready"`
}

type RegionBody struct {
	ID      string               `json:"id" doc:"Region ID" example:"0"`
	Tooltip string               `json:"tooltip" doc:"Tooltip label" example:"Bambu"`
	Rows    []choropleth.InfoRow `json:"rows" doc:"Info panel rows in display order"`
	Bounds  *[2][2]float64       `json:"bounds,omitempty" doc:"[[south, west], [north, east]]"`
}

type StatsBody struct {
	Count     int                  `json:"count" doc:"Number of regions" example:"650"`
	TotalArea float64              `json:"totalArea" doc:"Sum of region areas" example:"16787.24"`
	Display   choropleth.StatsView `json:"display" doc:"Locale-formatted values"`
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterDataset registers dataset, region and statistics routes.
func (h *APIHandler) RegisterDataset(api huma.API) {
	huma.Get(api, "/api/v1/dataset", h.GetDataset, huma.OperationTags("dataset"))
	huma.Get(api, "/api/v1/regions", h.GetRegions, huma.OperationTags("regions"))
	huma.Get(api, "/api/v1/regions/{id}", h.GetRegion, huma.OperationTags("regions"))
	huma.Get(api, "/api/v1/stats", h.GetStats, huma.OperationTags("regions"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{
		Status:  "ok",
		Version: Version,
		Dataset: h.svc.Dataset.Info().State,
	}}, nil
}

func (h *APIHandler) GetDataset(ctx context.Context, input *struct{}) (*struct{ Body service.DatasetInfo }, error) {
	return &struct{ Body service.DatasetInfo }{Body: h.svc.Dataset.Info()}, nil
}

func (h *APIHandler) GetRegions(ctx context.Context, input *PageInput) (*struct {
	Body humastar.PageBody[service.RegionSummary]
}, error) {
	regions, total, err := h.svc.Dataset.Regions(input.Offset, input.Limit)
	if err != nil {
		return nil, Problem(err)
	}
	return &struct {
		Body humastar.PageBody[service.RegionSummary]
	}{Body: humastar.NewPage(regions, total, input.Offset, input.Limit)}, nil
}

func (h *APIHandler) GetRegion(ctx context.Context, input *RegionIDInput) (*struct{ Body RegionBody }, error) {
	f, err := h.svc.Dataset.Feature(input.ID)
	if err != nil {
		return nil, Problem(err)
	}

	fields := h.svc.Dataset.Fields()
	tooltip, ok := fields.DisplayName(f.Properties)
	if !ok {
		tooltip = choropleth.TooltipFallback
	}
	body := RegionBody{
		ID:      input.ID,
		Tooltip: tooltip,
		Rows:    choropleth.Projector{Fields: fields, Format: h.svc.Dataset.Format()}.Project(f.Properties),
	}
	if f.Geometry != nil {
		b := f.Geometry.Bound()
		body.Bounds = &[2][2]float64{{b.Min.Lat(), b.Min.Lon()}, {b.Max.Lat(), b.Max.Lon()}}
	}
	return &struct{ Body RegionBody }{Body: body}, nil
}

func (h *APIHandler) GetStats(ctx context.Context, input *struct{}) (*struct{ Body StatsBody }, error) {
	stats, err := h.svc.Dataset.Stats()
	if err != nil {
		return nil, Problem(err)
	}
	return &struct{ Body StatsBody }{Body: StatsBody{
		Count:     stats.Count,
		TotalArea: stats.TotalArea,
		Display:   h.svc.Dataset.Format().Stats(stats),
	}}, nil
}
