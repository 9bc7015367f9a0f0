package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-choropleth/internal/choropleth"
	"github.com/joeblew999/plat-choropleth/internal/db"
	"github.com/joeblew999/plat-choropleth/internal/service"
)

// DBHandler handles the region catalog endpoints.
type DBHandler struct {
	catalog *db.Catalog
}

// NewDBHandler creates a new database handler. catalog may be nil.
func NewDBHandler(catalog *db.Catalog) *DBHandler {
	return &DBHandler{catalog: catalog}
}

// RegisterRoutes registers database routes with Huma.
func (h *DBHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/tables", h.ListTables, huma.OperationTags("catalog"))
	huma.Post(api, "/api/v1/query", h.Query, huma.OperationTags("catalog"))
}

// TablesBody is the response for listing tables.
type TablesBody struct {
	Tables []string `json:"tables" doc:"List of table names"`
}

// ListTables returns all DuckDB tables.
func (h *DBHandler) ListTables(ctx context.Context, input *struct{}) (*struct{ Body TablesBody }, error) {
	if h.catalog == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}
	tables, err := h.catalog.Tables(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list tables", err)
	}
	return &struct{ Body TablesBody }{Body: TablesBody{Tables: tables}}, nil
}

// QueryInput is the input for SQL queries.
type QueryInput struct {
	Body struct {
		Query string `json:"query" required:"true" minLength:"1" doc:"SQL query to execute" example:"SELECT regency, count(*) FROM regions GROUP BY 1"`
	}
}

// QueryBody is the response for SQL queries.
type QueryBody struct {
	Columns []string         `json:"columns" doc:"Column names"`
	Rows    []map[string]any `json:"rows" doc:"Query results"`
	Count   int              `json:"count" doc:"Number of rows returned"`
}

// Query executes a SQL query against DuckDB.
func (h *DBHandler) Query(ctx context.Context, input *QueryInput) (*struct{ Body QueryBody }, error) {
	if h.catalog == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}
	res, err := h.catalog.Query(ctx, input.Body.Query)
	if err != nil {
		return nil, huma.Error400BadRequest("Query failed: " + eris.Cause(err).Error())
	}
	return &struct{ Body QueryBody }{Body: QueryBody{
		Columns: res.Columns,
		Rows:    res.Rows,
		Count:   len(res.Rows),
	}}, nil
}

// SyncCatalog fills the catalog's regions table once the dataset is ready.
func SyncCatalog(ctx context.Context, catalog *db.Catalog, ds *service.DatasetService) error {
	if _, err := ds.Wait(ctx); err != nil {
		return err
	}
	summaries, _, err := ds.Regions(0, 0)
	if err != nil {
		return err
	}
	rows := make([]db.Region, len(summaries))
	for i, s := range summaries {
		rows[i] = db.Region{
			ID:       s.ID,
			Name:     orEmpty(s.Name),
			District: orEmpty(s.District),
			Regency:  orEmpty(s.Regency),
			Area:     s.Area,
			HasArea:  s.AreaText != choropleth.Placeholder,
		}
	}
	if err := catalog.LoadRegions(ctx, rows); err != nil {
		return err
	}
	zap.L().Info("api: region catalog loaded", zap.Int("regions", len(rows)))
	return nil
}

func orEmpty(s string) string {
	if s == choropleth.Placeholder {
		return ""
	}
	return s
}
