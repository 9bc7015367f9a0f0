// Package server assembles the choropleth map server: the Huma API, the
// Datastar viewer endpoints, the page itself and its static assets.
package server

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-choropleth/internal/api"
	"github.com/joeblew999/plat-choropleth/internal/api/viewer"
	"github.com/joeblew999/plat-choropleth/internal/choropleth"
	"github.com/joeblew999/plat-choropleth/internal/config"
	"github.com/joeblew999/plat-choropleth/internal/db"
	"github.com/joeblew999/plat-choropleth/internal/metrics"
	"github.com/joeblew999/plat-choropleth/internal/service"
	"github.com/joeblew999/plat-choropleth/internal/templates"
	"github.com/joeblew999/plat-choropleth/web"
)

// Title is shown in the page header.
const Title = "Peta Desa"

// Config holds the server configuration.
type Config struct {
	Host string
	Port string
	// DataFile is the TopoJSON document, a path or an http(s) URL.
	DataFile string
	// WebDir overrides the embedded templates and static files, for editing
	// them without a rebuild.
	WebDir string
	// Catalog enables the in-memory DuckDB region catalog.
	Catalog bool
	// Map is the presentation config. Nil uses config.Default.
	Map *config.Config
	// Client fetches http(s) data files. Nil uses http.DefaultClient.
	Client *http.Client
}

// Server is the choropleth HTTP server.
type Server struct {
	config   Config
	mux      *http.ServeMux
	handler  http.Handler
	humaAPI  huma.API
	services *api.Services
	renderer *templates.Renderer
	assets   fs.FS
}

// New creates a server. Nothing is loaded until Start.
func New(ctx context.Context, cfg Config) (*Server, error) {
	if cfg.Map == nil {
		cfg.Map = config.Default()
	}

	assets := fs.FS(web.FS)
	if cfg.WebDir != "" {
		assets = os.DirFS(cfg.WebDir)
	}
	renderer, err := templates.New(assets, web.TemplatePatterns...)
	if err != nil {
		return nil, eris.Wrap(err, "server: load templates")
	}

	dataset := service.NewDatasetService(service.DatasetConfig{
		Source:  cfg.DataFile,
		Timeout: time.Duration(cfg.Map.Load.TimeoutSecs) * time.Second,
		Client:  cfg.Client,
		Fields:  cfg.Map.PropertyFields(),
		Format:  cfg.Map.Formatter(),
		Bus:     service.NewEventBus(),
	})
	sessions := service.NewSessionService(dataset, service.SessionConfig{
		Palette: cfg.Map.Style.Palette,
		Seed:    cfg.Map.Style.Seed,
		Opacity: cfg.Map.Style.DefaultOpacity,
	})

	services := &api.Services{Dataset: dataset, Sessions: sessions}
	if cfg.Catalog {
		catalog, err := db.Open(ctx, db.Config{})
		if err != nil {
			return nil, eris.Wrap(err, "server: open catalog")
		}
		services.Catalog = catalog
	}

	mux := http.NewServeMux()

	humaConfig := huma.DefaultConfig("plat-choropleth API", api.Version)
	humaConfig.Info.Description = "Village choropleth map: regions, statistics and the Datastar viewer."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, api.LinkTransformer())

	s := &Server{
		config:   cfg,
		mux:      mux,
		humaAPI:  humago.New(mux, humaConfig),
		services: services,
		renderer: renderer,
		assets:   assets,
	}
	s.routes()

	s.handler = cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Datastar-Request"},
		ExposedHeaders: []string{"Link"},
		MaxAge:         300,
	})(accessLog(mux))

	return s, nil
}

// Start begins the background dataset load and, when enabled, fills the
// region catalog once it completes.
func (s *Server) Start(ctx context.Context) {
	s.services.Dataset.Start(ctx)
	if s.services.Catalog == nil {
		return
	}
	go func() {
		if err := api.SyncCatalog(ctx, s.services.Catalog, s.services.Dataset); err != nil && ctx.Err() == nil {
			zap.L().Warn("server: region catalog not loaded", zap.Error(err))
		}
	}()
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// OpenAPI returns the OpenAPI spec.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Services exposes the services behind the handlers.
func (s *Server) Services() *api.Services {
	return s.services
}

// Close closes server resources.
func (s *Server) Close() error {
	return s.services.Catalog.Close()
}

func (s *Server) routes() {
	// Methods named Register* on the handler are registered automatically.
	huma.AutoRegister(s.humaAPI, api.NewAPIHandler(s.services))
	api.NewInfoHandler(s.services).RegisterRoutes(s.humaAPI)
	api.NewDBHandler(s.services.Catalog).RegisterRoutes(s.humaAPI)
	viewer.NewHandler(s.services.Dataset, s.services.Sessions, s.renderer).RegisterRoutes(s.humaAPI)

	s.mux.Handle("/metrics", metrics.Handler())

	if static, err := fs.Sub(s.assets, "static"); err == nil {
		s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	}

	s.mux.HandleFunc("GET /viewer", s.handleViewer)
	s.mux.HandleFunc("GET /{$}", s.handleViewer)
}

// pageData feeds the "viewer" template.
type pageData struct {
	Title        string
	Session      string
	Signals      map[string]any
	OpacityLabel string
	Info         []choropleth.InfoRow
	Client       clientConfig
}

// clientConfig is what the page's script needs to build the Leaflet map.
type clientConfig struct {
	Session   string             `json:"session"`
	Viewport  clientViewport     `json:"viewport"`
	Layers    []config.BaseLayer `json:"layers"`
	Highlight stroke             `json:"highlight"`
	Border    stroke             `json:"border"`
}

// stroke is a partial Leaflet path style; fill stays untouched on hover.
type stroke struct {
	Weight float64 `json:"weight"`
	Color  string  `json:"color"`
}

type clientViewport struct {
	Center    [2]float64 `json:"center"`
	Zoom      int        `json:"zoom"`
	MinZoom   int        `json:"minZoom"`
	MaxBounds [4]float64 `json:"maxBounds"`
}

// handleViewer opens a session and serves the map page bound to it.
func (s *Server) handleViewer(w http.ResponseWriter, r *http.Request) {
	sess := s.services.Sessions.Create()
	view := sess.View

	info, ok := view.Selected()
	if !ok {
		info = view.Project(nil)
	}

	m := s.config.Map
	data := pageData{
		Title:        Title,
		Session:      sess.ID,
		OpacityLabel: view.OpacityLabel(),
		Info:         info,
		Signals: map[string]any{
			"session":      sess.ID,
			"loading":      !sess.Loaded(),
			"opacity":      view.Opacity(),
			"opacityLabel": view.OpacityLabel(),
			"region":       "",
			"selected":     "",
		},
		Client: clientConfig{
			Session: sess.ID,
			Viewport: clientViewport{
				Center:    m.Viewport.Center,
				Zoom:      m.Viewport.Zoom,
				MinZoom:   m.Viewport.MinZoom,
				MaxBounds: m.Viewport.MaxBounds,
			},
			Layers:    m.Layers,
			Highlight: stroke{Weight: choropleth.HighlightWeight, Color: choropleth.HighlightColor},
			Border:    stroke{Weight: choropleth.BorderWeight, Color: choropleth.BorderColor},
		},
	}

	if s.config.WebDir != "" {
		if err := s.renderer.Reload(); err != nil {
			zap.L().Warn("server: reload templates", zap.Error(err))
		}
	}
	html, err := s.renderer.Render("viewer", data)
	if err != nil {
		zap.L().Error("server: render viewer", zap.Error(err))
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write([]byte(html))
}
