// Package viewer contains the Datastar SSE handlers behind the map page.
package viewer

import (
	"context"
	"net/http"
	"net/url"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-choropleth/internal/api"
	"github.com/joeblew999/plat-choropleth/internal/choropleth"
	"github.com/joeblew999/plat-choropleth/internal/humastar"
	"github.com/joeblew999/plat-choropleth/internal/metrics"
	"github.com/joeblew999/plat-choropleth/internal/service"
	"github.com/joeblew999/plat-choropleth/internal/templates"
)

// DOM targets and events shared with the page.
const (
	StatsSelector = "#statsContainer"
	InfoSelector  = "#propertyRow"

	EventReady   = "regions-ready"
	EventFailed  = "regions-failed"
	EventStyle   = "choropleth-style"
	EventOpacity = "choropleth-opacity"
	EventFit     = "choropleth-fit"
)

// Hover phases sent by the page.
const (
	HoverStart = "start"
	HoverEnd   = "end"
)

// Handler serves the viewer's SSE endpoints.
type Handler struct {
	humastar.Handler
	dataset  *service.DatasetService
	sessions *service.SessionService
}

// NewHandler creates a viewer handler.
func NewHandler(dataset *service.DatasetService, sessions *service.SessionService, renderer *templates.Renderer) *Handler {
	return &Handler{
		Handler:  humastar.Handler{Renderer: renderer},
		dataset:  dataset,
		sessions: sessions,
	}
}

func (h *Handler) RegisterRoutes(a huma.API) {
	huma.Get(a, "/api/v1/viewer/events", h.Events, huma.OperationTags("viewer"))
	huma.Get(a, "/api/v1/viewer/regions", h.Regions, huma.OperationTags("viewer"))
	huma.Post(a, "/api/v1/viewer/select", h.Select, huma.OperationTags("viewer"))
	huma.Post(a, "/api/v1/viewer/opacity", h.Opacity, huma.OperationTags("viewer"))
	huma.Post(a, "/api/v1/viewer/reset", h.Reset, huma.OperationTags("viewer"))
	huma.Post(a, "/api/v1/viewer/borders", h.Borders, huma.OperationTags("viewer"))
	huma.Post(a, "/api/v1/viewer/hover", h.Hover, huma.OperationTags("viewer"), func(o *huma.Operation) {
		o.DefaultStatus = http.StatusNoContent
	})
}

// SessionInput identifies the page by query parameter.
type SessionInput struct {
	Session string `query:"session" required:"true" doc:"Viewer session ID"`
}

// Events waits for the dataset, renders it into the page's view and tells
// the page what to draw.
func (h *Handler) Events(ctx context.Context, input *SessionInput) (*huma.StreamResponse, error) {
	sess, err := h.sessions.Get(input.Session)
	if err != nil {
		return nil, api.Problem(err)
	}

	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			sse := humastar.NewSSE(humaCtx)
			ctx := humaCtx.Context()

			bus := h.dataset.Bus()
			ch := bus.Subscribe()
			defer bus.Unsubscribe(ch)

			// The bus replays a finished load, so this only blocks while loading.
			select {
			case <-ctx.Done():
				return
			case <-ch:
			case <-h.dataset.Done():
			}
			if err := h.sessions.Ensure(sess); err != nil {
				zap.L().Debug("viewer: no regions for session", zap.String("session", sess.ID), zap.Error(err))
				sse.Signals(map[string]any{"loading": false})
				sse.Dispatch(EventFailed, map[string]any{"error": err.Error()})
				return
			}

			sse.Signals(map[string]any{"loading": false})
			sse.Patch(h.Render("stats", sess.View.StatsView()), StatsSelector)
			sse.Dispatch(EventReady, map[string]any{
				"url":     "/api/v1/viewer/regions?session=" + url.QueryEscape(sess.ID),
				"regions": sess.View.Layer().Len(),
			})
		},
	}, nil
}

// RegionOut is one styled region as drawn by the page.
type RegionOut struct {
	ID      string           `json:"id" doc:"Region ID"`
	Tooltip string           `json:"tooltip" doc:"Sticky tooltip text"`
	Order   int              `json:"order" doc:"Draw order"`
	Style   choropleth.Style `json:"style" doc:"Current style"`
	Feature *geojson.Feature `json:"feature" doc:"GeoJSON feature"`
}

// RegionsBody is the rendered layer of one page.
type RegionsBody struct {
	Regions []RegionOut    `json:"regions" doc:"Regions in draw order"`
	Bounds  *[2][2]float64 `json:"bounds,omitempty" doc:"Extent to fit: [[south, west], [north, east]]"`
}

// Regions returns the page's rendered regions with their current styles.
func (h *Handler) Regions(ctx context.Context, input *SessionInput) (*struct{ Body RegionsBody }, error) {
	sess, err := h.sessions.Get(input.Session)
	if err != nil {
		return nil, api.Problem(err)
	}
	if err := h.sessions.Ensure(sess); err != nil {
		return nil, api.Problem(err)
	}

	layer := sess.View.Layer()
	styles := sess.View.Styles()
	body := RegionsBody{Regions: make([]RegionOut, 0, layer.Len())}
	for i, r := range layer.Regions() {
		body.Regions = append(body.Regions, RegionOut{
			ID:      r.ID,
			Tooltip: r.Tooltip,
			Order:   styles[i].Order,
			Style:   styles[i].Style,
			Feature: r.Feature,
		})
	}
	if b, ok := sess.Frame.Fit(); ok {
		body.Bounds = latLngBounds(b)
	}
	return &struct{ Body RegionsBody }{Body: body}, nil
}

// Select shows the attributes of the clicked region.
func (h *Handler) Select(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	sess, signals, err := h.session(input)
	if err != nil {
		return nil, err
	}
	region := signals.String("region")
	if region == "" {
		return nil, huma.Error400BadRequest("region is required")
	}

	rows, _, err := sess.View.Select(region)
	if err != nil {
		return nil, api.Problem(err)
	}
	metrics.InteractionsTotal.WithLabelValues(metrics.KindSelect).Inc()

	return h.Stream(func(sse humastar.SSE) {
		sse.Patch(h.Render("info-rows", rows), InfoSelector)
		sse.Signals(map[string]any{"selected": region})
	}), nil
}

// Opacity applies the slider value to every region of the page.
func (h *Handler) Opacity(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	sess, signals, err := h.session(input)
	if err != nil {
		return nil, err
	}
	opacity, ok := signals.Float("opacity")
	if !ok {
		return nil, huma.Error400BadRequest("opacity must be a number")
	}

	changed := sess.View.SetOpacity(opacity)
	metrics.InteractionsTotal.WithLabelValues(metrics.KindOpacity).Inc()

	return h.Stream(func(sse humastar.SSE) {
		sse.Signals(map[string]any{
			"opacity":      sess.View.Opacity(),
			"opacityLabel": sess.View.OpacityLabel(),
		})
		if changed {
			sse.Dispatch(EventOpacity, map[string]any{"opacity": sess.View.Opacity()})
		}
	}), nil
}

// Reset refits the map to the rendered regions.
func (h *Handler) Reset(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	sess, _, err := h.session(input)
	if err != nil {
		return nil, err
	}
	fitted := sess.View.ResetView()
	metrics.InteractionsTotal.WithLabelValues(metrics.KindReset).Inc()

	return h.Stream(func(sse humastar.SSE) {
		if !fitted {
			return
		}
		if b, ok := sess.Frame.Fit(); ok {
			sse.Dispatch(EventFit, map[string]any{"bounds": latLngBounds(b)})
		}
	}), nil
}

// Borders hides or restores every region's border.
func (h *Handler) Borders(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	sess, _, err := h.session(input)
	if err != nil {
		return nil, err
	}
	toggled := sess.View.ToggleBorders()
	metrics.InteractionsTotal.WithLabelValues(metrics.KindBorders).Inc()

	return h.Stream(func(sse humastar.SSE) {
		if toggled {
			sse.Dispatch(EventStyle, map[string]any{"styles": sess.View.Styles()})
		}
	}), nil
}

// Hover records the pointer entering or leaving a region, keeping the
// session's border weights in step with what the page draws.
func (h *Handler) Hover(ctx context.Context, input *humastar.SignalsInput) (*struct{}, error) {
	sess, signals, err := h.session(input)
	if err != nil {
		return nil, err
	}
	region := signals.String("region")
	if region == "" {
		return nil, huma.Error400BadRequest("region is required")
	}

	switch signals.String("hover") {
	case HoverStart:
		_, err = sess.View.HoverStart(region)
	case HoverEnd:
		_, err = sess.View.HoverEnd(region)
	default:
		return nil, huma.Error400BadRequest(`hover must be "start" or "end"`)
	}
	if err != nil {
		return nil, api.Problem(err)
	}
	metrics.InteractionsTotal.WithLabelValues(metrics.KindHover).Inc()
	return nil, nil
}

func (h *Handler) session(input *humastar.SignalsInput) (*service.Session, humastar.Signals, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, nil, err
	}
	id := signals.String("session")
	if id == "" {
		return nil, nil, huma.Error400BadRequest("session is required")
	}
	sess, err := h.sessions.Get(id)
	if err != nil {
		return nil, nil, api.Problem(err)
	}
	return sess, signals, nil
}

// latLngBounds converts an extent to Leaflet's [[south, west], [north, east]].
func latLngBounds(b orb.Bound) *[2][2]float64 {
	return &[2][2]float64{{b.Min.Lat(), b.Min.Lon()}, {b.Max.Lat(), b.Max.Lon()}}
}
