package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const villages = `{
  "type": "Topology",
  "arcs": [
    [[1,0],[1,1]],
    [[1,1],[0,1],[0,0],[1,0]],
    [[1,0],[2,0],[2,1],[1,1]]
  ],
  "objects": {
    "desa": {
      "type": "GeometryCollection",
      "geometries": [
        {"type": "Polygon", "arcs": [[0, 1]], "properties": {"NAMOBJ": "Bambu", "WADMKC": "Mamuju", "WADMKK": "Mamuju", "LUASWH": "1.25"}},
        {"type": "Polygon", "arcs": [[2, -1]], "properties": {"WADMKC": "Tapalang", "ShapeArea": "3.00"}}
      ]
    }
  }
}`

func newTestServer(t *testing.T, catalog bool) *Server {
	t.Helper()
	path := filepath.Join(t.TempDir(), "desa.json")
	require.NoError(t, os.WriteFile(path, []byte(villages), 0o644))

	s, err := New(context.Background(), Config{
		Host:     "localhost",
		Port:     "8086",
		DataFile: path,
		Catalog:  catalog,
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func loaded(t *testing.T) *Server {
	t.Helper()
	s := newTestServer(t, false)
	require.NoError(t, s.Services().Dataset.Load(context.Background()))
	return s
}

func do(s *Server, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestPageOpensSession(t *testing.T) {
	s := loaded(t)

	for _, path := range []string{"/", "/viewer"} {
		w := do(s, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, w.Code, path)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/html")

		body := w.Body.String()
		for _, id := range []string{"loadingIndicator", "opacitySlider", "opacityVal", "resetView", "toggleBorders", "propertyRow", "statsContainer"} {
			assert.Contains(t, body, `id="`+id+`"`)
		}
		assert.Contains(t, body, "70%")
		assert.Contains(t, body, "Satelit")
		// Every slider input is posted as it happens.
		assert.Contains(t, body, `data-on:input="@post('/api/v1/viewer/opacity')"`)
		assert.Contains(t, body, `"session":"`)
	}
	assert.Equal(t, 2, s.Services().Sessions.Len())

	assert.Equal(t, http.StatusNotFound, do(s, http.MethodGet, "/elsewhere", "").Code)
}

func TestHealthAndDataset(t *testing.T) {
	s := newTestServer(t, false)

	var health struct {
		Status  string `json:"status"`
		Dataset string `json:"dataset"`
	}
	w := do(s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &health)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "loading", health.Dataset)
	assert.Contains(t, w.Header().Values("Link"), `</api/v1/stats>; rel="stats"`)

	require.NoError(t, s.Services().Dataset.Load(context.Background()))

	var info struct {
		State   string `json:"state"`
		Object  string `json:"object"`
		Regions int    `json:"regions"`
	}
	w = do(s, http.MethodGet, "/api/v1/dataset", "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &info)
	assert.Equal(t, "ready", info.State)
	assert.Equal(t, "desa", info.Object)
	assert.Equal(t, 2, info.Regions)
}

func TestNotReady(t *testing.T) {
	s := newTestServer(t, false)

	for _, path := range []string{"/api/v1/stats", "/api/v1/regions", "/api/v1/regions/0"} {
		assert.Equal(t, http.StatusServiceUnavailable, do(s, http.MethodGet, path, "").Code, path)
	}
}

func TestRegions(t *testing.T) {
	s := loaded(t)

	var page struct {
		Total int `json:"total"`
		Data  []struct {
			ID       string `json:"id"`
			Name     string `json:"name"`
			District string `json:"district"`
		} `json:"data"`
	}
	w := do(s, http.MethodGet, "/api/v1/regions?limit=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &page)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Bambu", page.Data[0].Name)
	assert.Contains(t, strings.Join(w.Header().Values("Link"), ","), `rel="next"`)
}

func TestRegionByID(t *testing.T) {
	s := loaded(t)

	var region struct {
		Tooltip string `json:"tooltip"`
		Rows    []struct {
			Label string `json:"label"`
			Value string `json:"value"`
		} `json:"rows"`
		Bounds *[2][2]float64 `json:"bounds"`
	}
	w := do(s, http.MethodGet, "/api/v1/regions/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &region)
	assert.Equal(t, "Desa", region.Tooltip)
	require.Len(t, region.Rows, 4)
	assert.Equal(t, "-", region.Rows[0].Value)
	assert.Equal(t, "Tapalang", region.Rows[1].Value)
	assert.Equal(t, "-", region.Rows[2].Value)
	require.NotNil(t, region.Bounds)
	assert.Contains(t, w.Header().Values("Link"), `</api/v1/regions/1>; rel="self"`)

	for _, id := range []string{"2", "-1", "abc", "01"} {
		assert.Equal(t, http.StatusNotFound, do(s, http.MethodGet, "/api/v1/regions/"+id, "").Code, id)
	}
}

func TestStats(t *testing.T) {
	s := loaded(t)

	var stats struct {
		Count     int     `json:"count"`
		TotalArea float64 `json:"totalArea"`
		Display   struct {
			Count     string `json:"count"`
			TotalArea string `json:"totalArea"`
		} `json:"display"`
	}
	w := do(s, http.MethodGet, "/api/v1/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &stats)
	assert.Equal(t, 2, stats.Count)
	assert.InDelta(t, 4.25, stats.TotalArea, 1e-9)
	assert.Equal(t, "2", stats.Display.Count)
	assert.Equal(t, "4,3 km²", stats.Display.TotalArea)
}

func TestViewerEvents(t *testing.T) {
	s := loaded(t)
	sess := s.Services().Sessions.Create()

	w := do(s, http.MethodGet, "/api/v1/viewer/events?session="+sess.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/event-stream")

	body := w.Body.String()
	assert.Contains(t, body, `"loading":false`)
	assert.Contains(t, body, "Total Desa")
	assert.Contains(t, body, "4,3 km²")
	assert.Contains(t, body, "regions-ready")

	assert.Equal(t, http.StatusNotFound, do(s, http.MethodGet, "/api/v1/viewer/events?session=nope", "").Code)
}

func TestViewerEventsWaitForLoad(t *testing.T) {
	s := newTestServer(t, false)
	sess := s.Services().Sessions.Create()
	assert.False(t, sess.Loaded())

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- do(s, http.MethodGet, "/api/v1/viewer/events?session="+sess.ID, "")
	}()
	require.Eventually(t, func() bool {
		return s.Services().Dataset.Bus().Subscribers() == 1
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, s.Services().Dataset.Load(context.Background()))

	select {
	case w := <-done:
		assert.Contains(t, w.Body.String(), "regions-ready")
		assert.True(t, sess.Loaded())
	case <-time.After(5 * time.Second):
		t.Fatal("events stream did not finish after load")
	}
	assert.Zero(t, s.Services().Dataset.Bus().Subscribers())
}

func TestViewerEventsLoadFailed(t *testing.T) {
	s, err := New(context.Background(), Config{DataFile: filepath.Join(t.TempDir(), "missing.json")})
	require.NoError(t, err)
	require.Error(t, s.Services().Dataset.Load(context.Background()))
	sess := s.Services().Sessions.Create()

	w := do(s, http.MethodGet, "/api/v1/viewer/events?session="+sess.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `"loading":false`)
	assert.Contains(t, body, "regions-failed")
	assert.NotContains(t, body, "regions-ready")
}

func TestViewerRegions(t *testing.T) {
	s := loaded(t)
	sess := s.Services().Sessions.Create()

	var out struct {
		Regions []struct {
			ID      string `json:"id"`
			Tooltip string `json:"tooltip"`
			Style   struct {
				FillColor   string  `json:"fillColor"`
				Weight      float64 `json:"weight"`
				FillOpacity float64 `json:"fillOpacity"`
			} `json:"style"`
		} `json:"regions"`
		Bounds *[2][2]float64 `json:"bounds"`
	}
	w := do(s, http.MethodGet, "/api/v1/viewer/regions?session="+sess.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &out)

	require.Len(t, out.Regions, 2)
	assert.Equal(t, "Bambu", out.Regions[0].Tooltip)
	assert.Equal(t, "Desa", out.Regions[1].Tooltip)
	for _, r := range out.Regions {
		assert.NotEmpty(t, r.Style.FillColor)
		assert.Equal(t, 1.2, r.Style.Weight)
		assert.Equal(t, 0.7, r.Style.FillOpacity)
	}
	require.NotNil(t, out.Bounds)
	assert.Equal(t, [2][2]float64{{0, 0}, {1, 2}}, *out.Bounds)
}

func TestViewerInteractions(t *testing.T) {
	s := loaded(t)
	sess := s.Services().Sessions.Create()
	signals := func(extra string) string {
		return `{"session":"` + sess.ID + `"` + extra + `}`
	}

	t.Run("select", func(t *testing.T) {
		w := do(s, http.MethodPost, "/api/v1/viewer/select", signals(`,"region":"0"`))
		require.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, "#propertyRow")
		assert.Contains(t, body, "Bambu")
		assert.Contains(t, body, "Mamuju")
		assert.Contains(t, body, `"selected":"0"`)

		rows, ok := sess.View.Selected()
		require.True(t, ok)
		assert.Equal(t, "Bambu", rows[0].Value)
	})

	t.Run("select unknown region", func(t *testing.T) {
		w := do(s, http.MethodPost, "/api/v1/viewer/select", signals(`,"region":"7"`))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("opacity", func(t *testing.T) {
		w := do(s, http.MethodPost, "/api/v1/viewer/opacity", signals(`,"opacity":0.4`))
		require.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, `"opacityLabel":"40%"`)
		assert.Contains(t, body, "choropleth-opacity")
		assert.NotContains(t, body, "choropleth-style")
		assert.Equal(t, 0.4, sess.View.Opacity())

		// Same value again changes nothing.
		w = do(s, http.MethodPost, "/api/v1/viewer/opacity", signals(`,"opacity":"0.4"`))
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), "choropleth-opacity")
	})

	t.Run("opacity missing", func(t *testing.T) {
		w := do(s, http.MethodPost, "/api/v1/viewer/opacity", signals(""))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("borders", func(t *testing.T) {
		w := do(s, http.MethodPost, "/api/v1/viewer/borders", signals(""))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "choropleth-style")
		for _, st := range sess.View.Styles() {
			assert.Zero(t, st.Weight)
		}

		do(s, http.MethodPost, "/api/v1/viewer/borders", signals(""))
		for _, st := range sess.View.Styles() {
			assert.Equal(t, 1.2, st.Weight)
		}
	})

	t.Run("hover then toggle", func(t *testing.T) {
		w := do(s, http.MethodPost, "/api/v1/viewer/borders", signals(""))
		require.Equal(t, http.StatusOK, w.Code)

		w = do(s, http.MethodPost, "/api/v1/viewer/hover", signals(`,"region":"1","hover":"start"`))
		require.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, 4.0, sess.View.Styles()[1].Weight)
		w = do(s, http.MethodPost, "/api/v1/viewer/hover", signals(`,"region":"1","hover":"end"`))
		require.Equal(t, http.StatusNoContent, w.Code)

		do(s, http.MethodPost, "/api/v1/viewer/borders", signals(""))
		styles := sess.View.Styles()
		assert.Equal(t, 1.2, styles[0].Weight)
		assert.Zero(t, styles[1].Weight)

		// Back to every border showing.
		do(s, http.MethodPost, "/api/v1/viewer/hover", signals(`,"region":"1","hover":"end"`))
	})

	t.Run("hover bad input", func(t *testing.T) {
		w := do(s, http.MethodPost, "/api/v1/viewer/hover", signals(`,"region":"1","hover":"wiggle"`))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		w = do(s, http.MethodPost, "/api/v1/viewer/hover", signals(`,"hover":"start"`))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		w = do(s, http.MethodPost, "/api/v1/viewer/hover", signals(`,"region":"9","hover":"end"`))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("reset", func(t *testing.T) {
		fits := sess.Frame.Fits()
		w := do(s, http.MethodPost, "/api/v1/viewer/reset", signals(""))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "choropleth-fit")
		assert.Equal(t, fits+1, sess.Frame.Fits())
	})

	t.Run("unknown session", func(t *testing.T) {
		w := do(s, http.MethodPost, "/api/v1/viewer/reset", `{"session":"nope"}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("missing session", func(t *testing.T) {
		w := do(s, http.MethodPost, "/api/v1/viewer/reset", `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("bad signals", func(t *testing.T) {
		w := do(s, http.MethodPost, "/api/v1/viewer/reset", `{`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCatalogDisabled(t *testing.T) {
	s := loaded(t)
	assert.Equal(t, http.StatusServiceUnavailable, do(s, http.MethodGet, "/api/v1/tables", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(s, http.MethodPost, "/api/v1/query", `{"query":"SELECT 1"}`).Code)
}

func TestCatalogSync(t *testing.T) {
	s := newTestServer(t, true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	var res struct {
		Rows []map[string]any `json:"rows"`
	}
	require.Eventually(t, func() bool {
		w := do(s, http.MethodPost, "/api/v1/query", `{"query":"SELECT name, district FROM regions ORDER BY id"}`)
		if w.Code != http.StatusOK {
			return false
		}
		decode(t, w, &res)
		return len(res.Rows) == 2
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, "Bambu", res.Rows[0]["name"])
	assert.Equal(t, "Tapalang", res.Rows[1]["district"])

	w := do(s, http.MethodGet, "/api/v1/tables", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "regions")
}

func TestStaticMetricsAndInfo(t *testing.T) {
	s := loaded(t)

	w := do(s, http.MethodGet, "/static/viewer.js", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "regions-ready")

	do(s, http.MethodGet, "/", "")
	w = do(s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "choropleth_views_created_total")
	assert.Contains(t, w.Body.String(), "choropleth_http_request_duration_ms")

	var info struct {
		Name     string   `json:"name"`
		DB       bool     `json:"db"`
		Sessions int      `json:"sessions"`
		Features []string `json:"features"`
	}
	w = do(s, http.MethodGet, "/api/v1/info", "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &info)
	assert.Equal(t, "plat-choropleth", info.Name)
	assert.False(t, info.DB)
	assert.Equal(t, 1, info.Sessions)
	assert.Contains(t, info.Features, "choropleth")
}

func TestCORSPreflight(t *testing.T) {
	s := loaded(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/viewer/select", nil)
	req.Header.Set("Origin", "http://example.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestOpenAPI(t *testing.T) {
	s := newTestServer(t, false)
	paths := s.OpenAPI().Paths
	for _, p := range []string{
		"/health", "/api/v1/info", "/api/v1/dataset", "/api/v1/regions", "/api/v1/regions/{id}",
		"/api/v1/stats", "/api/v1/tables", "/api/v1/query",
		"/api/v1/viewer/events", "/api/v1/viewer/regions", "/api/v1/viewer/select",
		"/api/v1/viewer/opacity", "/api/v1/viewer/reset", "/api/v1/viewer/borders",
	} {
		assert.Contains(t, paths, p)
	}
}
