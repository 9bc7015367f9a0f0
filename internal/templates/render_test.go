package templates

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderFromFS(t *testing.T) {
	fsys := fstest.MapFS{
		"t/row.html":  {Data: []byte(`{{define "row"}}<b>{{.Label}}</b>: {{.Value}}{{end}}`)},
		"t/data.html": {Data: []byte(`{{define "data"}}<script>var x = {{json .}};</script>{{end}}`)},
	}
	r, err := New(fsys, "t/*.html")
	require.NoError(t, err)

	out, err := r.Render("row", map[string]string{"Label": "Luas", "Value": "<1>"})
	require.NoError(t, err)
	assert.Equal(t, "<b>Luas</b>: &lt;1&gt;", out)

	out, err = r.Render("data", map[string]int{"n": 1})
	require.NoError(t, err)
	assert.Contains(t, out, `{"n":1}`)

	_, err = r.Render("missing", nil)
	assert.Error(t, err)
}

func TestReload(t *testing.T) {
	fsys := fstest.MapFS{"a.html": {Data: []byte(`{{define "a"}}one{{end}}`)}}
	r, err := New(fsys, "*.html")
	require.NoError(t, err)

	fsys["a.html"] = &fstest.MapFile{Data: []byte(`{{define "a"}}two{{end}}`)}
	require.NoError(t, r.Reload())
	out, err := r.Render("a", nil)
	require.NoError(t, err)
	assert.Equal(t, "two", out)
}

func TestNewNoMatch(t *testing.T) {
	_, err := New(fstest.MapFS{}, "*.html")
	assert.Error(t, err)
}
