// Package templates renders the viewer page and its Datastar HTML fragments.
package templates

import (
	"bytes"
	"encoding/json"
	"html/template"
	"io/fs"
	"sync"

	"github.com/rotisserie/eris"
)

var funcMap = template.FuncMap{
	// json embeds a value as a JavaScript literal.
	"json": func(v any) (template.JS, error) {
		b, err := json.Marshal(v)
		return template.JS(b), err
	},
}

// Renderer manages HTML templates parsed from a file system.
type Renderer struct {
	fsys     fs.FS
	patterns []string

	mu        sync.RWMutex
	templates *template.Template
}

// New parses every template in fsys matching patterns, such as
// "templates/*.html" and "templates/fragments/*.html".
func New(fsys fs.FS, patterns ...string) (*Renderer, error) {
	r := &Renderer{fsys: fsys, patterns: patterns}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Render renders a named template to a string.
func (r *Renderer) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.RenderToBuffer(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderToBuffer renders a named template to a buffer.
func (r *Renderer) RenderToBuffer(buf *bytes.Buffer, name string, data any) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := r.templates.ExecuteTemplate(buf, name, data); err != nil {
		return eris.Wrapf(err, "templates: render %s", name)
	}
	return nil
}

// Reload re-parses the templates, picking up edits when fsys is a directory.
func (r *Renderer) Reload() error {
	tmpl, err := template.New("").Funcs(funcMap).ParseFS(r.fsys, r.patterns...)
	if err != nil {
		return eris.Wrap(err, "templates: parse")
	}

	r.mu.Lock()
	r.templates = tmpl
	r.mu.Unlock()

	return nil
}
