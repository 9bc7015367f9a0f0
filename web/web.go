// Package web embeds the viewer page, its Datastar fragments and static assets.
package web

import "embed"

// FS holds templates/ and static/.
//
//go:embed templates static
var FS embed.FS

// Template patterns parsed by the server.
var TemplatePatterns = []string{"templates/*.html", "templates/fragments/*.html"}
