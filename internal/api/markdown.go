package api

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// markdown renders challenge descriptions. Raw HTML in descriptions is
// dropped by goldmark's default renderer.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// RenderMarkdown converts a challenge description to HTML.
func RenderMarkdown(source string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil //nolint:gosec // goldmark escapes raw HTML by default
}

// Preview renders the posted description as an HTML fragment.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	out, err := RenderMarkdown(r.FormValue("description"))
	if err != nil {
		Error(w, http.StatusUnprocessableEntity, "failed to render description")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(out))
}
