package render

import (
	"context"
	"strings"

	"github.com/muonblog/mycoserve/internal/response"
	"github.com/muonblog/mycoserve/internal/taxonomy"
)

// TaxonomySource yields the taxonomy to render for one request.
type TaxonomySource interface {
	Current(ctx context.Context) *taxonomy.Taxonomy
}

// Encyclopedia serves the encyclopedia virtual host: the menu at "/" and
// one page per category label.
type Encyclopedia struct {
	source   TaxonomySource
	renderer *Renderer
}

// NewEncyclopedia returns the encyclopedia handler.
func NewEncyclopedia(source TaxonomySource, renderer *Renderer) *Encyclopedia {
	return &Encyclopedia{source: source, renderer: renderer}
}

// Serve renders the page for path. Slashes are ignored, so "/agaricales/"
// and "/agaricales" address the same category.
func (e *Encyclopedia) Serve(ctx context.Context, path string) *response.Response {
	label := strings.ReplaceAll(path, "/", "")
	tax := e.source.Current(ctx)

	if label == "" {
		return response.HTML(response.StatusOK, e.renderer.MenuPage(tax))
	}
	if c, ok := tax.Find(label); ok {
		return response.HTML(response.StatusOK, e.renderer.CategoryPage(ctx, c))
	}
	return response.HTML(response.StatusNotFound, e.renderer.Templates().NotFound)
}
