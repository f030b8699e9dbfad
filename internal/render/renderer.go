package render

import (
	"context"
	"fmt"
	"strings"

	"github.com/muonblog/mycoserve/internal/taxonomy"
)

// Renderer turns taxonomy nodes into HTML using a TemplateSet.
//
// Fragment roles follow the nesting of a category page: the category
// fragment wraps one genus section ({TITLE}, {HTML}), the genus fragment
// wraps one species entry ({NAME}, {BLURB}, {HTML}) and the species
// fragment wraps one image ({PATH}).
type Renderer struct {
	templates *TemplateSet
	images    ImageCounter
}

// NewRenderer returns a renderer over templates, probing image counts
// through images.
func NewRenderer(templates *TemplateSet, images ImageCounter) *Renderer {
	return &Renderer{templates: templates, images: images}
}

// Templates returns the renderer's template set.
func (r *Renderer) Templates() *TemplateSet {
	return r.templates
}

// RenderCategories renders the page skeleton with title and the folded HTML of the
// given categories.
func (r *Renderer) RenderCategories(ctx context.Context, title string, categories ...taxonomy.Category) string {
	var data strings.Builder
	for i := range categories {
		data.WriteString(r.Category(ctx, &categories[i]))
	}
	return fill(r.templates.Page,
		"{TITLE}", title,
		"{DATA}", data.String(),
	)
}

// CategoryPage renders the page for a single category.
func (r *Renderer) CategoryPage(ctx context.Context, c *taxonomy.Category) string {
	return r.RenderCategories(ctx, c.Title, *c)
}

// Category folds every genus of c into one HTML blob.
func (r *Renderer) Category(ctx context.Context, c *taxonomy.Category) string {
	var b strings.Builder
	for _, g := range c.Genera {
		b.WriteString(fill(r.templates.CategoryFragment,
			"{TITLE}", g.Title,
			"{HTML}", r.Genus(ctx, c.Label, g),
		))
	}
	return b.String()
}

// Genus folds every species of g into one HTML blob.
func (r *Renderer) Genus(ctx context.Context, category string, g taxonomy.Genus) string {
	var b strings.Builder
	for _, s := range g.Species {
		count := r.images.Count(ctx, category, g.Title, s.Title)
		b.WriteString(fill(r.templates.GenusFragment,
			"{NAME}", s.DisplayName(),
			"{BLURB}", s.Blurb,
			"{HTML}", r.Species(category, g.Title, s.Title, count),
		))
	}
	return b.String()
}

// Species renders count image fragments for one species.
func (r *Renderer) Species(category, genus, species string, count int) string {
	var b strings.Builder
	for n := 0; n < count; n++ {
		b.WriteString(fill(r.templates.SpeciesFragment, "{PATH}", ImagePath(category, genus, species, n)))
	}
	return b.String()
}

// ImagePath is the path of the n-th image of a species, relative to the
// image root.
func ImagePath(category, genus, species string, n int) string {
	return fmt.Sprintf("%s/%s/%s/%s%s%d.jpg", category, genus, species, genus, species, n)
}
