package render

import (
	"encoding/json"
	"html"
	"strings"

	"github.com/muonblog/mycoserve/internal/taxonomy"
	"golang.org/x/text/cases"
)

// SearchIndex is the client-side search data: every category, genus,
// species and common name mapped to the URL of its category page.
type SearchIndex struct {
	Names  map[string]string `json:"names"`
	Folded map[string]string `json:"folded"`
	order  []string
}

// BuildSearchIndex flattens tax into a SearchIndex. Names keep their first
// occurrence; the sentinel common name is skipped.
func BuildSearchIndex(tax *taxonomy.Taxonomy) *SearchIndex {
	idx := &SearchIndex{
		Names:  make(map[string]string),
		Folded: make(map[string]string),
	}
	fold := cases.Fold()

	add := func(name, url string) {
		if name == "" {
			return
		}
		if _, seen := idx.Names[name]; seen {
			return
		}
		idx.Names[name] = url
		idx.order = append(idx.order, name)
		key := fold.String(name)
		if _, seen := idx.Folded[key]; !seen {
			idx.Folded[key] = url
		}
	}

	if tax == nil {
		return idx
	}
	for _, c := range tax.Categories {
		url := "/" + c.Label
		add(c.Title, url)
		add(c.Label, url)
		for _, g := range c.Genera {
			add(g.Title, url)
			for _, s := range g.Species {
				add(s.Title, url)
				if s.HasCommonName() {
					add(s.CommonName, url)
				}
			}
		}
	}
	return idx
}

// Options renders one <option> per name in taxonomy order.
func (idx *SearchIndex) Options() string {
	var b strings.Builder
	for _, name := range idx.order {
		b.WriteString(`<option value="`)
		b.WriteString(html.EscapeString(name))
		b.WriteString(`">`)
	}
	return b.String()
}

// JSON returns the index as a JSON object with sorted keys.
func (idx *SearchIndex) JSON() string {
	data, err := json.Marshal(idx)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// Menu renders one menu fragment per category.
func (r *Renderer) Menu(tax *taxonomy.Taxonomy) string {
	var b strings.Builder
	if tax == nil {
		return ""
	}
	for _, c := range tax.Categories {
		b.WriteString(fill(r.templates.MenuFragment,
			"{LABEL}", c.Label,
			"{TITLE}", c.Title,
		))
	}
	return b.String()
}

// MenuPage renders the menu skeleton with the category links, the search
// option list and the search index.
func (r *Renderer) MenuPage(tax *taxonomy.Taxonomy) string {
	idx := BuildSearchIndex(tax)
	return fill(r.templates.Menu,
		"{MENU}", r.Menu(tax),
		"{OPTIONS}", idx.Options(),
		"{SEARCH}", idx.JSON(),
	)
}
