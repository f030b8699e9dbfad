// Package taxonomy parses the encyclopedia's indentation-delimited source
// into a Category -> Genus -> Species tree and memoizes the result against
// the source file's modification time.
package taxonomy

// NoCommonName is the sentinel a source uses for a species without a
// common name.
const NoCommonName = "''"

// Taxonomy is the parsed source. It is never modified after parsing.
type Taxonomy struct {
	Categories []Category `yaml:"categories" json:"categories"`
}

// Category is a top-level section, addressed by its label.
type Category struct {
	Label  string  `yaml:"label" json:"label"`
	Title  string  `yaml:"title" json:"title"`
	Genera []Genus `yaml:"genera,omitempty" json:"genera,omitempty"`
}

type Genus struct {
	Title   string    `yaml:"title" json:"title"`
	Species []Species `yaml:"species,omitempty" json:"species,omitempty"`
}

type Species struct {
	Title      string `yaml:"title" json:"title"`
	CommonName string `yaml:"common_name" json:"common_name"`
	Blurb      string `yaml:"blurb,omitempty" json:"blurb,omitempty"`
}

// HasCommonName reports whether the common name is present.
func (s Species) HasCommonName() bool {
	return s.CommonName != NoCommonName
}

// DisplayName is the latin name, followed by " - common" when a common
// name is present.
func (s Species) DisplayName() string {
	if !s.HasCommonName() {
		return s.Title
	}
	return s.Title + " - " + s.CommonName
}

// Empty returns a taxonomy with no categories.
func Empty() *Taxonomy {
	return &Taxonomy{}
}

// Find returns the category with the given label.
func (t *Taxonomy) Find(label string) (*Category, bool) {
	if t == nil {
		return nil, false
	}
	for i := range t.Categories {
		if t.Categories[i].Label == label {
			return &t.Categories[i], true
		}
	}
	return nil, false
}

// Counts returns the number of categories, genera and species.
func (t *Taxonomy) Counts() (categories, genera, species int) {
	if t == nil {
		return 0, 0, 0
	}
	categories = len(t.Categories)
	for _, c := range t.Categories {
		genera += len(c.Genera)
		for _, g := range c.Genera {
			species += len(g.Species)
		}
	}
	return categories, genera, species
}
