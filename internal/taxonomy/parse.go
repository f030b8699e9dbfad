package taxonomy

import (
	"strings"
)

// Layer is a nesting depth of the source format.
type Layer int

const (
	LayerCategory Layer = iota
	LayerGenus
	LayerSpecies
)

func (l Layer) String() string {
	switch l {
	case LayerCategory:
		return "category"
	case LayerGenus:
		return "genus"
	case LayerSpecies:
		return "species"
	default:
		return "unknown"
	}
}

// IsBoundary reports whether line opens a new chunk at layer l.
func (l Layer) IsBoundary(line string) bool {
	if !strings.HasSuffix(line, ":") {
		return false
	}
	switch l {
	case LayerCategory:
		return !strings.HasPrefix(line, "  ")
	case LayerGenus:
		return strings.HasPrefix(line, "  ") && !strings.HasPrefix(line, "   ")
	case LayerSpecies:
		return strings.HasPrefix(line, "    ")
	default:
		return false
	}
}

// fieldPrefixes are stripped from extracted values; at most one applies.
var fieldPrefixes = []string{"title: ", "common_name: ", "blurb: ", "name: "}

// Sanitize trims s, removes one known field prefix and one trailing colon.
func Sanitize(s string) string {
	s = strings.TrimSpace(s)
	for _, p := range fieldPrefixes {
		if strings.HasPrefix(s, p) {
			s = strings.TrimPrefix(s, p)
			break
		}
	}
	return strings.TrimSuffix(s, ":")
}

// Lines splits source text on newlines, dropping a trailing carriage return
// from each line.
func Lines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// Split cuts lines into chunks that each start at a boundary of layer l and
// run up to the next boundary or the end of lines. Lines before the first
// boundary belong to no chunk.
func Split(lines []string, l Layer) [][]string {
	var starts []int
	for i, line := range lines {
		if l.IsBoundary(line) {
			starts = append(starts, i)
		}
	}

	chunks := make([][]string, 0, len(starts))
	for k, start := range starts {
		end := len(lines)
		if k+1 < len(starts) {
			end = starts[k+1]
		}
		chunks = append(chunks, lines[start:end])
	}
	return chunks
}

// Parse builds the full taxonomy from source text. Malformed input is not
// rejected; missing fields come out empty.
func Parse(text string) *Taxonomy {
	return &Taxonomy{Categories: parseCategories(Lines(text), true)}
}

// ParseCategories builds the categories only, leaving every Genera empty.
func ParseCategories(text string) *Taxonomy {
	return &Taxonomy{Categories: parseCategories(Lines(text), false)}
}

func parseCategories(lines []string, withGenera bool) []Category {
	chunks := Split(lines, LayerCategory)
	categories := make([]Category, 0, len(chunks))
	for _, chunk := range chunks {
		c := Category{
			Label: Sanitize(chunk[0]),
			Title: categoryTitle(chunk),
		}
		if withGenera {
			c.Genera = parseGenera(chunk)
		}
		categories = append(categories, c)
	}
	return categories
}

func categoryTitle(chunk []string) string {
	for _, line := range chunk {
		if strings.HasPrefix(strings.TrimSpace(line), "title:") {
			return Sanitize(line)
		}
	}
	return ""
}

func parseGenera(lines []string) []Genus {
	chunks := Split(lines, LayerGenus)
	genera := make([]Genus, 0, len(chunks))
	for _, chunk := range chunks {
		genera = append(genera, Genus{
			Title:   Sanitize(chunk[0]),
			Species: parseSpecies(chunk),
		})
	}
	return genera
}

func parseSpecies(lines []string) []Species {
	chunks := Split(lines, LayerSpecies)
	species := make([]Species, 0, len(chunks))
	for _, chunk := range chunks {
		s := Species{Title: Sanitize(chunk[0])}
		if len(chunk) > 1 {
			s.CommonName = Sanitize(chunk[1])
		}
		if len(chunk) > 2 {
			s.Blurb = joinBlurb(chunk[2:])
		}
		species = append(species, s)
	}
	return species
}

func joinBlurb(lines []string) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		if v := Sanitize(l); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}
