// Package render fills the encyclopedia's HTML skeletons and fragments
// from a taxonomy. Substitution is plain token replacement: each
// {PLACEHOLDER} is replaced independently and content is never escaped.
package render

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/muonblog/mycoserve/internal/errors"
	"github.com/muonblog/mycoserve/internal/logging"
)

// TemplateSet holds every skeleton and fragment. It is loaded once and then
// shared read-only by all connections.
type TemplateSet struct {
	NotFound  string
	Forbidden string
	Menu      string
	Page      string

	CategoryFragment string
	GenusFragment    string
	SpeciesFragment  string
	MenuFragment     string
}

// File names inside the data directory.
const (
	FileMeta      = "meta.html"
	FileNotFound  = "404.html"
	FileForbidden = "403.html"
	FileMenu      = "menu.html"
	FilePage      = "page.html"

	FragmentDir      = "fragments"
	FileFragCategory = "category.html"
	FileFragGenus    = "genus.html"
	FileFragSpecies  = "species.html"
	FileFragMenu     = "menu.html"
)

// LoadTemplates reads the template files under dataDir, replacing {META}
// in each with the contents of meta.html. A file that cannot be read is
// logged and loaded as the empty string.
func LoadTemplates(ctx context.Context, dataDir string, logger logging.Logger) *TemplateSet {
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logger.WithComponent("templates")

	read := func(path, meta string) string {
		data, err := os.ReadFile(path)
		if err != nil {
			terr := errors.ErrTemplateRead(path, err)
			logger.Error(ctx, terr, "Template unavailable, using empty template", errors.Fields(terr)...)
			return ""
		}
		return strings.ReplaceAll(string(data), "{META}", meta)
	}

	meta := read(filepath.Join(dataDir, FileMeta), "")
	frag := filepath.Join(dataDir, FragmentDir)

	return &TemplateSet{
		NotFound:  read(filepath.Join(dataDir, FileNotFound), meta),
		Forbidden: read(filepath.Join(dataDir, FileForbidden), meta),
		Menu:      read(filepath.Join(dataDir, FileMenu), meta),
		Page:      read(filepath.Join(dataDir, FilePage), meta),

		CategoryFragment: read(filepath.Join(frag, FileFragCategory), meta),
		GenusFragment:    read(filepath.Join(frag, FileFragGenus), meta),
		SpeciesFragment:  read(filepath.Join(frag, FileFragSpecies), meta),
		MenuFragment:     read(filepath.Join(frag, FileFragMenu), meta),
	}
}

// fill replaces each placeholder with its value. pairs alternates
// placeholder and value.
func fill(template string, pairs ...string) string {
	for i := 0; i+1 < len(pairs); i += 2 {
		template = strings.ReplaceAll(template, pairs[i], pairs[i+1])
	}
	return template
}
