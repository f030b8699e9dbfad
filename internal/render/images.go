package render

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/muonblog/mycoserve/internal/errors"
	"github.com/muonblog/mycoserve/internal/logging"
)

// FallbackImageCount is used for a species whose image directory cannot be
// listed.
const FallbackImageCount = 3

// ImageCounter reports how many images exist for a species.
type ImageCounter interface {
	Count(ctx context.Context, category, genus, species string) int
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// DirImageCounter counts image files in {Root}/{category}/{genus}/{species}.
type DirImageCounter struct {
	Root   string
	Logger logging.Logger
}

// NewDirImageCounter returns a counter rooted at root.
func NewDirImageCounter(root string, logger logging.Logger) *DirImageCounter {
	if logger == nil {
		logger = logging.Nop()
	}
	return &DirImageCounter{Root: root, Logger: logger.WithComponent("images")}
}

// Count lists the species directory. Listing failures are logged and
// answered with FallbackImageCount.
func (d *DirImageCounter) Count(ctx context.Context, category, genus, species string) int {
	dir := filepath.Join(d.Root, category, genus, species)
	entries, err := os.ReadDir(dir)
	if err != nil {
		lerr := errors.ErrImageListing(dir, err)
		d.Logger.Warn(ctx, lerr, "Image directory unreadable, using fallback count",
			append(errors.Fields(lerr), "fallback", FallbackImageCount)...)
		return FallbackImageCount
	}

	n := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			n++
		}
	}
	return n
}
