// Package static serves files from the site root for the site virtual host.
package static

import (
	"context"
	"os"
	"path"
	"path/filepath"

	"github.com/muonblog/mycoserve/internal/errors"
	"github.com/muonblog/mycoserve/internal/logging"
	"github.com/muonblog/mycoserve/internal/render"
	"github.com/muonblog/mycoserve/internal/response"
)

// IndexFile is served in place of a directory.
const IndexFile = "index.html"

// Handler resolves request paths against Root.
type Handler struct {
	root      string
	templates *render.TemplateSet
	logger    logging.Logger
}

// NewHandler returns a static handler for root. Error pages come from
// templates.
func NewHandler(root string, templates *render.TemplateSet, logger logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Nop()
	}
	if templates == nil {
		templates = &render.TemplateSet{}
	}
	return &Handler{
		root:      root,
		templates: templates,
		logger:    logger.WithComponent("static"),
	}
}

// Resolve maps a request path to a file under the root. The path is cleaned
// as if rooted, so ".." segments never climb above the root.
func (h *Handler) Resolve(requestPath string) string {
	clean := path.Clean("/" + requestPath)
	return filepath.Join(h.root, filepath.FromSlash(clean))
}

// Serve reads the file addressed by requestPath.
func (h *Handler) Serve(ctx context.Context, requestPath string) *response.Response {
	name := h.Resolve(requestPath)

	body, file, err := h.read(name)
	if err != nil {
		serr := errors.ErrStaticLookup(name, err)
		h.logger.Debug(ctx, "Static lookup failed", errors.Fields(serr)...)
		if serr.Code == errors.ErrCodeForbidden {
			return response.HTML(response.StatusForbidden, h.templates.Forbidden)
		}
		return response.HTML(response.StatusNotFound, h.templates.NotFound)
	}

	return response.New(response.StatusOK, response.MimeType(file), body)
}

func (h *Handler) read(name string) ([]byte, string, error) {
	info, err := os.Stat(name)
	if err != nil {
		return nil, name, err
	}
	if info.IsDir() {
		name = filepath.Join(name, IndexFile)
	}
	body, err := os.ReadFile(name)
	return body, name, err
}
