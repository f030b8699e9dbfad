// Package router maps a parsed request to the handler of its virtual host.
package router

import (
	"context"

	"github.com/muonblog/mycoserve/internal/request"
	"github.com/muonblog/mycoserve/internal/response"
)

// Handler produces the response for one path of a virtual host.
type Handler interface {
	Serve(ctx context.Context, path string) *response.Response
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, path string) *response.Response

// Serve calls f.
func (f HandlerFunc) Serve(ctx context.Context, path string) *response.Response {
	return f(ctx, path)
}

// Router dispatches on the request's virtual host.
//
// Invariants:
// - site and encyclopedia are never nil after construction
// - a request without a path or a known host never reaches a handler
type Router struct {
	site         Handler
	encyclopedia Handler
}

// New returns a router. It panics if either handler is nil.
func New(site, encyclopedia Handler) *Router {
	if site == nil {
		panic("Router: site handler cannot be nil")
	}
	if encyclopedia == nil {
		panic("Router: encyclopedia handler cannot be nil")
	}
	return &Router{site: site, encyclopedia: encyclopedia}
}

// Select returns the handler for host, or nil when the host is unknown.
func (r *Router) Select(host request.Host) Handler {
	switch host {
	case request.HostSite:
		return r.site
	case request.HostEncyclopedia:
		return r.encyclopedia
	default:
		return nil
	}
}

// Route answers req. Requests without a path or a known host get the
// generic not-found response.
func (r *Router) Route(ctx context.Context, req *request.Request) *response.Response {
	if req == nil || !req.HasPath {
		return response.NotFound()
	}
	h := r.Select(req.Host)
	if h == nil {
		return response.NotFound()
	}
	return h.Serve(ctx, req.Path)
}
