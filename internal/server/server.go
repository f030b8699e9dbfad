// Package server accepts TCP connections and answers each with exactly one
// response on a bounded pool of workers.
package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/muonblog/mycoserve/internal/config"
	"github.com/muonblog/mycoserve/internal/errors"
	"github.com/muonblog/mycoserve/internal/logging"
	"github.com/muonblog/mycoserve/internal/request"
	"github.com/muonblog/mycoserve/internal/router"
)

// EventSink receives one access record per served connection. Submit must
// not block.
type EventSink interface {
	Submit(ev logging.LogEvent) bool
}

// Deps are the collaborators a Server dispatches to.
type Deps struct {
	Parser *request.Parser
	Router *router.Router
	Tally  *logging.Tally
	Sink   EventSink
	Logger logging.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// job is one accepted connection waiting for a worker.
type job struct {
	conn     net.Conn
	accepted time.Time
}

// Server owns the listener and the worker pool.
//
// The job channel is unbuffered: when every worker is busy the accept loop
// blocks on dispatch, and pending connections wait in the kernel backlog.
type Server struct {
	config *config.Config
	parser *request.Parser
	router *router.Router
	tally  *logging.Tally
	sink   EventSink
	logger logging.Logger
	now    func() time.Time

	jobs     chan job
	workerWg sync.WaitGroup

	// serverMutex protects listener, cancel and isShutdown
	serverMutex sync.RWMutex
	listener    net.Listener
	cancel      context.CancelFunc
	isShutdown  bool

	shutdownOnce sync.Once
}

// New creates a server. Parser, Router, Tally and Sink are required.
func New(cfg *config.Config, deps Deps) (*Server, error) {
	if cfg == nil {
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid, "server config cannot be nil")
	}
	if deps.Parser == nil || deps.Router == nil || deps.Tally == nil || deps.Sink == nil {
		return nil, errors.NewValidationError(errors.ErrCodeConfigInvalid, "server requires parser, router, tally and sink")
	}
	if deps.Logger == nil {
		deps.Logger = logging.Nop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	return &Server{
		config: cfg,
		parser: deps.Parser,
		router: deps.Router,
		tally:  deps.Tally,
		sink:   deps.Sink,
		logger: deps.Logger.WithComponent("server"),
		now:    deps.Now,
		jobs:   make(chan job),
	}, nil
}

// Workers is the size of the pool.
func (s *Server) Workers() int {
	if s.config.Server.Workers > 0 {
		return s.config.Server.Workers
	}
	return 1
}

// Addr returns the listener address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.serverMutex.RLock()
	defer s.serverMutex.RUnlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ListenAndServe binds the configured address and serves until ctx is
// cancelled or Shutdown is called.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := s.config.Addr()
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.WrapNetwork(err, "cannot bind listener").
			WithContext("addr", addr)
	}
	return s.Serve(ctx, l)
}

// Serve accepts connections from l. Accept failures on individual
// connections are logged and the loop continues; it returns nil once the
// server is shut down.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	s.serverMutex.Lock()
	if s.isShutdown {
		s.serverMutex.Unlock()
		l.Close()
		return nil
	}
	s.listener = l
	ctx, s.cancel = context.WithCancel(ctx)
	s.serverMutex.Unlock()

	for i := 0; i < s.Workers(); i++ {
		s.workerWg.Add(1)
		go s.worker(ctx, i)
	}

	go func() {
		<-ctx.Done()
		s.closeListener()
	}()

	s.logger.Info(ctx, "Server listening",
		"addr", l.Addr().String(),
		"workers", s.Workers())

	var backoff time.Duration
	for {
		conn, err := l.Accept()
		if err != nil {
			if s.stopped() || ctx.Err() != nil || stderrors.Is(err, net.ErrClosed) {
				return nil
			}
			backoff = nextBackoff(backoff)
			s.logger.Warn(ctx, errors.WrapNetwork(err, "accept failed"), "Accept failed, retrying",
				"retry_in", backoff)
			time.Sleep(backoff)
			continue
		}
		backoff = 0

		select {
		case s.jobs <- job{conn: conn, accepted: s.now()}:
		case <-ctx.Done():
			conn.Close()
			return nil
		}
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	d *= 2
	if d > time.Second {
		d = time.Second
	}
	return d
}

// worker serves jobs until ctx is cancelled. A job already received is
// always finished.
func (s *Server) worker(ctx context.Context, id int) {
	defer s.workerWg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.jobs:
			s.handleConnection(ctx, id, j)
		}
	}
}

func (s *Server) stopped() bool {
	s.serverMutex.RLock()
	defer s.serverMutex.RUnlock()
	return s.isShutdown
}

func (s *Server) closeListener() {
	s.serverMutex.RLock()
	l := s.listener
	s.serverMutex.RUnlock()
	if l != nil {
		l.Close()
	}
}

// Shutdown stops accepting, lets in-flight connections finish and waits
// for the workers until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "Shutting down server")

		s.serverMutex.Lock()
		s.isShutdown = true
		cancel := s.cancel
		s.serverMutex.Unlock()

		if cancel != nil {
			cancel()
		}
		s.closeListener()

		done := make(chan struct{})
		go func() {
			s.workerWg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			shutdownErr = fmt.Errorf("waiting for workers: %w", ctx.Err())
		}
	})

	return shutdownErr
}
