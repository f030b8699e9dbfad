package taxonomy

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/muonblog/mycoserve/internal/errors"
	"github.com/muonblog/mycoserve/internal/logging"
)

type snapshot struct {
	taxonomy *Taxonomy
	modTime  time.Time
}

// Store memoizes the parsed taxonomy of one source file. Callers ask for
// the current tree on every request; the file is only re-parsed when its
// modification time changes. Readers always get a complete tree: a new one
// is published with a single atomic swap after parsing finishes.
type Store struct {
	path   string
	logger logging.Logger

	current atomic.Pointer[snapshot]
	// reload serializes rebuilds so concurrent requests parse once.
	reload sync.Mutex
	parses atomic.Int64
}

// NewStore returns a store for the source at path.
func NewStore(path string, logger logging.Logger) *Store {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Store{
		path:   path,
		logger: logger.WithComponent("taxonomy"),
	}
}

// Parses returns how many times the source has been parsed.
func (s *Store) Parses() int64 {
	return s.parses.Load()
}

// Current returns the taxonomy for the source as it is now. An unreadable
// source is logged and yields an empty taxonomy; the memoized tree is kept
// for when the file becomes readable again.
func (s *Store) Current(ctx context.Context) *Taxonomy {
	info, err := os.Stat(s.path)
	if err != nil {
		s.logFailure(ctx, err)
		return Empty()
	}
	modTime := info.ModTime()

	if snap := s.current.Load(); snap != nil && snap.modTime.Equal(modTime) {
		return snap.taxonomy
	}

	s.reload.Lock()
	defer s.reload.Unlock()

	if snap := s.current.Load(); snap != nil && snap.modTime.Equal(modTime) {
		return snap.taxonomy
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		s.logFailure(ctx, err)
		return Empty()
	}

	tax := Parse(string(data))
	s.parses.Add(1)
	s.current.Store(&snapshot{taxonomy: tax, modTime: modTime})

	c, g, sp := tax.Counts()
	s.logger.Info(ctx, "Taxonomy parsed",
		"path", s.path, "categories", c, "genera", g, "species", sp)

	return tax
}

func (s *Store) logFailure(ctx context.Context, cause error) {
	err := errors.ErrTaxonomyRead(s.path, cause)
	if errors.IsNotExist(cause) {
		s.logger.Warn(ctx, err, "Taxonomy source missing, serving empty taxonomy", errors.Fields(err)...)
		return
	}
	s.logger.Error(ctx, err, "Taxonomy source unreadable, serving empty taxonomy", errors.Fields(err)...)
}

// LoadFile reads and parses a source file without memoization.
func LoadFile(path string, categoriesOnly bool) (*Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ErrTaxonomyRead(path, err)
	}
	if categoriesOnly {
		return ParseCategories(string(data)), nil
	}
	return Parse(string(data)), nil
}
