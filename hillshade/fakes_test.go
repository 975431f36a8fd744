package hillshade

import (
	"context"
	"errors"
	"sync"
)

// gridSource serves elevations computed from output pixel positions.
type gridSource struct {
	mu    sync.Mutex
	reads int
	fail  []error
	elev  func(row, col int) float64
}

func (s *gridSource) Read(ctx context.Context, w Window, width, height int) (*ElevationGrid, error) {
	s.mu.Lock()
	s.reads++
	n := s.reads
	s.mu.Unlock()

	if n <= len(s.fail) {
		return nil, s.fail[n-1]
	}

	g := NewGrid(width, height)
	if s.elev != nil {
		for r := 0; r < height; r++ {
			for c := 0; c < width; c++ {
				g.Set(r, c, s.elev(r, c))
			}
		}
	}

	return &ElevationGrid{Grid: *g, DX: 30, DY: 30}, nil
}

func (s *gridSource) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

type memCache struct {
	mu        sync.Mutex
	items     map[string]Artifact
	puts      []string
	lookups   []string
	lookupErr error
	putErr    error
}

func newMemCache() *memCache {
	return &memCache{items: map[string]Artifact{}}
}

func (c *memCache) Lookup(ctx context.Context, key string) LookupResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lookups = append(c.lookups, key)
	if c.lookupErr != nil {
		return LookupError(c.lookupErr)
	}
	a, ok := c.items[key]
	if !ok {
		return Miss()
	}
	return Hit(a.Data)
}

func (c *memCache) Put(ctx context.Context, a Artifact) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.puts = append(c.puts, a.Key)
	if c.putErr != nil {
		return c.putErr
	}
	c.items[a.Key] = a
	return nil
}

func (c *memCache) Location(key string) string {
	return "mem://" + key
}

type recordingReporter struct {
	mu   sync.Mutex
	errs []error
}

func (r *recordingReporter) Report(ctx context.Context, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recordingReporter) has(target error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, err := range r.errs {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Retry = RetryPolicy{Attempts: 3}
	return opts
}
