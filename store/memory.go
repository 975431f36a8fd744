package store

import (
	"context"
	"sync"

	"github.com/tilezen/go-hillshades/hillshade"
)

// Memory keeps artifacts in process. It is meant for tests and single
// process deployments.
type Memory struct {
	items sync.Map
}

var _ hillshade.TileCache = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Lookup(ctx context.Context, key string) hillshade.LookupResult {
	v, ok := m.items.Load(key)
	if !ok {
		return hillshade.Miss()
	}
	return hillshade.Hit(v.(hillshade.Artifact).Data)
}

func (m *Memory) Put(ctx context.Context, a hillshade.Artifact) error {
	m.items.Store(a.Key, a)
	return nil
}

// Get returns the stored artifact with its headers.
func (m *Memory) Get(key string) (hillshade.Artifact, bool) {
	v, ok := m.items.Load(key)
	if !ok {
		return hillshade.Artifact{}, false
	}
	return v.(hillshade.Artifact), true
}

func (m *Memory) Location(key string) string {
	return "memory://" + key
}
