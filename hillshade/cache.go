package hillshade

import (
	"context"
	"fmt"
)

type LookupStatus int

const (
	NotFound LookupStatus = iota
	Found
	LookupFailed
)

func (s LookupStatus) String() string {
	switch s {
	case Found:
		return "found"
	case NotFound:
		return "not_found"
	default:
		return "error"
	}
}

// LookupResult distinguishes a miss from a failed lookup.
type LookupResult struct {
	Status LookupStatus
	Data   []byte
	Err    error
}

func Hit(data []byte) LookupResult {
	return LookupResult{Status: Found, Data: data}
}

func Miss() LookupResult {
	return LookupResult{Status: NotFound}
}

func LookupError(err error) LookupResult {
	return LookupResult{Status: LookupFailed, Err: fmt.Errorf("%w: %w", ErrCacheIO, err)}
}

// Artifact is a published tile and the headers it is stored with.
type Artifact struct {
	Key          string
	Data         []byte
	ContentType  string
	CacheControl string
	StorageClass string
	Metadata     map[string]string
}

// TileCache stores rendered artifacts under string keys.
// Puts are last-writer-wins and safe to repeat.
type TileCache interface {
	Lookup(ctx context.Context, key string) LookupResult
	Put(ctx context.Context, artifact Artifact) error
	Location(key string) string
}

// CacheSettings are the storage headers attached to published artifacts.
type CacheSettings struct {
	CacheControl string
	StorageClass string
}

func DefaultCacheSettings() CacheSettings {
	return CacheSettings{
		CacheControl: "public, max-age=2592000",
		StorageClass: "REDUCED_REDUNDANCY",
	}
}
