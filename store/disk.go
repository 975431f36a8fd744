package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tilezen/go-hillshades/hillshade"
	"github.com/tilezen/go-hillshades/metrics"
)

// Disk stores artifacts as files below root, one file per key.
type Disk struct {
	root string
}

var _ hillshade.TileCache = (*Disk)(nil)

func NewDisk(dsn string) (*Disk, error) {
	root, err := filepath.Abs(dsn)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(root)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(root, 0755); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	case !info.IsDir():
		return nil, errors.New("root is already a file")
	}

	return &Disk{root: root}, nil
}

func (d *Disk) path(key string) (string, error) {
	p := filepath.Join(d.root, filepath.FromSlash(key))
	rel, err := filepath.Rel(d.root, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("key %q escapes the cache root", key)
	}
	return p, nil
}

func (d *Disk) Lookup(ctx context.Context, key string) hillshade.LookupResult {
	defer observe("disk", "lookup", time.Now())

	p, err := d.path(key)
	if err != nil {
		return hillshade.LookupError(err)
	}

	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return hillshade.Miss()
	}
	if err != nil {
		return hillshade.LookupError(err)
	}
	return hillshade.Hit(data)
}

// Put writes to a temporary file and renames it so readers never see a
// partial artifact.
func (d *Disk) Put(ctx context.Context, a hillshade.Artifact) error {
	defer observe("disk", "put", time.Now())

	p, err := d.path(a.Key)
	if err != nil {
		return err
	}

	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	fh, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(fh.Name())

	if err := fh.Chmod(0644); err != nil {
		fh.Close()
		return err
	}

	if _, err := fh.Write(a.Data); err != nil {
		fh.Close()
		return err
	}
	if err := fh.Close(); err != nil {
		return err
	}

	return os.Rename(fh.Name(), p)
}

func (d *Disk) Location(key string) string {
	p, err := d.path(key)
	if err != nil {
		return ""
	}
	return "file://" + filepath.ToSlash(p)
}

func observe(backend, operation string, start time.Time) {
	metrics.CacheOperationDuration.WithLabelValues(backend, operation).Observe(time.Since(start).Seconds())
}
