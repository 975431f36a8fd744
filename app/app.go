// Package app assembles a renderer and its publishers from configuration.
package app

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/tilezen/go-hillshades/config"
	"github.com/tilezen/go-hillshades/hillshade"
	"github.com/tilezen/go-hillshades/logger"
	"github.com/tilezen/go-hillshades/source"
	"github.com/tilezen/go-hillshades/store"
)

type App struct {
	Renderer   *hillshade.Renderer
	Cache      hillshade.TileCache
	publishers map[string]*hillshade.Publisher
	closers    []io.Closer
}

// New builds the cache, elevation source, renderer and one publisher per
// built-in style.
func New(cfg *config.Config, l logger.Logger, reporter hillshade.ErrorReporter) (*App, error) {
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}

	cache, closer, err := NewCache(cfg.Cache, l)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s cache: %w", cfg.Cache.Backend, err)
	}

	src, err := NewSource(cfg.Source)
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, fmt.Errorf("failed to create %s source: %w", cfg.Source.Kind, err)
	}

	a := Assemble(src, cache, opts, hillshade.WithLogger(l), hillshade.WithReporter(reporter))
	if closer != nil {
		a.closers = append(a.closers, closer)
	}
	return a, nil
}

// Assemble wires an already constructed source and cache.
func Assemble(src hillshade.ElevationSource, cache hillshade.TileCache, opts hillshade.Options, options ...hillshade.RendererOption) *App {
	renderer := hillshade.NewRenderer(src, cache, opts, options...)

	publishers := make(map[string]*hillshade.Publisher)
	for name, style := range hillshade.DefaultStyles() {
		publishers[name] = hillshade.NewPublisher(renderer, style)
	}

	return &App{
		Renderer:   renderer,
		Cache:      cache,
		publishers: publishers,
	}
}

func (a *App) Publisher(style string) (*hillshade.Publisher, bool) {
	p, ok := a.publishers[style]
	return p, ok
}

func (a *App) Styles() []string {
	names := make([]string, 0, len(a.publishers))
	for name := range a.publishers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// NewCache returns the configured backend and, for backends holding
// connections, a closer.
func NewCache(cfg config.Cache, l logger.Logger) (hillshade.TileCache, io.Closer, error) {
	switch cfg.Backend {
	case "s3":
		sess, err := store.NewS3Session(cfg.Region)
		if err != nil {
			return nil, nil, err
		}
		return store.NewS3(s3.New(sess), cfg.Bucket, cfg.ACL), nil, nil
	case "disk":
		d, err := store.NewDisk(cfg.Disk.Root)
		return d, nil, err
	case "sqlite":
		s, err := store.NewSQLite(cfg.SQLite.Path, l)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case "redis":
		r, err := store.NewRedis(store.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		})
		if err != nil {
			return nil, nil, err
		}
		return r, r, nil
	case "memory":
		return store.NewMemory(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

func NewSource(cfg config.Source) (*source.Terrarium, error) {
	var fetcher source.Fetcher

	switch cfg.Kind {
	case "http":
		fetcher = source.NewHTTPFetcher(cfg.URLTemplate, cfg.Timeout)
	case "s3":
		sess, err := store.NewS3Session(cfg.Region)
		if err != nil {
			return nil, err
		}
		fetcher = source.NewS3Fetcher(s3.New(sess), cfg.Bucket, cfg.KeyTemplate)
	case "dir":
		f, err := source.NewDirFetcher(cfg.Dir, cfg.KeyTemplate)
		if err != nil {
			return nil, err
		}
		fetcher = f
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
	}

	return source.NewTerrarium(fetcher, cfg.MaxZoom, cfg.TileSize, cfg.Concurrency), nil
}
