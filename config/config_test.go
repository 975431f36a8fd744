package config

import (
	"testing"
	"time"

	"github.com/tilezen/go-hillshades/hillshade"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.Render.SourceZoom != 14 || cfg.Render.TileSize != 512 || cfg.Render.Buffer != 2 || cfg.Render.MaxZoom != 15 {
		t.Errorf("unexpected render defaults: %+v", cfg.Render)
	}
	if cfg.Cache.Backend != "s3" {
		t.Errorf("expected s3 cache backend, got %q", cfg.Cache.Backend)
	}
	if cfg.Source.Kind != "http" {
		t.Errorf("expected http source, got %q", cfg.Source.Kind)
	}
	if cfg.Cache.Redis.TTL != 720*time.Hour {
		t.Errorf("unexpected redis ttl %s", cfg.Cache.Redis.TTL)
	}
}

func TestParse_Overrides(t *testing.T) {
	t.Setenv("RENDER_FILTER", "nearest")
	t.Setenv("RENDER_RESAMPLE", "false")
	t.Setenv("RENDER_RETRIES", "5")
	t.Setenv("CACHE_BACKEND", "disk")
	t.Setenv("CACHE_DISK_ROOT", "/tmp/tiles")
	t.Setenv("HTTP_PORT", "9090")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.HTTP.Port != "9090" {
		t.Errorf("expected port 9090, got %q", cfg.HTTP.Port)
	}
	if cfg.Cache.Disk.Root != "/tmp/tiles" {
		t.Errorf("expected disk root /tmp/tiles, got %q", cfg.Cache.Disk.Root)
	}

	opts, err := cfg.Options()
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	if opts.Filter != hillshade.FilterNearest {
		t.Errorf("expected nearest filter, got %s", opts.Filter)
	}
	if opts.Resample {
		t.Error("expected resampling disabled")
	}
	if opts.Retry.Attempts != 5 {
		t.Errorf("expected 5 attempts, got %d", opts.Retry.Attempts)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown backend", "CACHE_BACKEND", "memcached"},
		{"unknown source", "SOURCE_KIND", "ftp"},
		{"unknown filter", "RENDER_FILTER", "lanczos"},
		{"unknown log format", "LOGGER_FORMAT", "logfmt"},
		{"no retries", "RENDER_RETRIES", "0"},
		{"dir source without root", "SOURCE_KIND", "dir"},
		{"max zoom below source zoom", "RENDER_MAX_ZOOM", "10"},
		{"source tile size off the render grid", "SOURCE_TILE_SIZE", "512"},
		{"source zoom off the source pyramid", "RENDER_SOURCE_ZOOM", "13"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			if _, err := Parse(); err == nil {
				t.Errorf("expected error for %s=%s", tt.key, tt.val)
			}
		})
	}
}

func TestParse_MatchingExtents(t *testing.T) {
	t.Setenv("SOURCE_TILE_SIZE", "512")
	t.Setenv("SOURCE_MAX_ZOOM", "14")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Source.TileSize<<cfg.Source.MaxZoom != cfg.Render.TileSize<<cfg.Render.SourceZoom {
		t.Errorf("extents differ: %+v %+v", cfg.Source, cfg.Render)
	}
}
