package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/tilezen/go-hillshades/hillshade"
	"github.com/tilezen/go-hillshades/logger"
)

type (
	Config struct {
		HTTP      HTTP      `envPrefix:"HTTP_"`
		Logger    Logger    `envPrefix:"LOGGER_"`
		Telemetry Telemetry `envPrefix:"TELEMETRY_"`
		Source    Source    `envPrefix:"SOURCE_"`
		Render    Render    `envPrefix:"RENDER_"`
		Cache     Cache     `envPrefix:"CACHE_"`
	}

	HTTP struct {
		Port         string        `env:"PORT" envDefault:"8080"`
		ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
		WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"60s"`
		IdleTimeout  time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
		Timeout      time.Duration `env:"TIMEOUT" envDefault:"55s"`
		Archive      string        `env:"ARCHIVE"`
	}

	Logger struct {
		Level  string `env:"LEVEL" envDefault:"info"`
		Format string `env:"FORMAT" envDefault:"console" validate:"oneof=console json"`
	}

	Telemetry struct {
		Enabled        bool   `env:"ENABLED" envDefault:"false"`
		ServiceName    string `env:"SERVICE_NAME" envDefault:"go-hillshades"`
		ServiceVersion string `env:"SERVICE_VERSION" envDefault:"1.0.0"`
		Environment    string `env:"ENVIRONMENT" envDefault:"production"`
		OTLPEndpoint   string `env:"OTLP_ENDPOINT" envDefault:"localhost:4317"`
	}

	Source struct {
		Kind        string        `env:"KIND" envDefault:"http" validate:"oneof=http s3 dir"`
		URLTemplate string        `env:"URL_TEMPLATE" envDefault:"https://s3.amazonaws.com/elevation-tiles-prod/terrarium/{z}/{x}/{y}.png" validate:"required_if=Kind http"`
		Bucket      string        `env:"BUCKET" envDefault:"elevation-tiles-prod" validate:"required_if=Kind s3"`
		KeyTemplate string        `env:"KEY_TEMPLATE" envDefault:"terrarium/{z}/{x}/{y}.png"`
		Region      string        `env:"REGION" envDefault:"us-east-1"`
		Dir         string        `env:"DIR" validate:"required_if=Kind dir"`
		MaxZoom     int           `env:"MAX_ZOOM" envDefault:"15" validate:"gte=0,lte=24"`
		TileSize    int           `env:"TILE_SIZE" envDefault:"256" validate:"gt=0"`
		Concurrency int           `env:"CONCURRENCY" envDefault:"8" validate:"gt=0"`
		Timeout     time.Duration `env:"TIMEOUT" envDefault:"30s"`
	}

	Render struct {
		SourceZoom   int           `env:"SOURCE_ZOOM" envDefault:"14" validate:"gte=0,lte=24"`
		TileSize     int           `env:"TILE_SIZE" envDefault:"512" validate:"gt=0"`
		Buffer       int           `env:"BUFFER" envDefault:"2" validate:"gte=0"`
		MaxZoom      int           `env:"MAX_ZOOM" envDefault:"15" validate:"gte=0,lte=24"`
		RasterPrefix string        `env:"RASTER_PREFIX" envDefault:""`
		Resample     bool          `env:"RESAMPLE" envDefault:"true"`
		Filter       string        `env:"FILTER" envDefault:"bilinear" validate:"oneof=nearest bilinear"`
		Azimuth      float64       `env:"AZIMUTH" envDefault:"315"`
		Altitude     float64       `env:"ALTITUDE" envDefault:"45" validate:"gte=0,lte=90"`
		Retries      int           `env:"RETRIES" envDefault:"3" validate:"gte=1"`
		Timeout      time.Duration `env:"TIMEOUT" envDefault:"30s"`
		Backoff      time.Duration `env:"BACKOFF" envDefault:"500ms"`
	}

	Cache struct {
		Backend      string `env:"BACKEND" envDefault:"s3" validate:"oneof=s3 disk sqlite redis memory"`
		Bucket       string `env:"BUCKET" envDefault:"hillshades.openterrain.org" validate:"required_if=Backend s3"`
		Region       string `env:"REGION" envDefault:"us-east-1"`
		ACL          string `env:"ACL" envDefault:"public-read"`
		CacheControl string `env:"CONTROL" envDefault:"public, max-age=2592000"`
		StorageClass string `env:"STORAGE_CLASS" envDefault:"REDUCED_REDUNDANCY"`
		Disk         Disk   `envPrefix:"DISK_"`
		SQLite       SQLite `envPrefix:"SQLITE_"`
		Redis        Redis  `envPrefix:"REDIS_"`
	}

	Disk struct {
		Root string `env:"ROOT" envDefault:"./tiles"`
	}

	SQLite struct {
		Path string `env:"PATH" envDefault:"./hillshades.db"`
	}

	Redis struct {
		Addr     string        `env:"ADDR" envDefault:"localhost:6379"`
		Password string        `env:"PASSWORD" envDefault:""`
		DB       int           `env:"DB" envDefault:"0"`
		TTL      time.Duration `env:"TTL" envDefault:"720h"`
	}
)

func New() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Printf("NOTICE: .env file not found or cannot be loaded: %v\n", err)
	}

	return Parse()
}

// Parse reads the configuration from the environment only.
func Parse() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Render.MaxZoom < c.Render.SourceZoom {
		return fmt.Errorf("invalid configuration: max zoom %d below source zoom %d", c.Render.MaxZoom, c.Render.SourceZoom)
	}

	// Both pyramids must describe the same pixel extent or windows map to the
	// wrong source pixels.
	sourceExtent := c.Source.TileSize << c.Source.MaxZoom
	renderExtent := c.Render.TileSize << c.Render.SourceZoom
	if sourceExtent != renderExtent {
		return fmt.Errorf("invalid configuration: source extent %d (%dpx << z%d) does not match render extent %d (%dpx << z%d)",
			sourceExtent, c.Source.TileSize, c.Source.MaxZoom, renderExtent, c.Render.TileSize, c.Render.SourceZoom)
	}
	return nil
}

// LoggerOptions returns the settings for the process logger.
func (c *Config) LoggerOptions() logger.Options {
	return logger.Options{
		Level:   c.Logger.Level,
		Format:  c.Logger.Format,
		Service: c.Telemetry.ServiceName,
	}
}

// Options converts the render settings into renderer options.
func (c *Config) Options() (hillshade.Options, error) {
	filter, err := hillshade.ParseFilter(c.Render.Filter)
	if err != nil {
		return hillshade.Options{}, err
	}

	opts := hillshade.DefaultOptions()
	opts.SourceZoom = c.Render.SourceZoom
	opts.TileSize = c.Render.TileSize
	opts.Buffer = c.Render.Buffer
	opts.MaxZoom = c.Render.MaxZoom
	opts.RasterPrefix = c.Render.RasterPrefix
	opts.Resample = c.Render.Resample
	opts.Filter = filter
	opts.Shade.Azimuth = c.Render.Azimuth
	opts.Shade.Altitude = c.Render.Altitude
	opts.Cache = hillshade.CacheSettings{
		CacheControl: c.Cache.CacheControl,
		StorageClass: c.Cache.StorageClass,
	}
	opts.Retry = hillshade.RetryPolicy{
		Attempts:   c.Render.Retries,
		Timeout:    c.Render.Timeout,
		Backoff:    c.Render.Backoff,
		MaxBackoff: 30 * time.Second,
	}

	return opts, nil
}
