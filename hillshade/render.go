package hillshade

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strconv"
	"time"

	"github.com/paulmach/orb/maptile"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tilezen/go-hillshades/logger"
	"github.com/tilezen/go-hillshades/metrics"
)

const tracerName = "github.com/tilezen/go-hillshades/hillshade"

type Options struct {
	SourceZoom   int
	TileSize     int
	Buffer       int
	MaxZoom      int
	RasterPrefix string
	Resample     bool
	Filter       Filter
	Shade        ShadeOptions
	Cache        CacheSettings
	Retry        RetryPolicy
}

func DefaultOptions() Options {
	return Options{
		SourceZoom: 14,
		TileSize:   512,
		Buffer:     2,
		MaxZoom:    15,
		Resample:   true,
		Filter:     FilterBilinear,
		Shade:      DefaultShadeOptions(),
		Cache:      DefaultCacheSettings(),
		Retry:      DefaultRetryPolicy(),
	}
}

// Renderer turns tile addresses into 8-bit hillshade rasters. It holds no
// per-request state and is safe for concurrent use.
type Renderer struct {
	opts     Options
	mapper   WindowMapper
	source   ElevationSource
	cache    TileCache
	logger   logger.Logger
	reporter ErrorReporter
	tracer   trace.Tracer
}

type RendererOption func(*Renderer)

func WithLogger(l logger.Logger) RendererOption {
	return func(r *Renderer) {
		r.logger = l
	}
}

func WithReporter(reporter ErrorReporter) RendererOption {
	return func(r *Renderer) {
		r.reporter = reporter
	}
}

func NewRenderer(source ElevationSource, cache TileCache, opts Options, options ...RendererOption) *Renderer {
	r := &Renderer{
		opts: opts,
		mapper: WindowMapper{
			SourceZoom: opts.SourceZoom,
			TileWidth:  opts.TileSize,
			TileHeight: opts.TileSize,
			Buffer:     opts.Buffer,
		},
		source:   source,
		cache:    cache,
		logger:   logger.Nop(),
		reporter: NopReporter(),
		tracer:   otel.Tracer(tracerName),
	}

	for _, o := range options {
		o(r)
	}

	return r
}

func (r *Renderer) Options() Options {
	return r.opts
}

func (r *Renderer) Cache() TileCache {
	return r.cache
}

// Render computes the hillshade for t without touching the cache.
func (r *Renderer) Render(ctx context.Context, t maptile.Tile) (*image.Gray, error) {
	if !validTile(t) {
		return nil, fmt.Errorf("%w: tile %d/%d/%d out of range", ErrInvalidRequest, t.Z, t.X, t.Y)
	}

	ctx, span := r.tracer.Start(ctx, "hillshade.render", trace.WithAttributes(
		attribute.Int("tile.z", int(t.Z)),
		attribute.Int("tile.x", int(t.X)),
		attribute.Int("tile.y", int(t.Y)),
	))
	defer span.End()

	start := time.Now()
	l := r.logger.With("tile", fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y))

	p, err := r.mapper.Map(t)
	if err != nil {
		metrics.Renders.WithLabelValues("rejected").Inc()
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	elev, err := r.read(ctx, p, l)
	if err != nil {
		metrics.Renders.WithLabelValues("failed").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	img := r.shade(p, elev)

	metrics.Renders.WithLabelValues("ok").Inc()
	metrics.RenderDuration.WithLabelValues(strconv.Itoa(int(t.Z))).Observe(time.Since(start).Seconds())
	l.Debug("rendered hillshade", "scale", p.Scale, "elapsed", time.Since(start))

	return img, nil
}

func (r *Renderer) read(ctx context.Context, p Placement, l logger.Logger) (*ElevationGrid, error) {
	ctx, span := r.tracer.Start(ctx, "source.read")
	defer span.End()

	var elev *ElevationGrid
	err := r.opts.Retry.do(ctx, func(ctx context.Context) error {
		g, err := r.source.Read(ctx, p.Window, p.Width, p.Height)
		if err != nil {
			l.Warn("elevation read failed", "window", p.Window, "error", err)
			return err
		}
		elev = g
		return nil
	})

	if err == nil && (elev.Width != p.Width || elev.Height != p.Height) {
		err = fmt.Errorf("source returned %dx%d, want %dx%d", elev.Width, elev.Height, p.Width, p.Height)
	}

	if err != nil {
		metrics.SourceReads.WithLabelValues("error").Inc()
		span.RecordError(err)
		if !errors.Is(err, ErrSourceUnavailable) {
			err = fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
		}
		return nil, err
	}

	metrics.SourceReads.WithLabelValues("ok").Inc()
	return elev, nil
}

// shade runs the numeric part of the pipeline on a copy of src.
func (r *Renderer) shade(p Placement, src *ElevationGrid) *image.Gray {
	z := int(p.Tile.Z)

	elev := *src
	elev.Grid = *src.Grid.Clone()

	Condition(&elev)
	CorrectLatitude(&elev, LatitudeFactors(p.Tile.Bound(), elev.Height, p.Buffer))

	surface := &elev.Grid
	dx, dy := elev.DX, elev.DY

	factor := 1.0
	if r.opts.Resample {
		factor = ResampleFactor(z)
	}

	resampler := Resampler{Filter: r.opts.Filter}
	if factor != 1 {
		surface = resampler.Shrink(surface, factor)
		dx /= factor
		dy /= factor
	}

	opts := r.opts.Shade
	opts.VerticalExaggeration = Exaggeration(z)
	opts.DX = dx
	opts.DY = dy

	intensity := Shade(surface, opts)

	if factor != 1 {
		intensity = resampler.Restore(intensity, elev.Width, elev.Height, factor)
	}

	return Quantize(intensity.Crop(p.Buffer))
}

// Hillshade returns the raster for t, reading through the raster cache.
func (r *Renderer) Hillshade(ctx context.Context, t maptile.Tile) (*image.Gray, error) {
	img, _, err := r.raster(ctx, t)
	return img, err
}

// PublishRaster returns the encoded raster for t and where it is stored.
func (r *Renderer) PublishRaster(ctx context.Context, t maptile.Tile) (*Result, error) {
	_, res, err := r.raster(ctx, t)
	return res, err
}

func (r *Renderer) raster(ctx context.Context, t maptile.Tile) (*image.Gray, *Result, error) {
	if int(t.Z) > r.opts.MaxZoom || !validTile(t) {
		return nil, nil, fmt.Errorf("%w: tile %d/%d/%d out of range", ErrInvalidRequest, t.Z, t.X, t.Y)
	}

	key := RasterKey(r.opts.RasterPrefix, t)

	res := r.lookup(ctx, key, "raster")
	switch res.Status {
	case Found:
		img, err := DecodeRaster(res.Data)
		if err == nil && img.Bounds().Dx() == r.opts.TileSize && img.Bounds().Dy() == r.opts.TileSize {
			return img, r.result(key, FormatTIFF, res.Data, true, true), nil
		}
		r.logger.Warn("discarding unreadable cached raster", "key", key, "error", err)
	case LookupFailed:
		r.logger.Warn("raster lookup failed, rendering", "key", key, "error", res.Err)
		r.report(ctx, res.Err)
	}

	img, err := r.Render(ctx, t)
	if err != nil {
		r.report(ctx, err)
		return nil, nil, err
	}

	data, err := EncodeRaster(img)
	if err != nil {
		r.report(ctx, err)
		return nil, nil, err
	}

	err = r.put(ctx, Artifact{
		Key:          key,
		Data:         data,
		ContentType:  contentType(FormatTIFF),
		CacheControl: r.opts.Cache.CacheControl,
		StorageClass: r.opts.Cache.StorageClass,
	}, "raster")

	return img, r.result(key, FormatTIFF, data, false, err == nil), nil
}

func (r *Renderer) result(key, format string, data []byte, cached, published bool) *Result {
	res := &Result{
		Key:         key,
		Data:        data,
		ContentType: contentType(format),
		Cached:      cached,
		Published:   published,
	}
	if published {
		res.Location = r.cache.Location(key)
	}
	return res
}

func (r *Renderer) lookup(ctx context.Context, key, kind string) LookupResult {
	ctx, span := r.tracer.Start(ctx, "cache.lookup", trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()

	var res LookupResult
	_ = r.opts.Retry.do(ctx, func(ctx context.Context) error {
		res = r.cache.Lookup(ctx, key)
		if res.Status == LookupFailed {
			return res.Err
		}
		return nil
	})

	metrics.CacheLookups.WithLabelValues(kind, res.Status.String()).Inc()
	if res.Status == LookupFailed {
		span.RecordError(res.Err)
	}
	return res
}

// put publishes a, reporting rather than returning the failure. In-flight
// writes run to completion even if ctx is cancelled.
func (r *Renderer) put(ctx context.Context, a Artifact, kind string) error {
	ctx, span := r.tracer.Start(context.WithoutCancel(ctx), "cache.put", trace.WithAttributes(attribute.String("cache.key", a.Key)))
	defer span.End()

	err := r.opts.Retry.do(ctx, func(ctx context.Context) error {
		return r.cache.Put(ctx, a)
	})

	if err != nil {
		if !errors.Is(err, ErrCacheIO) {
			err = fmt.Errorf("%w: %w", ErrCacheIO, err)
		}
		metrics.CachePuts.WithLabelValues(kind, "error").Inc()
		span.RecordError(err)
		r.logger.Error("publish failed", "key", a.Key, "error", err)
		r.report(ctx, err)
		return err
	}

	metrics.CachePuts.WithLabelValues(kind, "ok").Inc()
	r.logger.Debug("published", "key", a.Key, "bytes", len(a.Data))
	return nil
}

func (r *Renderer) report(ctx context.Context, err error) {
	if expected(err) {
		return
	}
	metrics.ReportedErrors.Inc()
	r.reporter.Report(ctx, err)
}
