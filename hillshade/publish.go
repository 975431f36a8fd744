package hillshade

import (
	"context"
	"fmt"
	"image"
)

// Style is a named colorization of the hillshade raster.
type Style struct {
	Name   string
	Ramp   ColorRamp
	Prefix string
	// Retina styles publish an @2x variant next to every standard tile.
	Retina bool
	// SurrogateKey, when set, tags artifacts for CDN purges by style and zoom.
	SurrogateKey string
}

func DefaultStyles() map[string]Style {
	return map[string]Style{
		"positron": {
			Name:   "positron",
			Ramp:   Positron,
			Prefix: "positron",
			Retina: true,
		},
		"darkmatter": {
			Name:   "darkmatter",
			Ramp:   DarkMatter,
			Prefix: "darkmatter",
			Retina: true,
		},
		"grey-hills": {
			Name:         "grey-hills",
			Ramp:         GreyHills,
			Prefix:       "terrain-grey-hills",
			Retina:       true,
			SurrogateKey: "terrain-grey-hills",
		},
	}
}

// Result is the outcome of a publish. Data holds the encoded bytes of the
// requested variant; Location is set only when the artifact was stored.
type Result struct {
	Key         string
	Location    string
	ContentType string
	Data        []byte
	Cached      bool
	Published   bool
}

// Publisher renders and publishes one style.
type Publisher struct {
	renderer *Renderer
	style    Style
}

func NewPublisher(renderer *Renderer, style Style) *Publisher {
	return &Publisher{
		renderer: renderer,
		style:    style,
	}
}

func (p *Publisher) Style() Style {
	return p.style
}

// Validate checks req against this style without doing any I/O.
func (p *Publisher) Validate(req TileRequest) error {
	if err := req.Validate(p.renderer.opts.MaxZoom); err != nil {
		return err
	}
	if req.Scale > 1 && !p.style.Retina {
		return fmt.Errorf("%w: style %s has no @%dx variant", ErrInvalidRequest, p.style.Name, req.Scale)
	}
	return nil
}

// Publish returns the requested tile, rendering and publishing it when it is
// not already cached. For retina styles the @2x artifact is stored before
// the standard one. Publish failures are reported, not returned.
func (p *Publisher) Publish(ctx context.Context, req TileRequest) (*Result, error) {
	if err := p.Validate(req); err != nil {
		return nil, err
	}

	r := p.renderer
	key := StyleKey(p.style.Prefix, req.Tile, req.Scale, req.Format)

	// The styled key is checked before the raster, so a warm tile never
	// touches the raster cache or the elevation source.
	cached := r.lookup(ctx, key, p.style.Name)
	switch cached.Status {
	case Found:
		return r.result(key, req.Format, cached.Data, true, true), nil
	case LookupFailed:
		r.logger.Warn("tile lookup failed, rendering", "key", key, "error", cached.Err)
		r.report(ctx, cached.Err)
	}

	gray, err := r.Hillshade(ctx, req.Tile)
	if err != nil {
		return nil, err
	}

	colored := p.style.Ramp.Apply(gray)

	if !p.style.Retina {
		return p.publish(ctx, key, req, colored)
	}

	hiKey := StyleKey(p.style.Prefix, req.Tile, 2, req.Format)
	hi, err := p.publish(ctx, hiKey, req, colored)
	if err != nil || req.Scale == 2 {
		return hi, err
	}

	return p.publish(ctx, key, req, HalfSize(colored))
}

func (p *Publisher) publish(ctx context.Context, key string, req TileRequest, img image.Image) (*Result, error) {
	r := p.renderer

	data, err := EncodeImage(img, req.Format)
	if err != nil {
		r.report(ctx, err)
		return nil, err
	}

	err = r.put(ctx, Artifact{
		Key:          key,
		Data:         data,
		ContentType:  contentType(req.Format),
		CacheControl: r.opts.Cache.CacheControl,
		StorageClass: r.opts.Cache.StorageClass,
		Metadata:     p.metadata(req),
	}, p.style.Name)

	return r.result(key, req.Format, data, false, err == nil), nil
}

func (p *Publisher) metadata(req TileRequest) map[string]string {
	if p.style.SurrogateKey == "" {
		return nil
	}
	sk := p.style.SurrogateKey
	return map[string]string{
		"Surrogate-Key": fmt.Sprintf("%s %s/z%d", sk, sk, req.Tile.Z),
	}
}

// TilePublisher is implemented by Publisher and RasterPublisher.
type TilePublisher interface {
	Publish(ctx context.Context, req TileRequest) (*Result, error)
}

// RasterPublisher publishes only the uncolored raster artifact.
type RasterPublisher struct {
	renderer *Renderer
}

func NewRasterPublisher(renderer *Renderer) *RasterPublisher {
	return &RasterPublisher{renderer: renderer}
}

func (p *RasterPublisher) Publish(ctx context.Context, req TileRequest) (*Result, error) {
	if err := req.Validate(p.renderer.opts.MaxZoom); err != nil {
		return nil, err
	}
	if req.Format != FormatTIFF || req.Scale != 1 {
		return nil, fmt.Errorf("%w: raster tiles are only published as 1x %s", ErrInvalidRequest, FormatTIFF)
	}
	return p.renderer.PublishRaster(ctx, req.Tile)
}
