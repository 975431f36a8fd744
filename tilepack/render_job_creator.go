package tilepack

import (
	"context"
	"math/rand"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"

	"github.com/tilezen/go-hillshades/hillshade"
)

type RenderJobOptions struct {
	Bounds orb.Bound
	Zooms  []maptile.Zoom
	Scale  int
	Format string
	// Skip, when set, drops tiles that are already done.
	Skip func(maptile.Tile) bool
	// Jitter is the upper bound of the pause between renders in one worker.
	Jitter time.Duration
}

// NewRenderJobGenerator returns a generator whose workers publish every
// tile in the configured range.
func NewRenderJobGenerator(ctx context.Context, publisher hillshade.TilePublisher, opts RenderJobOptions) (JobGenerator, error) {
	if opts.Scale == 0 {
		opts.Scale = 1
	}
	if opts.Format == "" {
		opts.Format = hillshade.FormatPNG
	}

	return &renderJobGenerator{
		ctx:       ctx,
		publisher: publisher,
		opts:      opts,
	}, nil
}

type renderJobGenerator struct {
	ctx       context.Context
	publisher hillshade.TilePublisher
	opts      RenderJobOptions
}

func (g *renderJobGenerator) CreateWorker() (func(id int, jobs chan *TileRequest, results chan *TileResponse), error) {
	f := func(id int, jobs chan *TileRequest, results chan *TileResponse) {
		for request := range jobs {
			start := time.Now()

			res, err := g.publisher.Publish(g.ctx, hillshade.TileRequest{
				Tile:   request.Tile,
				Scale:  g.opts.Scale,
				Format: g.opts.Format,
			})

			resp := &TileResponse{
				Tile:    request.Tile,
				Elapsed: time.Since(start).Seconds(),
				Err:     err,
			}
			if err == nil {
				resp.Data = res.Data
				resp.Location = res.Location
				resp.Cached = res.Cached
				resp.Published = res.Published
			}
			results <- resp

			// Sleep a tiny bit to try to prevent thundering herd
			if g.opts.Jitter > 0 {
				time.Sleep(time.Duration(rand.Int63n(int64(g.opts.Jitter))))
			}
		}
	}

	return f, nil
}

// CreateJobs queues every tile in range that Skip does not drop. It stops
// and returns the context error once the generator's context is done.
func (g *renderJobGenerator) CreateJobs(jobs chan *TileRequest) error {
	return GenerateTiles(&GenerateTilesOptions{
		Bounds: g.opts.Bounds,
		Zooms:  g.opts.Zooms,
		ConsumerFunc: func(tile maptile.Tile) error {
			if g.opts.Skip != nil && g.opts.Skip(tile) {
				return nil
			}

			select {
			case jobs <- &TileRequest{Tile: tile}:
				return nil
			case <-g.ctx.Done():
				return g.ctx.Err()
			}
		},
	})
}
