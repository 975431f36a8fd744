package tilepack

import (
	"context"
	"errors"
	"runtime"
	"sort"
	"sync"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"

	"github.com/tilezen/go-hillshades/hillshade"
)

type recordingPublisher struct {
	mu       sync.Mutex
	requests []hillshade.TileRequest
	fail     maptile.Tile
	unstored maptile.Tile
}

func (p *recordingPublisher) Publish(ctx context.Context, req hillshade.TileRequest) (*hillshade.Result, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()

	if req.Tile == p.fail {
		return nil, hillshade.ErrSourceUnavailable
	}
	if req.Tile == p.unstored {
		return &hillshade.Result{Key: req.String(), Data: []byte(req.String())}, nil
	}
	return &hillshade.Result{Key: req.String(), Location: "memory://" + req.String(), Data: []byte(req.String()), Published: true}, nil
}

func TestRenderJobGenerator(t *testing.T) {
	publisher := &recordingPublisher{fail: maptile.New(1, 1, 1), unstored: maptile.New(1, 0, 1)}
	world := orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}}

	gen, err := NewRenderJobGenerator(context.Background(), publisher, RenderJobOptions{
		Bounds: world,
		Zooms:  []maptile.Zoom{0, 1},
		Scale:  2,
		Skip: func(tile maptile.Tile) bool {
			return tile == maptile.New(0, 0, 1)
		},
	})
	if err != nil {
		t.Fatalf("NewRenderJobGenerator: %v", err)
	}

	jobs := make(chan *TileRequest, 10)
	results := make(chan *TileResponse, 10)

	worker, err := gen.CreateWorker()
	if err != nil {
		t.Fatalf("CreateWorker: %v", err)
	}

	if err := gen.CreateJobs(jobs); err != nil {
		t.Fatalf("CreateJobs: %v", err)
	}
	close(jobs)
	worker(0, jobs, results)
	close(results)

	var locations []string
	var failed, unpublished int
	for res := range results {
		if res.Err == nil && !res.Published {
			unpublished++
			if res.Location != "" || len(res.Data) == 0 {
				t.Errorf("unpublished response for %v = %+v", res.Tile, res)
			}
			continue
		}
		if res.Err != nil {
			failed++
			if !errors.Is(res.Err, hillshade.ErrSourceUnavailable) {
				t.Errorf("unexpected error %v", res.Err)
			}
			continue
		}
		locations = append(locations, res.Location)
	}
	sort.Strings(locations)

	want := []string{"memory://0/0/0@2x.png", "memory://1/0/1@2x.png"}
	if len(locations) != len(want) {
		t.Fatalf("locations = %v, want %v", locations, want)
	}
	for i := range want {
		if locations[i] != want[i] {
			t.Errorf("locations[%d] = %s, want %s", i, locations[i], want[i])
		}
	}
	if failed != 1 {
		t.Errorf("expected 1 failure, got %d", failed)
	}
	if unpublished != 1 {
		t.Errorf("expected 1 unpublished tile, got %d", unpublished)
	}
	if len(publisher.requests) != 4 {
		t.Errorf("expected 4 publish calls, got %d", len(publisher.requests))
	}
}

func TestRenderJobGenerator_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	gen, err := NewRenderJobGenerator(ctx, &recordingPublisher{}, RenderJobOptions{
		Bounds: orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}},
		Zooms:  []maptile.Zoom{0, 1, 2, 3, 4, 5, 6, 7, 8},
	})
	if err != nil {
		t.Fatalf("NewRenderJobGenerator: %v", err)
	}

	// Nothing drains the queue, so CreateJobs blocks after three tiles
	// until the context is cancelled.
	jobs := make(chan *TileRequest, 3)
	done := make(chan error, 1)
	go func() {
		done <- gen.CreateJobs(jobs)
	}()

	for len(jobs) < cap(jobs) {
		runtime.Gosched()
	}
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("CreateJobs() error = %v, want context.Canceled", err)
	}
	if len(jobs) != 3 {
		t.Errorf("queued %d jobs, want 3", len(jobs))
	}
}
