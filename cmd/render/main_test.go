package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/tilezen/go-hillshades/app"
	"github.com/tilezen/go-hillshades/hillshade"
	"github.com/tilezen/go-hillshades/store"
)

type flatSource struct{}

func (flatSource) Read(ctx context.Context, w hillshade.Window, width, height int) (*hillshade.ElevationGrid, error) {
	g := hillshade.NewGrid(width, height)
	return &hillshade.ElevationGrid{Grid: *g, DX: 30, DY: 30}, nil
}

func testApp() *app.App {
	opts := hillshade.DefaultOptions()
	opts.Retry = hillshade.RetryPolicy{Attempts: 1}
	return app.Assemble(flatSource{}, store.NewMemory(), opts)
}

func Test_render(t *testing.T) {
	a := testApp()

	tests := []struct {
		style string
		tile  string
		key   string
	}{
		{"grey-hills", "12/654/1583@2x.png", "terrain-grey-hills/12/654/1583@2x.png"},
		{"positron", "/3/2/1.png", "positron/3/2/1.png"},
		{"hillshade", "3/2/1.tif", "3/2/1.tif"},
	}

	for _, tt := range tests {
		t.Run(tt.style, func(t *testing.T) {
			publisher, err := publisherFor(a, tt.style)
			if err != nil {
				t.Fatalf("publisherFor: %v", err)
			}

			var buf bytes.Buffer
			if err := render(context.Background(), &buf, publisher, tt.tile, 15); err != nil {
				t.Fatalf("render: %v", err)
			}

			var out output
			if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
				t.Fatalf("invalid output %q: %v", buf.String(), err)
			}
			if out.Key != tt.key || out.Location != "memory://"+tt.key {
				t.Errorf("unexpected output %+v", out)
			}
		})
	}
}

func Test_renderInvalid(t *testing.T) {
	a := testApp()

	if _, err := publisherFor(a, "toner"); err == nil {
		t.Error("expected error for unknown style")
	}

	publisher, _ := publisherFor(a, "positron")
	for _, tile := range []string{"3/2", "3/2/1.gif", "3/9/1.png"} {
		err := render(context.Background(), &bytes.Buffer{}, publisher, tile, 15)
		if !errors.Is(err, hillshade.ErrInvalidRequest) {
			t.Errorf("render(%q) error = %v, want ErrInvalidRequest", tile, err)
		}
	}
}
