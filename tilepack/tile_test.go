package tilepack

import (
	"errors"
	"reflect"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

func TestGenerateTiles(t *testing.T) {
	world := orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}}

	tests := []struct {
		name     string
		bounds   orb.Bound
		zooms    []maptile.Zoom
		inverted bool
		want     []maptile.Tile
	}{
		{"z0 global", world, []maptile.Zoom{0}, false, []maptile.Tile{maptile.New(0, 0, 0)}},
		{
			"z1 global",
			world,
			[]maptile.Zoom{1},
			false,
			[]maptile.Tile{maptile.New(0, 0, 1), maptile.New(0, 1, 1), maptile.New(1, 0, 1), maptile.New(1, 1, 1)},
		},
		{
			"north west quadrant",
			orb.Bound{Min: orb.Point{-170, 10}, Max: orb.Point{-10, 80}},
			[]maptile.Zoom{1},
			false,
			[]maptile.Tile{maptile.New(0, 0, 1)},
		},
		{
			"north west quadrant tms",
			orb.Bound{Min: orb.Point{-170, 10}, Max: orb.Point{-10, 80}},
			[]maptile.Zoom{1},
			true,
			[]maptile.Tile{maptile.New(0, 1, 1)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []maptile.Tile
			err := GenerateTiles(&GenerateTilesOptions{
				Bounds:    tt.bounds,
				Zooms:     tt.zooms,
				InvertedY: tt.inverted,
				ConsumerFunc: func(tile maptile.Tile) error {
					got = append(got, tile)
					return nil
				},
			})
			if err != nil {
				t.Fatalf("GenerateTiles() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("GenerateTiles() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGenerateTiles_Stop(t *testing.T) {
	stop := errors.New("stop")

	var seen int
	err := GenerateTiles(&GenerateTilesOptions{
		Bounds: orb.Bound{Min: orb.Point{-180, -85}, Max: orb.Point{180, 85}},
		Zooms:  []maptile.Zoom{0, 1, 2},
		ConsumerFunc: func(tile maptile.Tile) error {
			seen++
			if seen == 3 {
				return stop
			}
			return nil
		},
	})
	if !errors.Is(err, stop) {
		t.Fatalf("GenerateTiles() error = %v, want %v", err, stop)
	}
	if seen != 3 {
		t.Errorf("consumer called %d times after stopping, want 3", seen)
	}
}

func TestGenerateTileRanges_Antimeridian(t *testing.T) {
	var ranges int
	GenerateTileRanges(&GenerateRangesOptions{
		Bounds: orb.Bound{Min: orb.Point{170, -10}, Max: orb.Point{-170, 10}},
		Zooms:  []maptile.Zoom{2},
		ConsumerFunc: func(minTile, maxTile maptile.Tile, z maptile.Zoom) {
			ranges++
			if minTile.X > maxTile.X || minTile.Y > maxTile.Y {
				t.Errorf("range %v-%v is not ordered", minTile, maxTile)
			}
		},
	})
	if ranges != 2 {
		t.Errorf("expected the box to be split in 2, got %d", ranges)
	}
}

func TestFlipY(t *testing.T) {
	tests := []struct {
		y    uint32
		z    maptile.Zoom
		want uint32
	}{
		{0, 0, 0},
		{0, 1, 1},
		{1583, 12, 2512},
	}
	for _, tt := range tests {
		if got := FlipY(tt.y, tt.z); got != tt.want {
			t.Errorf("FlipY(%d, %d) = %d, want %d", tt.y, tt.z, got, tt.want)
		}
	}
}
