package hillshade

import (
	"errors"
	"reflect"
	"testing"

	"github.com/paulmach/orb/maptile"
)

var testMapper = WindowMapper{SourceZoom: 14, TileWidth: 512, TileHeight: 512, Buffer: 2}

func TestWindowMapper_Map(t *testing.T) {
	tests := []struct {
		name   string
		tile   maptile.Tile
		window Window
		buffer BufferSpec
		scale  int
	}{
		{
			"interior source tile",
			maptile.New(1, 1, 14),
			Window{RowStart: 510, RowEnd: 1026, ColStart: 510, ColEnd: 1026},
			BufferSpec{2, 2, 2, 2},
			1,
		},
		{
			"north west corner",
			maptile.New(0, 0, 14),
			Window{RowStart: 0, RowEnd: 514, ColStart: 0, ColEnd: 514},
			BufferSpec{Top: 0, Bottom: 2, Left: 0, Right: 2},
			1,
		},
		{
			"south east corner at z13",
			maptile.New(8191, 8191, 13),
			Window{RowStart: 8191*1024 - 4, RowEnd: 8192 * 1024, ColStart: 8191*1024 - 4, ColEnd: 8192 * 1024},
			BufferSpec{Top: 2, Bottom: 0, Left: 2, Right: 0},
			2,
		},
		{
			"whole world",
			maptile.New(0, 0, 0),
			Window{RowStart: 0, RowEnd: 512 << 14, ColStart: 0, ColEnd: 512 << 14},
			BufferSpec{},
			1 << 14,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := testMapper.Map(tt.tile)
			if err != nil {
				t.Fatalf("Map() error = %v", err)
			}
			if got.Window != tt.window {
				t.Errorf("Map() window = %+v, want %+v", got.Window, tt.window)
			}
			if !reflect.DeepEqual(got.Buffer, tt.buffer) {
				t.Errorf("Map() buffer = %+v, want %+v", got.Buffer, tt.buffer)
			}
			if got.Scale != tt.scale {
				t.Errorf("Map() scale = %d, want %d", got.Scale, tt.scale)
			}
			if got.Width != 512+tt.buffer.Left+tt.buffer.Right || got.Height != 512+tt.buffer.Top+tt.buffer.Bottom {
				t.Errorf("Map() shape = %dx%d, inconsistent with buffer %+v", got.Width, got.Height, got.Buffer)
			}
		})
	}
}

func TestWindowMapper_MapCoversTile(t *testing.T) {
	for z := maptile.Zoom(0); z <= 14; z++ {
		n := uint32(1) << z
		for _, xy := range [][2]uint32{{0, 0}, {n / 2, n / 3}, {n - 1, n - 1}} {
			p, err := testMapper.Map(maptile.New(xy[0], xy[1], z))
			if err != nil {
				t.Fatalf("Map(%d/%d/%d) error = %v", z, xy[0], xy[1], err)
			}

			if p.Unbuffered.Width() != 512*p.Scale || p.Unbuffered.Height() != 512*p.Scale {
				t.Errorf("z%d: unbuffered window %+v is not one tile at scale %d", z, p.Unbuffered, p.Scale)
			}
			if p.Window.Width() != p.Width*p.Scale || p.Window.Height() != p.Height*p.Scale {
				t.Errorf("z%d: window %+v does not decimate to %dx%d", z, p.Window, p.Width, p.Height)
			}
			if p.Window.RowStart < 0 || p.Window.ColStart < 0 || p.Window.RowEnd > 512<<14 || p.Window.ColEnd > 512<<14 {
				t.Errorf("z%d: window %+v leaves the source extent", z, p.Window)
			}
			if (p.Buffer.Top == 0) != (xy[1] == 0) || (p.Buffer.Left == 0) != (xy[0] == 0) {
				t.Errorf("z%d: buffer %+v wrong for tile %v", z, p.Buffer, xy)
			}
		}
	}
}

func TestWindowMapper_UnsupportedZoomDelta(t *testing.T) {
	_, err := testMapper.Map(maptile.New(0, 0, 15))
	if !errors.Is(err, ErrUnsupportedZoomDelta) {
		t.Errorf("Map() at z15 error = %v, want ErrUnsupportedZoomDelta", err)
	}
}
