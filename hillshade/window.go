package hillshade

import (
	"fmt"

	"github.com/paulmach/orb/maptile"
)

// Window is a half-open rectangle of source raster pixels.
type Window struct {
	RowStart, RowEnd int
	ColStart, ColEnd int
}

func (w Window) Width() int  { return w.ColEnd - w.ColStart }
func (w Window) Height() int { return w.RowEnd - w.RowStart }

// BufferSpec holds the realized per-side margins in destination pixels.
type BufferSpec struct {
	Top, Bottom, Left, Right int
}

// Placement describes where a tile lives in the source raster.
type Placement struct {
	Tile       maptile.Tile
	Unbuffered Window
	Window     Window
	Buffer     BufferSpec
	Scale      int
	Width      int
	Height     int
}

// WindowMapper maps tile addresses onto the source raster, which is a
// 2^SourceZoom by 2^SourceZoom grid of TileWidth x TileHeight pixel tiles.
type WindowMapper struct {
	SourceZoom int
	TileWidth  int
	TileHeight int
	Buffer     int
}

func (m WindowMapper) extent() (int, int) {
	n := 1 << uint(m.SourceZoom)
	return n * m.TileWidth, n * m.TileHeight
}

func (m WindowMapper) Map(t maptile.Tile) (Placement, error) {
	dz := m.SourceZoom - int(t.Z)
	if dz < 0 {
		return Placement{}, fmt.Errorf("%w: zoom %d is finer than source zoom %d", ErrUnsupportedZoomDelta, t.Z, m.SourceZoom)
	}

	scale := 1 << uint(dz)
	maxCol, maxRow := m.extent()

	u := Window{
		RowStart: int(t.Y) * m.TileHeight * scale,
		RowEnd:   (int(t.Y) + 1) * m.TileHeight * scale,
		ColStart: int(t.X) * m.TileWidth * scale,
		ColEnd:   (int(t.X) + 1) * m.TileWidth * scale,
	}

	var b BufferSpec
	if u.RowStart > 0 {
		b.Top = m.Buffer
	}
	if u.RowEnd < maxRow {
		b.Bottom = m.Buffer
	}
	if u.ColStart > 0 {
		b.Left = m.Buffer
	}
	if u.ColEnd < maxCol {
		b.Right = m.Buffer
	}

	w := Window{
		RowStart: u.RowStart - b.Top*scale,
		RowEnd:   u.RowEnd + b.Bottom*scale,
		ColStart: u.ColStart - b.Left*scale,
		ColEnd:   u.ColEnd + b.Right*scale,
	}

	return Placement{
		Tile:       t,
		Unbuffered: u,
		Window:     w,
		Buffer:     b,
		Scale:      scale,
		Width:      m.TileWidth + b.Left + b.Right,
		Height:     m.TileHeight + b.Top + b.Bottom,
	}, nil
}
