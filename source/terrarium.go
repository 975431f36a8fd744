package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"math"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/tilezen/go-hillshades/hillshade"
)

// originShift is half the width of the Web Mercator plane in meters.
const originShift = 20037508.342789244

// NoDataValue fills the pixels of pyramid tiles that do not exist. It is the
// lowest elevation a Terrarium pixel can encode.
const NoDataValue = -32768.0

// Fetcher returns the raw bytes of one pyramid tile. A missing tile is
// reported as hillshade.ErrNoData.
type Fetcher interface {
	Fetch(ctx context.Context, z, x, y int) ([]byte, error)
}

// Terrarium reads elevation windows from a pyramid of Terrarium encoded PNG
// tiles. Native pixels live at MaxZoom; coarser reads use the overview level
// matching the decimation.
type Terrarium struct {
	fetcher     Fetcher
	maxZoom     int
	tileSize    int
	concurrency int
}

var _ hillshade.ElevationSource = (*Terrarium)(nil)

func NewTerrarium(fetcher Fetcher, maxZoom, tileSize, concurrency int) *Terrarium {
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Terrarium{
		fetcher:     fetcher,
		maxZoom:     maxZoom,
		tileSize:    tileSize,
		concurrency: concurrency,
	}
}

// DecodeElevation converts a Terrarium pixel into meters.
func DecodeElevation(r, g, b uint8) float64 {
	return float64(r)*256 + float64(g) + float64(b)/256 - 32768
}

func (t *Terrarium) Read(ctx context.Context, w hillshade.Window, width, height int) (*hillshade.ElevationGrid, error) {
	if width <= 0 || height <= 0 || w.Width() <= 0 || w.Height() <= 0 {
		return nil, fmt.Errorf("%w: empty window %+v", hillshade.ErrSourceUnavailable, w)
	}

	extent := t.tileSize << uint(t.maxZoom)
	if w.RowStart < 0 || w.ColStart < 0 || w.RowEnd > extent || w.ColEnd > extent {
		return nil, fmt.Errorf("%w: window %+v outside the %d pixel extent", hillshade.ErrNoData, w, extent)
	}

	level, shift := t.level(w, width, height)
	f := 1 << uint(shift)

	lw := hillshade.Window{
		RowStart: w.RowStart / f,
		RowEnd:   (w.RowEnd + f - 1) / f,
		ColStart: w.ColStart / f,
		ColEnd:   (w.ColEnd + f - 1) / f,
	}

	levelGrid, partial, err := t.mosaic(ctx, level, lw)
	if err != nil {
		return nil, err
	}

	grid := levelGrid
	if levelGrid.Width != width || levelGrid.Height != height {
		grid = decimate(levelGrid, width, height)
	}

	res := 2 * originShift / float64(extent)
	px := res * float64(w.Width()) / float64(width)
	py := res * float64(w.Height()) / float64(height)

	return &hillshade.ElevationGrid{
		Grid: *grid,
		Transform: hillshade.Affine{
			A: px,
			C: -originShift + float64(w.ColStart)*res,
			E: -py,
			F: originShift - float64(w.RowStart)*res,
		},
		DX:        px,
		DY:        py,
		NoData:    NoDataValue,
		HasNoData: partial,
	}, nil
}

// level picks the coarsest pyramid level that still has at least the
// requested resolution.
func (t *Terrarium) level(w hillshade.Window, width, height int) (int, int) {
	decimation := math.Min(float64(w.Width())/float64(width), float64(w.Height())/float64(height))
	shift := 0
	for shift < t.maxZoom && float64(int(1)<<uint(shift+1)) <= decimation {
		shift++
	}
	return t.maxZoom - shift, shift
}

// mosaic stitches the level z tiles covering w. Missing tiles are filled with
// NoDataValue and reported through partial; the read fails with ErrNoData only
// when none of them exist.
func (t *Terrarium) mosaic(ctx context.Context, z int, w hillshade.Window) (*hillshade.Grid, bool, error) {
	out := hillshade.NewGrid(w.Width(), w.Height())
	size := t.tileSize

	var total, missing atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(t.concurrency)

	for ty := w.RowStart / size; ty <= (w.RowEnd-1)/size; ty++ {
		for tx := w.ColStart / size; tx <= (w.ColEnd-1)/size; tx++ {
			total.Add(1)
			g.Go(func() error {
				data, err := t.fetcher.Fetch(ctx, z, tx, ty)
				if errors.Is(err, hillshade.ErrNoData) {
					missing.Add(1)
					t.fill(out, w, tx*size, ty*size)
					return nil
				}
				if err != nil {
					return err
				}

				img, err := png.Decode(bytes.NewReader(data))
				if err != nil {
					return fmt.Errorf("%w: decoding tile %d/%d/%d: %w", hillshade.ErrSourceUnavailable, z, tx, ty, err)
				}

				// Each tile writes a disjoint region of out.
				t.paste(out, img, w, tx*size, ty*size)
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, false, err
	}
	if missing.Load() == total.Load() {
		return nil, false, fmt.Errorf("%w: none of the %d tiles at z%d exist", hillshade.ErrNoData, total.Load(), z)
	}
	return out, missing.Load() > 0, nil
}

// fill marks the part of w covered by the tile at (originCol, originRow) as nodata.
func (t *Terrarium) fill(out *hillshade.Grid, w hillshade.Window, originCol, originRow int) {
	r0 := max(w.RowStart, originRow)
	r1 := min(w.RowEnd, originRow+t.tileSize)
	c0 := max(w.ColStart, originCol)
	c1 := min(w.ColEnd, originCol+t.tileSize)

	for row := r0; row < r1; row++ {
		cells := out.Row(row - w.RowStart)
		for col := c0; col < c1; col++ {
			cells[col-w.ColStart] = NoDataValue
		}
	}
}

func (t *Terrarium) paste(out *hillshade.Grid, img image.Image, w hillshade.Window, originCol, originRow int) {
	b := img.Bounds()

	r0 := max(w.RowStart, originRow)
	r1 := min(w.RowEnd, originRow+b.Dy())
	c0 := max(w.ColStart, originCol)
	c1 := min(w.ColEnd, originCol+b.Dx())

	rgba, fast := img.(*image.RGBA)
	nrgba, fastN := img.(*image.NRGBA)

	for row := r0; row < r1; row++ {
		y := b.Min.Y + row - originRow
		for col := c0; col < c1; col++ {
			x := b.Min.X + col - originCol

			var v float64
			switch {
			case fast:
				i := rgba.PixOffset(x, y)
				v = DecodeElevation(rgba.Pix[i], rgba.Pix[i+1], rgba.Pix[i+2])
			case fastN:
				i := nrgba.PixOffset(x, y)
				v = DecodeElevation(nrgba.Pix[i], nrgba.Pix[i+1], nrgba.Pix[i+2])
			default:
				r, g, bl, _ := img.At(x, y).RGBA()
				v = DecodeElevation(uint8(r>>8), uint8(g>>8), uint8(bl>>8))
			}

			out.Set(row-w.RowStart, col-w.ColStart, v)
		}
	}
}

// decimate takes the nearest sample for every output pixel.
func decimate(g *hillshade.Grid, width, height int) *hillshade.Grid {
	out := hillshade.NewGrid(width, height)
	for r := 0; r < height; r++ {
		sr := min(int((float64(r)+0.5)*float64(g.Height)/float64(height)), g.Height-1)
		for c := 0; c < width; c++ {
			sc := min(int((float64(c)+0.5)*float64(g.Width)/float64(width)), g.Width-1)
			out.Set(r, c, g.At(sr, sc))
		}
	}
	return out
}
