package hillshade

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/paulmach/orb/maptile"
)

const (
	FormatPNG  = "png"
	FormatTIFF = "tif"
)

var tileNameRegex = regexp.MustCompile(`^(\d+)(?:@(\d+)x)?\.([A-Za-z0-9]+)$`)

type TileRequest struct {
	Tile   maptile.Tile
	Scale  int
	Format string
}

func (r TileRequest) String() string {
	return StyleKey("", r.Tile, r.Scale, r.Format)[1:]
}

// ParseTileRequest parses path components of the form z, x and "y[@Nx].format"
// and validates the result against maxZoom.
func ParseTileRequest(zStr, xStr, name string, maxZoom int) (TileRequest, error) {
	var req TileRequest

	match := tileNameRegex.FindStringSubmatch(name)
	if match == nil {
		return req, fmt.Errorf("%w: malformed tile name %q", ErrInvalidRequest, name)
	}

	z, err := strconv.ParseUint(zStr, 10, 8)
	if err != nil {
		return req, fmt.Errorf("%w: bad zoom %q", ErrInvalidRequest, zStr)
	}
	x, err := strconv.ParseUint(xStr, 10, 32)
	if err != nil {
		return req, fmt.Errorf("%w: bad column %q", ErrInvalidRequest, xStr)
	}
	y, err := strconv.ParseUint(match[1], 10, 32)
	if err != nil {
		return req, fmt.Errorf("%w: bad row %q", ErrInvalidRequest, match[1])
	}

	scale := 1
	if match[2] != "" {
		scale, err = strconv.Atoi(match[2])
		if err != nil {
			return req, fmt.Errorf("%w: bad scale %q", ErrInvalidRequest, match[2])
		}
	}

	req = TileRequest{
		Tile:   maptile.New(uint32(x), uint32(y), maptile.Zoom(z)),
		Scale:  scale,
		Format: match[3],
	}

	return req, req.Validate(maxZoom)
}

func (r TileRequest) Validate(maxZoom int) error {
	switch r.Format {
	case FormatPNG, FormatTIFF:
	default:
		return fmt.Errorf("%w: unsupported format %q", ErrInvalidRequest, r.Format)
	}

	if int(r.Tile.Z) > maxZoom {
		return fmt.Errorf("%w: zoom %d outside [0, %d]", ErrInvalidRequest, r.Tile.Z, maxZoom)
	}

	if r.Scale <= 0 || r.Scale > 2 {
		return fmt.Errorf("%w: scale %d outside (0, 2]", ErrInvalidRequest, r.Scale)
	}

	if !validTile(r.Tile) {
		return fmt.Errorf("%w: tile %d/%d/%d out of range", ErrInvalidRequest, r.Tile.Z, r.Tile.X, r.Tile.Y)
	}

	return nil
}

func contentType(format string) string {
	switch format {
	case FormatTIFF:
		return "image/tiff"
	default:
		return "image/png"
	}
}
