package hillshade

import (
	"fmt"

	"github.com/paulmach/orb/maptile"
)

// RasterKey is the cache key of the 8-bit hillshade raster for t.
func RasterKey(prefix string, t maptile.Tile) string {
	key := fmt.Sprintf("%d/%d/%d.tif", t.Z, t.X, t.Y)
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}

// StyleKey is the cache key of a colorized tile. A scale of 1 has no density suffix.
func StyleKey(style string, t maptile.Tile, scale int, format string) string {
	if scale > 1 {
		return fmt.Sprintf("%s/%d/%d/%d@%dx.%s", style, t.Z, t.X, t.Y, scale, format)
	}
	return fmt.Sprintf("%s/%d/%d/%d.%s", style, t.Z, t.X, t.Y, format)
}

func validTile(t maptile.Tile) bool {
	n := uint64(1) << uint(t.Z)
	return uint64(t.X) < n && uint64(t.Y) < n
}
