package tilepack

import (
	"github.com/paulmach/orb/maptile"
)

type TileRequest struct {
	Tile maptile.Tile
}

type TileResponse struct {
	Tile     maptile.Tile
	Data     []byte
	Location string
	Cached   bool
	Elapsed  float64
	Err      error

	// Published is false when the tile rendered but could not be stored.
	Published bool
}
