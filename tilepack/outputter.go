package tilepack

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// TileOutputter packs published tiles into an archive. Tiles are addressed
// in the XYZ scheme.
type TileOutputter interface {
	CreateTiles() error
	Save(tile maptile.Tile, data []byte) error
	AssignSpatialMetadata(bounds orb.Bound, minZoom maptile.Zoom, maxZoom maptile.Zoom) error
	Close() error
}
