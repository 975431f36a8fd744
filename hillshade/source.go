package hillshade

import "context"

// ElevationSource reads windows of the global elevation raster.
//
// Read returns the window decimated to width x height. Implementations must be
// safe for concurrent use and must not modify a grid after returning it.
// Failures wrap ErrSourceUnavailable, and ErrNoData when the window holds no data.
type ElevationSource interface {
	Read(ctx context.Context, window Window, width, height int) (*ElevationGrid, error)
}
