package http

import (
	gohttp "net/http"
	"path"

	"github.com/go-chi/chi/v5"

	"github.com/tilezen/go-hillshades/hillshade"
	"github.com/tilezen/go-hillshades/logger"
	"github.com/tilezen/go-hillshades/tilepack"
)

// MbtilesHandler serves tiles from a seeded archive at /archive/{z}/{x}/{y}.{format}.
func MbtilesHandler(reader tilepack.MbtilesReader, maxZoom int, l logger.Logger) gohttp.HandlerFunc {
	return func(w gohttp.ResponseWriter, r *gohttp.Request) {
		req, err := hillshade.ParseTileRequest(chi.URLParam(r, "z"), chi.URLParam(r, "x"), chi.URLParam(r, "name"), maxZoom)
		if err != nil {
			gohttp.NotFound(w, r)
			return
		}

		result, err := reader.GetTile(req.Tile)
		if err != nil {
			l.Error("error getting tile", "tile", req.String(), "error", err)
			gohttp.NotFound(w, r)
			return
		}

		if result.Data == nil {
			gohttp.NotFound(w, r)
			return
		}

		switch path.Ext(chi.URLParam(r, "name")) {
		case ".tif":
			w.Header().Set("Content-Type", "image/tiff")
		default:
			w.Header().Set("Content-Type", "image/png")
		}
		w.Write(*result.Data)
	}
}
