package http

import (
	"errors"
	gohttp "net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tilezen/go-hillshades/hillshade"
	"github.com/tilezen/go-hillshades/logger"
)

// Publishers looks up the publisher for a style name.
type Publishers interface {
	Publisher(style string) (*hillshade.Publisher, bool)
}

// TileHandler serves styled tiles at /{style}/{z}/{x}/{y}[@2x].{format}.
func TileHandler(publishers Publishers, renderer *hillshade.Renderer, l logger.Logger) gohttp.HandlerFunc {
	opts := renderer.Options()

	return func(w gohttp.ResponseWriter, r *gohttp.Request) {
		style := chi.URLParam(r, "style")
		publisher, ok := publishers.Publisher(style)
		if !ok {
			gohttp.Error(w, "unknown style "+strconv.Quote(style), gohttp.StatusNotFound)
			return
		}

		req, err := hillshade.ParseTileRequest(chi.URLParam(r, "z"), chi.URLParam(r, "x"), chi.URLParam(r, "name"), opts.MaxZoom)
		if err != nil {
			writeError(w, l, err)
			return
		}

		result, err := publisher.Publish(r.Context(), req)
		if err != nil {
			writeError(w, l, err)
			return
		}

		writeResult(w, l, result, opts.Cache.CacheControl)
	}
}

// RasterHandler serves the uncolored raster at /hillshade/{z}/{x}/{y}.tif.
func RasterHandler(renderer *hillshade.Renderer, l logger.Logger) gohttp.HandlerFunc {
	opts := renderer.Options()
	publisher := hillshade.NewRasterPublisher(renderer)

	return func(w gohttp.ResponseWriter, r *gohttp.Request) {
		req, err := hillshade.ParseTileRequest(chi.URLParam(r, "z"), chi.URLParam(r, "x"), chi.URLParam(r, "name"), opts.MaxZoom)
		if err != nil {
			writeError(w, l, err)
			return
		}

		result, err := publisher.Publish(r.Context(), req)
		if err != nil {
			writeError(w, l, err)
			return
		}

		writeResult(w, l, result, opts.Cache.CacheControl)
	}
}

func HealthHandler(w gohttp.ResponseWriter, r *gohttp.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(gohttp.StatusOK)
	w.Write([]byte("ok\n"))
}

// StatusCode maps render errors onto HTTP status codes.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, hillshade.ErrInvalidRequest):
		return gohttp.StatusBadRequest
	case errors.Is(err, hillshade.ErrUnsupportedZoomDelta):
		return gohttp.StatusNotFound
	case errors.Is(err, hillshade.ErrSourceUnavailable):
		return gohttp.StatusBadGateway
	default:
		return gohttp.StatusInternalServerError
	}
}

func writeError(w gohttp.ResponseWriter, l logger.Logger, err error) {
	status := StatusCode(err)
	if status >= 500 {
		l.Error("tile request failed", "error", err, "status", status)
	}
	gohttp.Error(w, err.Error(), status)
}

func writeResult(w gohttp.ResponseWriter, l logger.Logger, result *hillshade.Result, cacheControl string) {
	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	if cacheControl != "" {
		w.Header().Set("Cache-Control", cacheControl)
	}
	if result.Location != "" {
		w.Header().Set("X-Tile-Location", result.Location)
	}
	if result.Cached {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}

	w.WriteHeader(gohttp.StatusOK)
	if _, err := w.Write(result.Data); err != nil {
		l.Warn("error writing tile response", "error", err)
	}
}
