package http

import (
	gohttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tilezen/go-hillshades/hillshade"
	"github.com/tilezen/go-hillshades/logger"
	"github.com/tilezen/go-hillshades/tilepack"
)

type RouterOptions struct {
	Publishers Publishers
	Renderer   *hillshade.Renderer
	Logger     logger.Logger
	Timeout    time.Duration
	// Archive, when set, is served under /archive.
	Archive tilepack.MbtilesReader
	// Middlewares run after the standard chi stack.
	Middlewares []func(gohttp.Handler) gohttp.Handler
}

func NewRouter(opts RouterOptions) chi.Router {
	l := opts.Logger
	if l == nil {
		l = logger.Nop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(l))
	r.Use(middleware.Recoverer)
	if opts.Timeout > 0 {
		r.Use(middleware.Timeout(opts.Timeout))
	}
	for _, mw := range opts.Middlewares {
		r.Use(mw)
	}

	r.Get("/healthz", HealthHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/hillshade/{z}/{x}/{name}", RasterHandler(opts.Renderer, l))
	if opts.Archive != nil {
		r.Get("/archive/{z}/{x}/{name}", MbtilesHandler(opts.Archive, opts.Renderer.Options().MaxZoom, l))
	}
	r.Get("/{style}/{z}/{x}/{name}", TileHandler(opts.Publishers, opts.Renderer, l))

	return r
}

func requestLogger(l logger.Logger) func(gohttp.Handler) gohttp.Handler {
	return func(next gohttp.Handler) gohttp.Handler {
		return gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				l.Info("request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
					"remote", r.RemoteAddr,
					"user_agent", r.UserAgent(),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
