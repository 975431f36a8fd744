package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	gohttp "net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/tilezen/go-hillshades/app"
	"github.com/tilezen/go-hillshades/config"
	"github.com/tilezen/go-hillshades/http"
	"github.com/tilezen/go-hillshades/logger"
	"github.com/tilezen/go-hillshades/store"
	"github.com/tilezen/go-hillshades/telemetry"
	"github.com/tilezen/go-hillshades/tilepack"
)

// openArchive opens a local mbtiles file, or one served over HTTP when path
// is a URL.
func openArchive(path string, client *gohttp.Client) (tilepack.MbtilesReader, error) {
	if !strings.HasPrefix(path, "http") {
		return tilepack.NewMbtilesReader("file:" + path + "?mode=ro")
	}

	vfs, err := tilepack.RegisterHTTPVFS(path, client)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", "file:archive.mbtiles?vfs="+vfs+"&mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return tilepack.NewMbtilesReaderWithDatabase(db)
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("serve: %v", err)
	}
}

func run() error {
	addr := flag.String("listen", "", "The address and port to listen on. Defaults to :$HTTP_PORT.")
	archive := flag.String("archive", "", "An mbtiles archive, local path or http(s) URL, to serve under /archive. Overrides HTTP_ARCHIVE.")
	flag.Parse()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.NewZapLogger(cfg.LoggerOptions())
	if err != nil {
		return err
	}
	defer l.Sync()

	if *addr == "" {
		*addr = ":" + cfg.HTTP.Port
	}
	if *archive == "" {
		*archive = cfg.HTTP.Archive
	}

	var middlewares []func(gohttp.Handler) gohttp.Handler
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(context.Background(), telemetry.Config{
			ServiceName:    cfg.Telemetry.ServiceName,
			ServiceVersion: cfg.Telemetry.ServiceVersion,
			Environment:    cfg.Telemetry.Environment,
			OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize tracer: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				l.Error("failed to shut down tracer", "error", err)
			}
		}()
		middlewares = append(middlewares, telemetry.Middleware)
	}

	a, err := app.New(cfg, l, telemetry.NewSpanReporter(l))
	if err != nil {
		return fmt.Errorf("failed to initialize renderer: %w", err)
	}
	defer a.Close()

	if r, ok := a.Cache.(*store.Redis); ok {
		go recordPoolStats(r)
	}

	var reader tilepack.MbtilesReader
	if *archive != "" {
		reader, err = openArchive(*archive, &gohttp.Client{Timeout: cfg.HTTP.Timeout})
		if err != nil {
			return fmt.Errorf("couldn't open archive %s: %w", *archive, err)
		}
		defer reader.Close()
	}

	router := http.NewRouter(http.RouterOptions{
		Publishers:  a,
		Renderer:    a.Renderer,
		Logger:      l,
		Timeout:     cfg.HTTP.Timeout,
		Archive:     reader,
		Middlewares: middlewares,
	})

	server := &gohttp.Server{
		Addr:         *addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		l.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			l.Error("server shutdown error", "error", err)
		}
	}()

	l.Info("starting hillshade server", "addr", *addr, "styles", a.Styles(), "cache", cfg.Cache.Backend, "source", cfg.Source.Kind)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, gohttp.ErrServerClosed) {
		return fmt.Errorf("could not listen on %s: %w", *addr, err)
	}

	<-done
	return nil
}

func recordPoolStats(r *store.Redis) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		r.RecordPoolStats()
	}
}
