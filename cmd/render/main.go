package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/tilezen/go-hillshades/app"
	"github.com/tilezen/go-hillshades/config"
	"github.com/tilezen/go-hillshades/hillshade"
	"github.com/tilezen/go-hillshades/logger"
	"github.com/tilezen/go-hillshades/telemetry"
)

const rasterStyle = "hillshade"

type output struct {
	Key      string `json:"key"`
	Location string `json:"location"`
	Cached   bool   `json:"cached"`
}

// parseTile splits "z/x/y[@Nx].format" into a request.
func parseTile(s string, maxZoom int) (hillshade.TileRequest, error) {
	parts := strings.Split(strings.TrimPrefix(s, "/"), "/")
	if len(parts) != 3 {
		return hillshade.TileRequest{}, fmt.Errorf("%w: expected z/x/y.format, got %q", hillshade.ErrInvalidRequest, s)
	}
	return hillshade.ParseTileRequest(parts[0], parts[1], parts[2], maxZoom)
}

func publisherFor(a *app.App, style string) (hillshade.TilePublisher, error) {
	if style == rasterStyle {
		return hillshade.NewRasterPublisher(a.Renderer), nil
	}
	p, ok := a.Publisher(style)
	if !ok {
		return nil, fmt.Errorf("unknown style %q, expected one of %s or %s", style, strings.Join(a.Styles(), ", "), rasterStyle)
	}
	return p, nil
}

func render(ctx context.Context, w io.Writer, publisher hillshade.TilePublisher, tile string, maxZoom int) error {
	req, err := parseTile(tile, maxZoom)
	if err != nil {
		return err
	}

	res, err := publisher.Publish(ctx, req)
	if err != nil {
		return err
	}
	if !res.Published {
		return fmt.Errorf("%w: %s rendered but not published", hillshade.ErrCacheIO, res.Key)
	}

	enc := json.NewEncoder(w)
	return enc.Encode(output{Key: res.Key, Location: res.Location, Cached: res.Cached})
}

func main() {
	if err := run(); err != nil {
		if errors.Is(err, hillshade.ErrInvalidRequest) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		log.Fatalf("render: %v", err)
	}
}

func run() error {
	style := flag.String("style", "grey-hills", "Style to publish, or hillshade for the raster only.")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [-style name] z/x/y[@2x].png\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.NewZapLogger(cfg.LoggerOptions())
	if err != nil {
		return err
	}
	defer l.Sync()

	a, err := app.New(cfg, l, telemetry.NewSpanReporter(l))
	if err != nil {
		return fmt.Errorf("failed to initialize renderer: %w", err)
	}
	defer a.Close()

	publisher, err := publisherFor(a, *style)
	if err != nil {
		return fmt.Errorf("%w: %w", hillshade.ErrInvalidRequest, err)
	}

	if err := render(context.Background(), os.Stdout, publisher, flag.Arg(0), cfg.Render.MaxZoom); err != nil {
		l.Error("render failed", "tile", flag.Arg(0), "error", err)
		return err
	}
	return nil
}
