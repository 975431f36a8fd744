package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"regexp"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/schollz/progressbar/v3"

	"github.com/tilezen/go-hillshades/app"
	"github.com/tilezen/go-hillshades/config"
	"github.com/tilezen/go-hillshades/hillshade"
	"github.com/tilezen/go-hillshades/logger"
	"github.com/tilezen/go-hillshades/metrics"
	"github.com/tilezen/go-hillshades/telemetry"
	"github.com/tilezen/go-hillshades/tilepack"
)

const (
	saveLogInterval = 1000
	rasterStyle     = "hillshade"
)

var zoomRangeRegex = regexp.MustCompile(`^\d+\-\d+$`)

type buildStats struct {
	published   int
	unpublished int
	cached      int
	failed      int
}

func processResults(waitGroup *sync.WaitGroup, results chan *tilepack.TileResponse, processor tilepack.TileOutputter, bar *progressbar.ProgressBar, l logger.Logger, stats *buildStats) {
	defer waitGroup.Done()

	start := time.Now()

	for result := range results {
		bar.Add(1)

		if result.Err != nil {
			stats.failed++
			metrics.SeededTiles.WithLabelValues("failed").Inc()
			l.Warn("couldn't publish tile", "tile", result.Tile, "error", result.Err)
			continue
		}

		switch {
		case result.Cached:
			stats.cached++
			metrics.SeededTiles.WithLabelValues("cached").Inc()
		case result.Published:
			metrics.SeededTiles.WithLabelValues("rendered").Inc()
		default:
			stats.unpublished++
			metrics.SeededTiles.WithLabelValues("unpublished").Inc()
			l.Warn("rendered tile was not stored", "tile", result.Tile)
		}

		if processor != nil {
			if err := processor.Save(result.Tile, result.Data); err != nil {
				l.Error("couldn't save tile", "tile", result.Tile, "error", err)
			}
		}

		if !result.Published {
			continue
		}
		stats.published++

		if stats.published%saveLogInterval == 0 {
			duration := time.Since(start)
			start = time.Now()
			l.Info("published tiles", "count", stats.published, "tiles_per_second", fmt.Sprintf("%0.1f", saveLogInterval/duration.Seconds()))
		}
	}
}

// parseBounds reads a south,west,north,east bounding box.
func parseBounds(s string) (orb.Bound, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return orb.Bound{}, fmt.Errorf("bounding box string must be a comma-separated list of 4 numbers")
	}

	floats := make([]float64, 4)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return orb.Bound{}, fmt.Errorf("bounding box string could not be parsed as numbers: %w", err)
		}
		floats[i] = f
	}

	return orb.Bound{
		Min: orb.Point{floats[1], floats[0]},
		Max: orb.Point{floats[3], floats[2]},
	}, nil
}

// parseZooms reads a comma-separated zoom list or a "{min}-{max}" range.
func parseZooms(s string) ([]maptile.Zoom, error) {
	var zooms []maptile.Zoom

	if zoomRangeRegex.MatchString(s) {
		zoomRange := strings.Split(s, "-")

		minZoom, err := strconv.ParseUint(zoomRange[0], 10, 8)
		if err != nil {
			return nil, fmt.Errorf("failed to parse min zoom (%s): %w", zoomRange[0], err)
		}

		maxZoom, err := strconv.ParseUint(zoomRange[1], 10, 8)
		if err != nil {
			return nil, fmt.Errorf("failed to parse max zoom (%s): %w", zoomRange[1], err)
		}

		if minZoom > maxZoom {
			return nil, fmt.Errorf("invalid zoom range %s", s)
		}

		for z := minZoom; z <= maxZoom; z++ {
			zooms = append(zooms, maptile.Zoom(z))
		}
		return zooms, nil
	}

	for _, zoomStr := range strings.Split(s, ",") {
		z, err := strconv.ParseUint(strings.TrimSpace(zoomStr), 10, 8)
		if err != nil {
			return nil, fmt.Errorf("zoom list could not be parsed: %w", err)
		}
		zooms = append(zooms, maptile.Zoom(z))
	}
	return zooms, nil
}

func calculateExpectedTiles(bounds orb.Bound, zooms []maptile.Zoom) uint32 {
	return tilepack.CountTiles(bounds, zooms)
}

type seedOptions struct {
	Bounds  orb.Bound
	Zooms   []maptile.Zoom
	Scale   int
	Format  string
	Skip    func(maptile.Tile) bool
	Workers int
	Jitter  time.Duration
}

// seed publishes every tile in range through publisher and hands the bytes to
// outputter, when one is given.
func seed(ctx context.Context, publisher hillshade.TilePublisher, outputter tilepack.TileOutputter, opts seedOptions, bar *progressbar.ProgressBar, l logger.Logger) (*buildStats, error) {
	jobCreator, err := tilepack.NewRenderJobGenerator(ctx, publisher, tilepack.RenderJobOptions{
		Bounds: opts.Bounds,
		Zooms:  opts.Zooms,
		Scale:  opts.Scale,
		Format: opts.Format,
		Skip:   opts.Skip,
		Jitter: opts.Jitter,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create job generator: %w", err)
	}

	jobs := make(chan *tilepack.TileRequest, 2000)
	results := make(chan *tilepack.TileResponse, 2000)

	// Start up the workers that will render tiles
	workerWG := &sync.WaitGroup{}
	for w := 0; w < max(opts.Workers, 1); w++ {
		worker, err := jobCreator.CreateWorker()
		if err != nil {
			close(jobs)
			workerWG.Wait()
			return nil, fmt.Errorf("couldn't create worker: %w", err)
		}

		workerWG.Add(1)
		go func(id int) {
			defer workerWG.Done()
			worker(id, jobs, results)
		}(w)
	}

	// Start the worker that receives rendered tiles
	stats := &buildStats{}
	resultWG := &sync.WaitGroup{}
	resultWG.Add(1)
	go processResults(resultWG, results, outputter, bar, l, stats)

	jobsErr := jobCreator.CreateJobs(jobs)

	close(jobs)
	l.Debug("job queue closed")

	// When the workers are done, close the results channel
	workerWG.Wait()
	close(results)

	resultWG.Wait()
	return stats, jobsErr
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("build: %v", err)
	}
}

func run() error {
	styleStr := flag.String("style", "positron", "Style to seed: positron, darkmatter, grey-hills, or hillshade for the raster only.")
	outputMode := flag.String("output-mode", "cache", "Valid modes are: cache, mbtiles, pmtiles.")
	outputDSN := flag.String("dsn", "", "Path to the mbtiles or pmtiles archive to write.")
	boundingBoxStr := flag.String("bounds", "-90.0,-180.0,90.0,180.0", "Comma-separated bounding box in south,west,north,east format. Defaults to the whole world.")
	zoomsStr := flag.String("zooms", "0,1,2,3,4,5,6,7,8,9,10", "Comma-separated list of zoom levels or a '{MIN_ZOOM}-{MAX_ZOOM}' range string.")
	scale := flag.Int("scale", 1, "Pixel density of the seeded tiles, 1 or 2.")
	format := flag.String("format", hillshade.FormatPNG, "Format of the seeded tiles, png or tif.")
	numWorkers := flag.Int("workers", 8, "Number of render workers to use.")
	resume := flag.Bool("resume", false, "Skip tiles already present in an existing -dsn mbtiles archive.")
	cpuProfile := flag.String("cpuprofile", "", "Enables CPU profiling. Saves the dump to the given path.")
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

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			return fmt.Errorf("could not create CPU profile: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("could not start CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	if *outputMode != "cache" && *outputDSN == "" {
		return fmt.Errorf("output DSN (-dsn) is required for output mode %s", *outputMode)
	}

	bounds, err := parseBounds(*boundingBoxStr)
	if err != nil {
		return fmt.Errorf("invalid -bounds: %w", err)
	}

	zooms, err := parseZooms(*zoomsStr)
	if err != nil {
		return fmt.Errorf("invalid -zooms: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(cfg, l, telemetry.NewSpanReporter(l))
	if err != nil {
		return fmt.Errorf("failed to initialize renderer: %w", err)
	}
	defer a.Close()

	var publisher hillshade.TilePublisher
	if *styleStr == rasterStyle {
		publisher = hillshade.NewRasterPublisher(a.Renderer)
		*format = hillshade.FormatTIFF
	} else {
		p, ok := a.Publisher(*styleStr)
		if !ok {
			return fmt.Errorf("unknown style %q, expected one of %v", *styleStr, a.Styles())
		}
		publisher = p
	}

	var skip func(maptile.Tile) bool
	if *resume {
		if *outputMode != "mbtiles" {
			return errors.New("-resume requires -output-mode mbtiles")
		}
		done, err := existingTiles(*outputDSN)
		if err != nil {
			return fmt.Errorf("couldn't read existing archive %s: %w", *outputDSN, err)
		}
		l.Info("resuming", "existing_tiles", len(done))
		skip = func(t maptile.Tile) bool {
			_, ok := done[t]
			return ok
		}
	}

	var outputter tilepack.TileOutputter
	metadata := tilepack.NewStyleMetadata(*styleStr, *format)

	switch *outputMode {
	case "cache":
	case "mbtiles":
		outputter, err = tilepack.NewMbtilesOutputter(*outputDSN, 0, metadata)
	case "pmtiles":
		outputter, err = tilepack.NewPmtilesOutputter(*outputDSN, metadata, l)
	default:
		return fmt.Errorf("unknown output mode %q", *outputMode)
	}

	if err != nil {
		return fmt.Errorf("couldn't create %s output: %w", *outputMode, err)
	}

	if outputter != nil {
		if err := outputter.CreateTiles(); err != nil {
			return fmt.Errorf("failed to create %s output: %w", *outputMode, err)
		}
	}

	expectedTiles := calculateExpectedTiles(bounds, zooms)
	l.Info("seeding", "style", *styleStr, "zooms", *zoomsStr, "expected_tiles", expectedTiles, "output_mode", *outputMode)

	bar := progressbar.Default(int64(expectedTiles))

	stats, seedErr := seed(ctx, publisher, outputter, seedOptions{
		Bounds:  bounds,
		Zooms:   zooms,
		Scale:   *scale,
		Format:  *format,
		Skip:    skip,
		Workers: *numWorkers,
		Jitter:  50 * time.Millisecond,
	}, bar, l)
	bar.Finish()

	if outputter != nil {
		minZoom, maxZoom := zooms[0], zooms[0]
		for _, z := range zooms {
			minZoom = min(minZoom, z)
			maxZoom = max(maxZoom, z)
		}

		if err := outputter.AssignSpatialMetadata(bounds, minZoom, maxZoom); err != nil {
			l.Error("failed to assign spatial metadata", "error", err)
		}
		if err := outputter.Close(); err != nil {
			l.Error("error closing output", "error", err)
		}
	}

	if seedErr != nil {
		return fmt.Errorf("seeding stopped: %w", seedErr)
	}

	l.Info("finished seeding", "published", stats.published, "unpublished", stats.unpublished, "cached", stats.cached, "failed", stats.failed)
	if stats.unpublished > 0 {
		l.Warn("some rendered tiles were not stored in the cache", "unpublished", stats.unpublished)
	}
	return nil
}

// existingTiles lists the tiles already packed in the mbtiles archive at dsn.
func existingTiles(dsn string) (map[maptile.Tile]struct{}, error) {
	done := make(map[maptile.Tile]struct{})

	if _, err := os.Stat(dsn); os.IsNotExist(err) {
		return done, nil
	}

	reader, err := tilepack.NewMbtilesReader(dsn)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	err = reader.VisitAllTiles(func(t maptile.Tile, data []byte) {
		done[t] = struct{}{}
	})
	return done, err
}
