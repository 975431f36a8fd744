package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"

	"github.com/tilezen/go-hillshades/logger"
	"github.com/tilezen/go-hillshades/tilepack"
)

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// extent accumulates the bounds and zoom range of visited tiles.
type extent struct {
	bounds  *orb.Bound
	minZoom maptile.Zoom
	maxZoom maptile.Zoom
}

func (e *extent) add(t maptile.Tile) {
	tb := t.Bound()
	if e.bounds == nil {
		e.bounds = &tb
		e.minZoom, e.maxZoom = t.Z, t.Z
		return
	}

	tb = e.bounds.Union(tb)
	e.bounds = &tb
	e.minZoom = min(e.minZoom, t.Z)
	e.maxZoom = max(e.maxZoom, t.Z)
}

// merge copies every tile of inputs into a new mbtiles archive at output and
// recomputes its spatial metadata.
func merge(output string, inputs []string, l logger.Logger) error {
	if pathExists(output) {
		return fmt.Errorf("output path %s already exists and cannot be overwritten", output)
	}

	var metadata *tilepack.MbtilesMetadata
	ext := &extent{}

	// Metadata of the first input names the merged archive.
	first, err := tilepack.NewMbtilesReader(inputs[0])
	if err != nil {
		return fmt.Errorf("couldn't read input mbtiles %s: %w", inputs[0], err)
	}
	metadata, err = first.Metadata()
	first.Close()
	if err != nil {
		return fmt.Errorf("couldn't read metadata of %s: %w", inputs[0], err)
	}

	outputMbtiles, err := tilepack.NewMbtilesOutputter(output, 0, metadata)
	if err != nil {
		return fmt.Errorf("couldn't create output mbtiles: %w", err)
	}

	if err := outputMbtiles.CreateTiles(); err != nil {
		return fmt.Errorf("couldn't create output mbtiles: %w", err)
	}

	for _, inputFilename := range inputs {
		mbtilesReader, err := tilepack.NewMbtilesReader(inputFilename)
		if err != nil {
			return fmt.Errorf("couldn't read input mbtiles %s: %w", inputFilename, err)
		}

		var saveErr error
		err = mbtilesReader.VisitAllTiles(func(t maptile.Tile, data []byte) {
			if saveErr != nil {
				return
			}
			saveErr = outputMbtiles.Save(t, data)
			ext.add(t)
		})
		mbtilesReader.Close()

		if err == nil {
			err = saveErr
		}
		if err != nil {
			return fmt.Errorf("couldn't copy tiles from %s: %w", inputFilename, err)
		}
		l.Info("merged archive", "input", inputFilename)
	}

	if ext.bounds != nil {
		if err := outputMbtiles.AssignSpatialMetadata(*ext.bounds, ext.minZoom, ext.maxZoom); err != nil {
			return err
		}
	}

	return outputMbtiles.Close()
}

func main() {
	outputFilename := flag.String("output", "", "The output mbtiles to write to")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn or error.")
	flag.Parse()
	inputFilenames := flag.Args()

	if *outputFilename == "" {
		log.Fatalf("Must specify --output path")
	}

	if len(inputFilenames) == 0 {
		log.Fatalf("Must specify at least one input path")
	}

	l, err := logger.NewZapLogger(logger.Options{Level: *logLevel})
	if err != nil {
		log.Fatalf("Couldn't create logger: %v", err)
	}
	defer l.Sync()

	l.Info("merging archives", "inputs", inputFilenames, "output", *outputFilename)

	if err := merge(*outputFilename, inputFilenames, l); err != nil {
		l.Error("merge failed", "error", err)
		l.Sync()
		os.Exit(1)
	}
}
