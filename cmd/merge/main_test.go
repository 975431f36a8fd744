package main

import (
	"path/filepath"
	"testing"

	"github.com/paulmach/orb/maptile"

	"github.com/tilezen/go-hillshades/logger"
	"github.com/tilezen/go-hillshades/tilepack"
)

func writeArchive(t *testing.T, path string, tiles map[maptile.Tile][]byte) {
	t.Helper()

	o, err := tilepack.NewMbtilesOutputter(path, 0, tilepack.NewStyleMetadata("darkmatter", "png"))
	if err != nil {
		t.Fatalf("NewMbtilesOutputter: %v", err)
	}
	for tile, data := range tiles {
		if err := o.Save(tile, data); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	if err := o.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func Test_merge(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.mbtiles")
	b := filepath.Join(dir, "b.mbtiles")
	out := filepath.Join(dir, "out.mbtiles")

	writeArchive(t, a, map[maptile.Tile][]byte{maptile.New(0, 0, 1): []byte("a")})
	writeArchive(t, b, map[maptile.Tile][]byte{maptile.New(1, 1, 2): []byte("b")})

	if err := merge(out, []string{a, b}, logger.Nop()); err != nil {
		t.Fatalf("merge: %v", err)
	}

	r, err := tilepack.NewMbtilesReader(out)
	if err != nil {
		t.Fatalf("NewMbtilesReader: %v", err)
	}
	defer r.Close()

	count := 0
	if err := r.VisitAllTiles(func(maptile.Tile, []byte) { count++ }); err != nil {
		t.Fatalf("VisitAllTiles: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 merged tiles, got %d", count)
	}

	md, err := r.Metadata()
	if err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	if md.Name() != "darkmatter" {
		t.Errorf("expected name darkmatter, got %q", md.Name())
	}
	if z, err := md.MinZoom(); err != nil || z != 1 {
		t.Errorf("MinZoom = %d, %v", z, err)
	}
	if z, err := md.MaxZoom(); err != nil || z != 2 {
		t.Errorf("MaxZoom = %d, %v", z, err)
	}

	if err := merge(out, []string{a}, logger.Nop()); err == nil {
		t.Error("expected error when the output exists")
	}
}
