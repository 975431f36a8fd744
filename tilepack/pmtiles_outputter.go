package tilepack

import (
	"fmt"
	"hash"
	"hash/fnv"
	"io"
	"os"
	"sort"

	"github.com/RoaringBitmap/roaring/roaring64"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/protomaps/go-pmtiles/pmtiles"

	"github.com/tilezen/go-hillshades/logger"
)

type offsetLen struct {
	offset uint64
	length uint32
}

type pmtilesOutputter struct {
	tileset   *roaring64.Bitmap
	hashFunc  hash.Hash
	offsetMap map[string]offsetLen
	tileData  *os.File
	entries   map[uint64]pmtiles.EntryV3
	header    pmtiles.HeaderV3
	metadata  *MbtilesMetadata
	outFile   *os.File
	logger    logger.Logger
}

var _ TileOutputter = (*pmtilesOutputter)(nil)

// NewPmtilesOutputter writes a PMTiles v3 archive at dsn. Tile data is
// staged in a temp file until Close.
func NewPmtilesOutputter(dsn string, metadata *MbtilesMetadata, l logger.Logger) (*pmtilesOutputter, error) {
	tmpFile, err := os.CreateTemp("", "pmtiles-tiledata")
	if err != nil {
		return nil, fmt.Errorf("error creating temp file: %w", err)
	}

	outFile, err := os.Create(dsn)
	if err != nil {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
		return nil, fmt.Errorf("error creating pmtiles output file: %w", err)
	}

	if metadata == nil {
		metadata = NewMbtilesMetadata(nil)
	}
	if l == nil {
		l = logger.Nop()
	}

	outputter := &pmtilesOutputter{
		outFile:   outFile,
		tileset:   roaring64.New(),
		hashFunc:  fnv.New128a(),
		tileData:  tmpFile,
		offsetMap: make(map[string]offsetLen),
		entries:   make(map[uint64]pmtiles.EntryV3),
		header: pmtiles.HeaderV3{
			SpecVersion:         3,
			TileType:            tileType(metadata.Format()),
			TileCompression:     pmtiles.NoCompression,
			InternalCompression: pmtiles.Gzip,
		},
		metadata: metadata,
		logger:   l,
	}
	return outputter, nil
}

func tileType(format string) pmtiles.TileType {
	switch format {
	case "png":
		return pmtiles.Png
	default:
		return pmtiles.UnknownTileType
	}
}

func (p *pmtilesOutputter) CreateTiles() error {
	return nil
}

func (p *pmtilesOutputter) Save(tile maptile.Tile, data []byte) error {
	id := pmtiles.ZxyToID(uint8(tile.Z), tile.X, tile.Y)
	p.tileset.Add(id)

	// Hash the tile data to use as a key for dedupe
	p.hashFunc.Reset()
	p.hashFunc.Write(data)
	sumString := string(p.hashFunc.Sum(nil))
	found, ok := p.offsetMap[sumString]

	if !ok {
		offset, err := p.tileData.Seek(0, io.SeekEnd)
		if err != nil {
			return err
		}

		// Rendered tiles are already compressed images; store them as is.
		bytesWritten, err := p.tileData.Write(data)
		if err != nil {
			return err
		}

		found = offsetLen{
			offset: uint64(offset),
			length: uint32(bytesWritten),
		}

		p.offsetMap[sumString] = found
	}

	p.entries[id] = pmtiles.EntryV3{
		TileID:    id,
		Offset:    found.offset,
		Length:    found.length,
		RunLength: 1,
	}

	return nil
}

func (p *pmtilesOutputter) AssignSpatialMetadata(bounds orb.Bound, minZoom maptile.Zoom, maxZoom maptile.Zoom) error {
	p.metadata.SetSpatial(bounds, minZoom, maxZoom)

	center := bounds.Center()
	p.header.MinZoom = uint8(minZoom)
	p.header.MaxZoom = uint8(maxZoom)
	p.header.MinLonE7 = int32(bounds.Min.X() * 10000000)
	p.header.MinLatE7 = int32(bounds.Min.Y() * 10000000)
	p.header.MaxLonE7 = int32(bounds.Max.X() * 10000000)
	p.header.MaxLatE7 = int32(bounds.Max.Y() * 10000000)
	p.header.CenterZoom = uint8(minZoom)
	p.header.CenterLonE7 = int32(center.X() * 10000000)
	p.header.CenterLatE7 = int32(center.Y() * 10000000)
	return nil
}

// sortedEntries returns the directory entries in tile ID order with
// consecutive tiles sharing the same data collapsed into runs.
func (p *pmtilesOutputter) sortedEntries() []pmtiles.EntryV3 {
	ids := p.tileset.ToArray()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	entries := make([]pmtiles.EntryV3, 0, len(ids))
	for _, id := range ids {
		e := p.entries[id]
		if n := len(entries); n > 0 {
			last := &entries[n-1]
			if last.TileID+uint64(last.RunLength) == e.TileID && last.Offset == e.Offset && last.Length == e.Length {
				last.RunLength++
				continue
			}
		}
		entries = append(entries, e)
	}
	return entries
}

func (p *pmtilesOutputter) Close() error {
	defer func() {
		p.tileData.Close()
		os.Remove(p.tileData.Name())
	}()
	defer p.outFile.Close()

	entries := p.sortedEntries()

	p.header.AddressedTilesCount = p.tileset.GetCardinality()
	p.header.TileEntriesCount = uint64(len(entries))
	p.header.TileContentsCount = uint64(len(p.offsetMap))

	rootBytes, leavesBytes, numLeaves := optimizeDirectories(entries, 16384-pmtiles.HeaderV3LenBytes, pmtiles.Gzip)

	p.logger.Info("writing pmtiles archive",
		"tiles", p.header.AddressedTilesCount,
		"entries", len(entries),
		"contents", len(p.offsetMap),
		"root_bytes", len(rootBytes),
		"leaf_bytes", len(leavesBytes),
		"leaves", numLeaves,
	)

	jsonMetadata := make(map[string]interface{})
	for _, k := range p.metadata.Keys() {
		v, _ := p.metadata.Get(k)
		jsonMetadata[k] = v
	}

	metadataBytes, err := pmtiles.SerializeMetadata(jsonMetadata, pmtiles.Gzip)
	if err != nil {
		return fmt.Errorf("error serializing pmtiles metadata: %w", err)
	}

	offset, err := p.tileData.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}

	p.header.RootOffset = pmtiles.HeaderV3LenBytes
	p.header.RootLength = uint64(len(rootBytes))
	p.header.MetadataOffset = p.header.RootOffset + p.header.RootLength
	p.header.MetadataLength = uint64(len(metadataBytes))
	p.header.LeafDirectoryOffset = p.header.MetadataOffset + p.header.MetadataLength
	p.header.LeafDirectoryLength = uint64(len(leavesBytes))
	p.header.TileDataOffset = p.header.LeafDirectoryOffset + p.header.LeafDirectoryLength
	p.header.TileDataLength = uint64(offset)

	headerBytes := pmtiles.SerializeHeader(p.header)

	_, err = p.outFile.Write(headerBytes)
	if err != nil {
		return fmt.Errorf("error writing pmtiles header: %w", err)
	}

	_, err = p.outFile.Write(rootBytes)
	if err != nil {
		return fmt.Errorf("error writing pmtiles root directory: %w", err)
	}

	_, err = p.outFile.Write(metadataBytes)
	if err != nil {
		return fmt.Errorf("error writing pmtiles metadata: %w", err)
	}

	_, err = p.outFile.Write(leavesBytes)
	if err != nil {
		return fmt.Errorf("error writing pmtiles leaf directory: %w", err)
	}

	_, err = p.tileData.Seek(0, io.SeekStart)
	if err != nil {
		return fmt.Errorf("error seeking to start of tile data: %w", err)
	}

	_, err = io.Copy(p.outFile, p.tileData)
	if err != nil {
		return fmt.Errorf("error copying tile data to outfile: %w", err)
	}

	return nil
}

func optimizeDirectories(entries []pmtiles.EntryV3, targetRootLen int, compression pmtiles.Compression) ([]byte, []byte, int) {
	if len(entries) < 16384 {
		testRootBytes := pmtiles.SerializeEntries(entries, compression)
		if len(testRootBytes) <= targetRootLen {
			return testRootBytes, make([]byte, 0), 0
		}
	}

	// Root directory is leaf pointers only. Grow the leaves until the root fits.
	leafSize := float32(len(entries)) / 3500
	if leafSize < 4096 {
		leafSize = 4096
	}

	for {
		rootBytes, leavesBytes, numLeaves := buildRootsLeaves(entries, int(leafSize), compression)
		if len(rootBytes) <= targetRootLen {
			return rootBytes, leavesBytes, numLeaves
		}
		leafSize *= 1.2
	}
}

func buildRootsLeaves(entries []pmtiles.EntryV3, leafSize int, compression pmtiles.Compression) ([]byte, []byte, int) {
	rootEntries := make([]pmtiles.EntryV3, 0)
	leavesBytes := make([]byte, 0)
	numLeaves := 0

	for i := 0; i < len(entries); i += leafSize {
		numLeaves++
		end := min(i+leafSize, len(entries))
		serialized := pmtiles.SerializeEntries(entries[i:end], compression)

		rootEntries = append(rootEntries, pmtiles.EntryV3{
			TileID:    entries[i].TileID,
			Offset:    uint64(len(leavesBytes)),
			Length:    uint32(len(serialized)),
			RunLength: 0,
		})
		leavesBytes = append(leavesBytes, serialized...)
	}

	rootBytes := pmtiles.SerializeEntries(rootEntries, compression)
	return rootBytes, leavesBytes, numLeaves
}
