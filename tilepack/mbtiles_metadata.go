package tilepack

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// MbtilesMetadata holds the name/value rows of an MBTiles metadata table.
type MbtilesMetadata struct {
	metadata map[string]string
}

func NewMbtilesMetadata(metadata map[string]string) *MbtilesMetadata {
	if metadata == nil {
		metadata = make(map[string]string)
	}

	return &MbtilesMetadata{
		metadata: metadata,
	}
}

// NewStyleMetadata describes an archive of one published style.
func NewStyleMetadata(name, format string) *MbtilesMetadata {
	return NewMbtilesMetadata(map[string]string{
		"name":        name,
		"format":      format,
		"type":        "baselayer",
		"version":     "1",
		"description": name + " hillshade tiles",
	})
}

func (m *MbtilesMetadata) Get(k string) (string, bool) {
	v, exists := m.metadata[k]
	return v, exists
}

func (m *MbtilesMetadata) Set(key string, value string) {
	m.metadata[key] = value
}

// Keys returns the metadata names in sorted order.
func (m *MbtilesMetadata) Keys() []string {
	keys := make([]string, 0, len(m.metadata))
	for k := range m.metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetSpatial records bounds, center and zoom range.
func (m *MbtilesMetadata) SetSpatial(bounds orb.Bound, minZoom maptile.Zoom, maxZoom maptile.Zoom) {
	center := bounds.Center()

	m.Set("bounds", fmt.Sprintf("%f,%f,%f,%f", bounds.Min.X(), bounds.Min.Y(), bounds.Max.X(), bounds.Max.Y()))
	m.Set("center", fmt.Sprintf("%f,%f,%d", center.X(), center.Y(), minZoom))
	m.Set("minzoom", strconv.Itoa(int(minZoom)))
	m.Set("maxzoom", strconv.Itoa(int(maxZoom)))
}

func (m *MbtilesMetadata) Bounds() (orb.Bound, error) {
	var bounds orb.Bound

	strBounds, exists := m.Get("bounds")
	if !exists {
		return bounds, fmt.Errorf("metadata is missing bounds")
	}

	parts, err := parseFloats(strBounds, 4)
	if err != nil {
		return bounds, fmt.Errorf("invalid bounds metadata, %w", err)
	}

	bounds = orb.Bound{
		Min: orb.Point{parts[0], parts[1]},
		Max: orb.Point{parts[2], parts[3]},
	}

	return bounds, nil
}

func (m *MbtilesMetadata) Center() (orb.Point, error) {
	var pt orb.Point

	strCenter, exists := m.Get("center")
	if !exists {
		return pt, fmt.Errorf("metadata is missing center")
	}

	// The optional third value is the default zoom.
	parts := strings.Split(strCenter, ",")
	if len(parts) == 3 {
		strCenter = strings.Join(parts[:2], ",")
	}

	xy, err := parseFloats(strCenter, 2)
	if err != nil {
		return pt, fmt.Errorf("invalid center metadata, %w", err)
	}

	return orb.Point{xy[0], xy[1]}, nil
}

func (m *MbtilesMetadata) MinZoom() (maptile.Zoom, error) {
	return m.zoom("minzoom")
}

func (m *MbtilesMetadata) MaxZoom() (maptile.Zoom, error) {
	return m.zoom("maxzoom")
}

func (m *MbtilesMetadata) zoom(key string) (maptile.Zoom, error) {
	str, exists := m.Get(key)
	if !exists {
		return 0, fmt.Errorf("metadata is missing %s", key)
	}

	i, err := strconv.Atoi(str)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s value, %w", key, err)
	}

	return maptile.Zoom(i), nil
}

func (m *MbtilesMetadata) Format() string {
	return m.metadata["format"]
}

func (m *MbtilesMetadata) Name() string {
	return m.metadata["name"]
}

func parseFloats(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("expected %d values, got %d", n, len(parts))
	}

	out := make([]float64, n)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}
