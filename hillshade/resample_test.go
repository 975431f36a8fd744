package hillshade

import (
	"math"
	"testing"
)

func TestResampleFactor(t *testing.T) {
	tests := map[int]float64{0: 1, 4: 1, 5: 0.9, 8: 0.7, 11: 0.8, 13: 0.9, 14: 1, 15: 1}
	for z, want := range tests {
		if got := ResampleFactor(z); got != want {
			t.Errorf("ResampleFactor(%d) = %v, want %v", z, got, want)
		}
	}
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		in      string
		want    Filter
		wantErr bool
	}{
		{"nearest", FilterNearest, false},
		{"bilinear", FilterBilinear, false},
		{"", FilterBilinear, false},
		{"cubic", FilterBilinear, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFilter(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFilter(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFilter(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestResampler_RoundTripShape(t *testing.T) {
	for _, f := range []Filter{FilterNearest, FilterBilinear} {
		t.Run(f.String(), func(t *testing.T) {
			g := NewGrid(516, 514)
			for i := range g.Data {
				g.Data[i] = 42
			}

			s := Resampler{Filter: f}
			small := s.Shrink(g, 0.7)
			if small.Width != 361 || small.Height != 360 {
				t.Fatalf("Shrink() shape = %dx%d, want 361x360", small.Width, small.Height)
			}

			back := s.Restore(small, g.Width, g.Height, 0.7)
			if back.Width != g.Width || back.Height != g.Height {
				t.Fatalf("Restore() shape = %dx%d, want %dx%d", back.Width, back.Height, g.Width, g.Height)
			}
			for i, v := range back.Data {
				if math.Abs(v-42) > 1e-9 {
					t.Fatalf("Restore() cell %d = %v, want 42", i, v)
				}
			}
		})
	}
}

func TestResampler_BilinearRamp(t *testing.T) {
	g := NewGrid(10, 1)
	for c := range g.Data {
		g.Data[c] = float64(c)
	}

	// Doubling the density samples halfway between columns.
	out := Resampler{Filter: FilterBilinear}.Shrink(g, 2)
	if out.Width != 20 {
		t.Fatalf("Shrink() width = %d, want 20", out.Width)
	}
	if got := out.At(0, 5); math.Abs(got-2.25) > 1e-9 {
		t.Errorf("bilinear sample = %v, want 2.25", got)
	}
	if got := out.At(0, 0); got != 0 {
		t.Errorf("edge sample = %v, want 0", got)
	}
}
