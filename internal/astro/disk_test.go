package astro

import (
	"math"
	"testing"
)

func TestDiskOverlap(t *testing.T) {
	tests := []struct {
		name   string
		r1, r2 float64
		d      float64
		want   float64
		tol    float64
	}{
		{"Disjoint", 1, 1, 3, 0, 0},
		{"Externally tangent", 1, 1, 2, 0, 0},
		{"Concentric equal disks", 1, 1, 0, 1, 0},
		{"Second disk covers first", 1, 1.05, 0.02, 1, 0},
		{"Second disk inside first", 1, 0.9, 0.05, 0.81, 1e-12},
		{"Concentric smaller disk", 2, 1, 0, 0.25, 1e-12},
		// Two unit circles with centers 1 apart: lens area 2π/3 - √3/2
		{"Half-offset unit disks", 1, 1, 1, (2*math.Pi/3 - math.Sqrt(3)/2) / math.Pi, 1e-9},
		{"Zero radius", 0, 1, 0.5, 0, 0},
		{"Negative radius", 1, -1, 0.5, 0, 0},
		{"NaN distance", 1, 1, math.NaN(), 0, 0},
		{"Negative distance uses magnitude", 1, 1, -1, (2*math.Pi/3 - math.Sqrt(3)/2) / math.Pi, 1e-9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DiskOverlap(tt.r1, tt.r2, tt.d)
			if math.Abs(got-tt.want) > tt.tol {
				t.Errorf("DiskOverlap(%v, %v, %v) = %.12f, want %.12f", tt.r1, tt.r2, tt.d, got, tt.want)
			}
		})
	}
}

func TestDiskOverlap_Monotonic(t *testing.T) {
	// Coverage only grows as the centers approach.
	prev := -1.0
	for d := 0.6; d >= 0; d -= 0.005 {
		got := DiskOverlap(0.2666, 0.2750, d)
		if got < 0 || got > 1 {
			t.Fatalf("DiskOverlap out of range at d=%v: %v", d, got)
		}
		if got+1e-12 < prev {
			t.Fatalf("DiskOverlap decreased at d=%v: %v < %v", d, got, prev)
		}
		prev = got
	}
	if prev != 1 {
		t.Errorf("larger Moon centered on the Sun = %v, want 1", prev)
	}
}

func TestAngularRadius(t *testing.T) {
	// Sun at 1 AU: 959.6"
	got := AngularRadius(SunRadiusKm, AU) * 3600
	if math.Abs(got-959.6) > 1 {
		t.Errorf("AngularRadius(Sun, 1 AU) = %.2f\", want ~959.6\"", got)
	}
	if AngularRadius(1, 0) != 0 {
		t.Error("AngularRadius with zero distance should be 0")
	}
	if AngularRadius(2, 1) != 90 {
		t.Error("AngularRadius inside the sphere should clamp to 90°")
	}
}

func TestAngularSeparation(t *testing.T) {
	tests := []struct {
		name      string
		ra1, dec1 float64
		ra2, dec2 float64
		wantSep   float64
		tol       float64
	}{
		{name: "Same point", ra1: 100, dec1: 30, ra2: 100, dec2: 30, wantSep: 0, tol: 0.001},
		{name: "90 degrees apart on equator", ra1: 0, dec1: 0, ra2: 90, dec2: 0, wantSep: 90, tol: 0.001},
		{name: "180 degrees apart on equator", ra1: 0, dec1: 0, ra2: 180, dec2: 0, wantSep: 180, tol: 0.001},
		{name: "Pole to equator", ra1: 0, dec1: 90, ra2: 0, dec2: 0, wantSep: 90, tol: 0.001},
		{name: "Pole to pole", ra1: 0, dec1: 90, ra2: 0, dec2: -90, wantSep: 180, tol: 0.001},
		{name: "Small separation", ra1: 100, dec1: 30, ra2: 101, dec2: 30, wantSep: 0.866, tol: 0.01},
		{name: "Across RA wrap", ra1: 359.9, dec1: 0, ra2: 0.1, dec2: 0, wantSep: 0.2, tol: 1e-6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AngularSeparation(tt.ra1, tt.dec1, tt.ra2, tt.dec2)
			if math.Abs(got-tt.wantSep) > tt.tol {
				t.Errorf("AngularSeparation() = %.4f°, want %.4f° (±%.4f)",
					got, tt.wantSep, tt.tol)
			}
		})
	}
}
