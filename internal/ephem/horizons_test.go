package ephem

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/litescript/ls-eclipse/internal/astro"
)

const sunTableFixture = `*******************************************************************************
 Revised: July 31, 2013                  Sun                                 10
*******************************************************************************
 Date__(UT)__HR:MN     R.A._(a-apparent)__DEC.  delta      deldot
***************************************************************
$$SOE
 2026-Aug-12 18:00 *m  142.307915216  14.855631120 1.01325784604557  -0.1203485
 2026-Aug-12 18:01 *m  142.308598011  14.855397254 1.01325779973411  -0.1203502
 2026-Aug-12 18:02 *m  142.309280806  14.855163386 1.01325775342256  -0.1203519
$$EOE
***************************************************************
`

func TestParseEphemerisLine(t *testing.T) {
	tests := []struct {
		line    string
		wantRA  float64
		wantDec float64
		wantAU  float64
		wantErr bool
	}{
		{
			line:    "2026-Aug-12 18:00 *m  142.307915216  14.855631120 1.01325784604557  -0.1203485",
			wantRA:  142.307915216,
			wantDec: 14.855631120,
			wantAU:  1.01325784604557,
		},
		{
			line:    "2024-Apr-08 18:42 C   17.512304011   7.531160337 0.00238904216281  0.0133012",
			wantRA:  17.512304011,
			wantDec: 7.531160337,
			wantAU:  0.00238904216281,
		},
		{
			line:    "2024-Apr-08 18:43     17.522000000   7.535000000 0.00238900000000  0.0133000",
			wantRA:  17.522,
			wantDec: 7.535,
			wantAU:  0.002389,
		},
		{line: "invalid", wantErr: true},
		{line: "2026-Aug-12 18:00 *m 142.3 14.8", wantErr: true},
		{line: "2026-Aug-12 18:00 *m 142.3 14.8 -1.0 0.1", wantErr: true},
	}

	for _, tc := range tests {
		name := tc.line
		if len(name) > 20 {
			name = name[:20]
		}
		t.Run(name, func(t *testing.T) {
			row, err := parseEphemerisLine(tc.line)
			if tc.wantErr {
				if err == nil {
					t.Error("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if row.raDeg != tc.wantRA || row.decDeg != tc.wantDec || row.distAU != tc.wantAU {
				t.Errorf("row = %+v, want RA %v Dec %v AU %v", row, tc.wantRA, tc.wantDec, tc.wantAU)
			}
		})
	}
}

func TestParseEphemerisTable(t *testing.T) {
	rows, err := parseEphemerisTable(sunTableFixture)
	if err != nil {
		t.Fatalf("parseEphemerisTable() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if want := time.Date(2026, 8, 12, 18, 2, 0, 0, time.UTC); !rows[2].t.Equal(want) {
		t.Errorf("last row time = %s, want %s", rows[2].t, want)
	}

	if _, err := parseEphemerisTable("no markers here"); err == nil {
		t.Error("expected error for missing markers")
	}
}

func TestInterpolate(t *testing.T) {
	t0 := time.Date(2026, 8, 12, 18, 0, 0, 0, time.UTC)
	rows := []tableRow{
		{t: t0, raDeg: 359.9, decDeg: 10, distAU: 1},
		{t: t0.Add(time.Minute), raDeg: 0.1, decDeg: 11, distAU: 2},
	}

	mid, err := interpolate(rows, t0.Add(30*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if ra := mid.RADeg(); math.Abs(ra) > 1e-9 && math.Abs(ra-360) > 1e-9 {
		t.Errorf("RA across 0h = %v°, want 0°", ra)
	}
	if math.Abs(mid.DecDeg-10.5) > 1e-12 || math.Abs(mid.DistAU-1.5) > 1e-12 {
		t.Errorf("mid = %+v", mid)
	}

	exact, err := interpolate(rows, t0)
	if err != nil {
		t.Fatal(err)
	}
	if exact.DecDeg != 10 {
		t.Errorf("exact row Dec = %v, want 10", exact.DecDeg)
	}

	if _, err := interpolate(rows, t0.Add(2*time.Minute)); err == nil {
		t.Error("expected error outside table")
	}
	if _, err := interpolate(nil, t0); err == nil {
		t.Error("expected error for empty table")
	}
}

func TestHorizonsProvider_EquatorialPosition(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		q := r.URL.Query()
		if q.Get("COMMAND") != "'10'" {
			t.Errorf("COMMAND = %q, want '10'", q.Get("COMMAND"))
		}
		if q.Get("QUANTITIES") != "'2,20'" {
			t.Errorf("QUANTITIES = %q", q.Get("QUANTITIES"))
		}
		if !strings.HasPrefix(q.Get("SITE_COORD"), "'3.0176,39.6953,") {
			t.Errorf("SITE_COORD = %q", q.Get("SITE_COORD"))
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"result": sunTableFixture})
	}))
	defer srv.Close()

	p := NewHorizonsProvider(srv.Client(), srv.URL, nil)
	ts := time.Date(2026, 8, 12, 18, 0, 30, 0, time.UTC)

	eq, err := p.EquatorialPosition(BodySun, ts, palma)
	if err != nil {
		t.Fatalf("EquatorialPosition() error = %v", err)
	}
	if math.Abs(eq.RADeg()-142.3082566) > 1e-6 {
		t.Errorf("RA = %.7f°, want interpolated 142.3082566°", eq.RADeg())
	}

	// Second lookup in the same hour is served from cache
	if _, err := p.EquatorialPosition(BodySun, ts.Add(time.Minute), palma); err != nil {
		t.Fatal(err)
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("server hits = %d, want 1", n)
	}

	p.InvalidateCache()
	if _, err := p.EquatorialPosition(BodySun, ts, palma); err != nil {
		t.Fatal(err)
	}
	if n := hits.Load(); n != 2 {
		t.Errorf("server hits after invalidate = %d, want 2", n)
	}
}

func TestHorizonsProvider_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"status", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		}},
		{"api error", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "Cannot interpret date"})
		}},
		{"bad json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("{"))
		}},
		{"no rows", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]string{"result": "$$SOE\n$$EOE"})
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			p := NewHorizonsProvider(srv.Client(), srv.URL, nil)
			if _, err := p.EquatorialPosition(BodyMoon, time.Now(), palma); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestHorizonsProvider_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	if os.Getenv("ECLIPSE_HORIZONS_IT") == "" {
		t.Skip("Set ECLIPSE_HORIZONS_IT=1 to query JPL Horizons")
	}

	p := NewHorizonsProvider(nil, "", nil)
	ts := time.Date(2026, 8, 12, 18, 30, 0, 0, time.UTC)

	moon, err := p.EquatorialPosition(BodyMoon, ts, palma)
	if err != nil {
		t.Fatalf("EquatorialPosition failed: %v", err)
	}

	ref, err := NewAnalyticProvider().EquatorialPosition(BodyMoon, ts, palma)
	if err != nil {
		t.Fatal(err)
	}
	sep := astro.AngularSeparation(moon.RADeg(), moon.DecDeg, ref.RADeg(), ref.DecDeg)
	t.Logf("Horizons vs analytic Moon: %.1f\"", sep*3600)
	if sep > 0.02 {
		t.Errorf("Horizons and analytic Moon differ by %.4f°", sep)
	}
}

func TestFormatStepSize(t *testing.T) {
	for d, want := range map[time.Duration]string{
		time.Minute:      "1 m",
		10 * time.Minute: "10 m",
		time.Hour:        "1 h",
		90 * time.Minute: "90 m",
	} {
		if got := formatStepSize(d); got != want {
			t.Errorf("formatStepSize(%s) = %q, want %q", d, got, want)
		}
	}
}
