package ephem

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/litescript/ls-eclipse/internal/astro"
)

func checkOrdering(t *testing.T, ev LocalSolarEclipse) {
	t.Helper()
	if ev.PartialBegin.Time.After(ev.Peak.Time) || ev.Peak.Time.After(ev.PartialEnd.Time) {
		t.Errorf("partial phase out of order: %s %s %s",
			ev.PartialBegin.Time, ev.Peak.Time, ev.PartialEnd.Time)
	}
	if (ev.TotalBegin == nil) != (ev.TotalEnd == nil) {
		t.Fatal("totality bounds must be both set or both nil")
	}
	if ev.TotalBegin != nil {
		if ev.Kind != KindTotal {
			t.Errorf("totality bounds on a %s eclipse", ev.Kind)
		}
		if ev.TotalBegin.Time.Before(ev.PartialBegin.Time) || ev.TotalBegin.Time.After(ev.Peak.Time) ||
			ev.TotalEnd.Time.Before(ev.Peak.Time) || ev.TotalEnd.Time.After(ev.PartialEnd.Time) {
			t.Errorf("totality out of order: %s..%s around %s", ev.TotalBegin.Time, ev.TotalEnd.Time, ev.Peak.Time)
		}
	}
	if ev.Obscuration < 0 || ev.Obscuration > 1 {
		t.Errorf("obscuration = %v, want [0, 1]", ev.Obscuration)
	}
}

func TestSearch_Mallorca2026(t *testing.T) {
	p := NewAnalyticProvider()
	ev, err := p.SearchLocalSolarEclipse(time.Date(2026, 8, 12, 0, 0, 0, 0, time.UTC), palma)
	if err != nil {
		t.Fatalf("SearchLocalSolarEclipse() error = %v", err)
	}
	checkOrdering(t, ev)

	lo := time.Date(2026, 8, 12, 18, 20, 0, 0, time.UTC)
	hi := time.Date(2026, 8, 12, 18, 45, 0, 0, time.UTC)
	if ev.Peak.Time.Before(lo) || ev.Peak.Time.After(hi) {
		t.Errorf("peak = %s, want between %s and %s", ev.Peak.Time, lo, hi)
	}
	if ev.Obscuration < 0.95 {
		t.Errorf("obscuration = %.4f, want > 0.95", ev.Obscuration)
	}
	if ev.Peak.AltitudeDeg <= 0 || ev.Peak.AltitudeDeg > 15 {
		t.Errorf("peak Sun altitude = %.2f°, want low above the western horizon", ev.Peak.AltitudeDeg)
	}
	if ev.PartialBegin.AltitudeDeg <= ev.Peak.AltitudeDeg {
		t.Error("the Sun should be setting during the eclipse")
	}
}

func TestSearch_DallasTotal2024(t *testing.T) {
	p := NewAnalyticProvider()
	dallas := astro.Observer{LatDeg: 32.7767, LonDeg: -96.7970, ElevationM: 139}

	ev, err := p.SearchLocalSolarEclipse(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), dallas)
	if err != nil {
		t.Fatalf("SearchLocalSolarEclipse() error = %v", err)
	}
	checkOrdering(t, ev)

	if ev.Kind != KindTotal {
		t.Fatalf("kind = %s, want total", ev.Kind)
	}
	want := time.Date(2024, 4, 8, 18, 42, 0, 0, time.UTC)
	if d := ev.Peak.Time.Sub(want); d < -3*time.Minute || d > 3*time.Minute {
		t.Errorf("peak = %s, want near %s", ev.Peak.Time, want)
	}
	if ev.Obscuration != 1 {
		t.Errorf("obscuration = %v, want 1", ev.Obscuration)
	}
	dur := ev.TotalEnd.Time.Sub(ev.TotalBegin.Time)
	if dur < 3*time.Minute || dur > 4*time.Minute+30*time.Second {
		t.Errorf("totality lasts %s, want ~3m50s", dur)
	}
}

func TestSearch_AlbuquerqueAnnular2023(t *testing.T) {
	p := NewAnalyticProvider()
	abq := astro.Observer{LatDeg: 35.0844, LonDeg: -106.6504, ElevationM: 1619}

	ev, err := p.SearchLocalSolarEclipse(time.Date(2023, 10, 1, 0, 0, 0, 0, time.UTC), abq)
	if err != nil {
		t.Fatalf("SearchLocalSolarEclipse() error = %v", err)
	}
	checkOrdering(t, ev)

	if ev.Kind != KindAnnular {
		t.Fatalf("kind = %s, want annular", ev.Kind)
	}
	if ev.TotalBegin != nil {
		t.Error("annular eclipse must not carry totality bounds")
	}
	want := time.Date(2023, 10, 14, 16, 36, 0, 0, time.UTC)
	if d := ev.Peak.Time.Sub(want); d < -5*time.Minute || d > 5*time.Minute {
		t.Errorf("peak = %s, want near %s", ev.Peak.Time, want)
	}
	if ev.Obscuration < 0.85 || ev.Obscuration >= 1 {
		t.Errorf("obscuration = %.4f, want annular range", ev.Obscuration)
	}
}

func TestSearch_PeakFollowsStart(t *testing.T) {
	p := NewAnalyticProvider()
	start := time.Date(2026, 8, 12, 19, 0, 0, 0, time.UTC)

	ev, err := p.SearchLocalSolarEclipse(start, palma)
	if err != nil {
		t.Fatalf("SearchLocalSolarEclipse() error = %v", err)
	}
	if ev.Peak.Time.Before(start) {
		t.Errorf("peak %s precedes start %s", ev.Peak.Time, start)
	}
	if ev.Peak.Time.Before(start.Add(30 * 24 * time.Hour)) {
		t.Errorf("peak %s should belong to a later eclipse season", ev.Peak.Time)
	}
}

func TestSearch_Exhausted(t *testing.T) {
	s := NewSearcher(NewAnalyticProvider(), 3, nil)

	// Sep-Nov 2026 has no solar eclipse anywhere
	_, err := s.SearchLocalSolarEclipse(time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), palma)
	if !errors.Is(err, ErrSearchExhausted) {
		t.Errorf("error = %v, want ErrSearchExhausted", err)
	}
}

func TestSearch_InvalidObserver(t *testing.T) {
	p := NewAnalyticProvider()
	_, err := p.SearchLocalSolarEclipse(time.Now(), astro.Observer{LatDeg: 120})
	if !errors.Is(err, astro.ErrInvalidObserver) {
		t.Errorf("error = %v, want ErrInvalidObserver", err)
	}
}

func TestSearch_StartOutOfRange(t *testing.T) {
	p := NewAnalyticProvider()
	_, err := p.SearchLocalSolarEclipse(time.Date(2400, 1, 1, 0, 0, 0, 0, time.UTC), palma)
	if !errors.Is(err, astro.ErrTimeOutOfRange) {
		t.Errorf("error = %v, want ErrTimeOutOfRange", err)
	}
}

func TestNextNewMoon(t *testing.T) {
	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	nm, err := nextNewMoon(from)
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2026, 8, 12, 17, 37, 0, 0, time.UTC)
	if d := nm.Sub(want); d < -10*time.Minute || d > 10*time.Minute {
		t.Errorf("new moon = %s, want near %s", nm, want)
	}

	next, err := nextNewMoon(nm.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if gap := next.Sub(nm).Hours() / 24; math.Abs(gap-29.5) > 0.8 {
		t.Errorf("lunation = %.2f days, want ~29.5", gap)
	}
}

func TestSynodicMonth(t *testing.T) {
	days := synodicMonth.Seconds() / 86400
	if math.Abs(days-29.530588853) > 1e-9 {
		t.Errorf("synodic month = %.9f days, want 29.530588853", days)
	}
	if rate := 360 / days; math.Abs(rate-elongationRate) > 1e-9 {
		t.Errorf("elongation rate = %.9f deg/day, want %.9f", rate, elongationRate)
	}
}

func TestGoldenMin(t *testing.T) {
	center := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	target := center.Add(123456 * time.Millisecond)
	f := func(x time.Time) (float64, error) {
		d := x.Sub(target).Seconds()
		return d * d, nil
	}

	got, err := goldenMin(f, center.Add(-10*time.Minute), center.Add(10*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if d := got.Sub(target); d < -2*time.Millisecond || d > 2*time.Millisecond {
		t.Errorf("goldenMin = %s, want %s", got, target)
	}
}

func TestBisect(t *testing.T) {
	root := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(90 * time.Second)
	f := func(x time.Time) (float64, error) { return x.Sub(root).Seconds(), nil }

	got, err := bisect(f, root.Add(-time.Hour), root.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if d := got.Sub(root); d < -time.Millisecond || d > time.Millisecond {
		t.Errorf("bisect = %s, want %s", got, root)
	}

	// Reversed bracket works too
	if got, err = bisect(f, root.Add(time.Hour), root.Add(-time.Hour)); err != nil {
		t.Fatal(err)
	} else if d := got.Sub(root); d < -time.Millisecond || d > time.Millisecond {
		t.Errorf("reversed bisect = %s, want %s", got, root)
	}

	if _, err := bisect(f, root.Add(time.Minute), root.Add(time.Hour)); err == nil {
		t.Error("expected error without a sign change")
	}

	out, err := bisectOutside(f, root.Add(time.Hour), root.Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := f(out); v <= 0 {
		t.Errorf("bisectOutside returned an inside point: %s", out)
	}
}
