package ephem

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/litescript/ls-eclipse/internal/astro"
	"github.com/litescript/ls-eclipse/internal/logging"
)

const (
	// DefaultMaxLunations bounds the search to roughly a century.
	DefaultMaxLunations = 1300

	// EclipseLatitudeLimitDeg is the largest lunar ecliptic latitude at new
	// moon for which a solar eclipse is possible anywhere on Earth.
	EclipseLatitudeLimitDeg = 1.6

	// synodicMonth is 29.530588853 days.
	synodicMonth    = 29*24*time.Hour + 12*time.Hour + 44*time.Minute + 2876899200*time.Nanosecond
	elongationRate  = 360.0 / 29.530588853 // degrees per day
	conjunctionSpan = 2 * 24 * time.Hour

	peakWindow   = 5 * time.Hour
	coarseStep   = 10 * time.Minute
	contactReach = 4 * time.Hour
	timeEpsilon  = time.Millisecond
)

// Searcher finds local solar eclipses by walking new moons and examining the
// topocentric Sun-Moon geometry around each conjunction in eclipse season.
type Searcher struct {
	pos          Positioner
	maxLunations int
	logger       *logging.Logger
}

// NewSearcher creates a searcher over pos. maxLunations <= 0 selects
// DefaultMaxLunations.
func NewSearcher(pos Positioner, maxLunations int, logger *logging.Logger) *Searcher {
	if maxLunations <= 0 {
		maxLunations = DefaultMaxLunations
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Searcher{
		pos:          pos,
		maxLunations: maxLunations,
		logger:       logger.Component("search"),
	}
}

// SearchLocalSolarEclipse implements EclipseSearcher.
func (s *Searcher) SearchLocalSolarEclipse(start time.Time, obs astro.Observer) (LocalSolarEclipse, error) {
	if err := obs.Validate(); err != nil {
		return LocalSolarEclipse{}, err
	}

	// A conjunction shortly before start can still have its local peak after it
	t := start.UTC().Add(-peakWindow)
	for i := 0; i < s.maxLunations; i++ {
		nm, err := nextNewMoon(t)
		if err != nil {
			if i > 0 && errors.Is(err, astro.ErrTimeOutOfRange) {
				return LocalSolarEclipse{}, fmt.Errorf("%w: %v", ErrSearchExhausted, err)
			}
			return LocalSolarEclipse{}, err
		}

		_, lat, err := astro.ConjunctionOffset(nm)
		if err != nil {
			return LocalSolarEclipse{}, err
		}

		if math.Abs(lat) < EclipseLatitudeLimitDeg {
			ev, ok, err := s.examine(nm, obs)
			if err != nil {
				if errors.Is(err, astro.ErrTimeOutOfRange) {
					return LocalSolarEclipse{}, fmt.Errorf("%w: %v", ErrSearchExhausted, err)
				}
				return LocalSolarEclipse{}, err
			}
			if ok && !ev.Peak.Time.Before(start) {
				s.logger.Debug("%s at %s, peak %s (%d lunations)",
					ev.Kind, obs, ev.Peak.Time.Format(time.RFC3339), i+1)
				return ev, nil
			}
		}

		t = nm.Add(synodicMonth / 2)
	}

	return LocalSolarEclipse{}, fmt.Errorf("%w: %d lunations after %s",
		ErrSearchExhausted, s.maxLunations, start.UTC().Format(time.RFC3339))
}

// nextNewMoon returns the first geocentric conjunction in ecliptic longitude
// at or after t, to the millisecond.
func nextNewMoon(t time.Time) (time.Time, error) {
	elong, _, err := astro.ConjunctionOffset(t)
	if err != nil {
		return time.Time{}, err
	}

	days := -elong / elongationRate
	if elong > 0 {
		days = (360 - elong) / elongationRate
	}
	guess := t.Add(time.Duration(days * float64(24*time.Hour)))

	offset := func(x time.Time) (float64, error) {
		e, _, err := astro.ConjunctionOffset(x)
		return e, err
	}
	nm, err := bisect(offset, guess.Add(-conjunctionSpan), guess.Add(conjunctionSpan))
	if err != nil {
		return time.Time{}, err
	}
	if nm.Before(t) {
		return nextNewMoon(nm.Add(synodicMonth / 2))
	}
	return nm, nil
}

// geometry is the apparent Sun-Moon configuration seen from the observer.
type geometry struct {
	sepDeg   float64
	sunRDeg  float64
	moonRDeg float64
	sun      Equatorial
}

func (s *Searcher) geometryAt(t time.Time, obs astro.Observer) (geometry, error) {
	sun, err := s.pos.EquatorialPosition(BodySun, t, obs)
	if err != nil {
		return geometry{}, err
	}
	moon, err := s.pos.EquatorialPosition(BodyMoon, t, obs)
	if err != nil {
		return geometry{}, err
	}
	return geometry{
		sepDeg:   astro.AngularSeparation(sun.RADeg(), sun.DecDeg, moon.RADeg(), moon.DecDeg),
		sunRDeg:  astro.AngularRadius(astro.SunRadiusKm, astro.AUToKm(sun.DistAU)),
		moonRDeg: astro.AngularRadius(astro.MoonRadiusKm, astro.AUToKm(moon.DistAU)),
		sun:      sun,
	}, nil
}

// examine looks for a locally visible eclipse around the conjunction nm.
func (s *Searcher) examine(nm time.Time, obs astro.Observer) (LocalSolarEclipse, bool, error) {
	sep := func(t time.Time) (float64, error) {
		g, err := s.geometryAt(t, obs)
		return g.sepDeg, err
	}

	// Coarse scan for the closest approach, then refine
	best := nm.Add(-peakWindow)
	bestSep := math.Inf(1)
	for t := nm.Add(-peakWindow); !t.After(nm.Add(peakWindow)); t = t.Add(coarseStep) {
		d, err := sep(t)
		if err != nil {
			return LocalSolarEclipse{}, false, err
		}
		if d < bestSep {
			best, bestSep = t, d
		}
	}

	peak, err := goldenMin(sep, best.Add(-coarseStep), best.Add(coarseStep))
	if err != nil {
		return LocalSolarEclipse{}, false, err
	}
	peak = peak.Round(timeEpsilon)

	pg, err := s.geometryAt(peak, obs)
	if err != nil {
		return LocalSolarEclipse{}, false, err
	}
	if pg.sepDeg >= pg.sunRDeg+pg.moonRDeg {
		return LocalSolarEclipse{}, false, nil
	}

	// Outer contacts: separation equals the sum of the radii
	outer := func(t time.Time) (float64, error) {
		g, err := s.geometryAt(t, obs)
		return g.sepDeg - (g.sunRDeg + g.moonRDeg), err
	}
	begin, err := s.contact(outer, peak, -1)
	if err != nil {
		return LocalSolarEclipse{}, false, err
	}
	end, err := s.contact(outer, peak, 1)
	if err != nil {
		return LocalSolarEclipse{}, false, err
	}

	ev := LocalSolarEclipse{
		Kind:        KindPartial,
		Obscuration: astro.DiskOverlap(pg.sunRDeg, pg.moonRDeg, pg.sepDeg),
		Peak:        EclipseEvent{Time: peak, AltitudeDeg: s.altitude(peak, obs, pg.sun)},
	}

	if ev.PartialBegin, err = s.event(begin, obs); err != nil {
		return LocalSolarEclipse{}, false, err
	}
	if ev.PartialEnd, err = s.event(end, obs); err != nil {
		return LocalSolarEclipse{}, false, err
	}

	switch {
	case pg.sepDeg < pg.moonRDeg-pg.sunRDeg:
		ev.Kind = KindTotal
		inner := func(t time.Time) (float64, error) {
			g, err := s.geometryAt(t, obs)
			return g.sepDeg - (g.moonRDeg - g.sunRDeg), err
		}
		tb, err := bisect(inner, begin, peak)
		if err != nil {
			return LocalSolarEclipse{}, false, err
		}
		te, err := bisect(inner, end, peak)
		if err != nil {
			return LocalSolarEclipse{}, false, err
		}
		totalBegin, err := s.event(ceilTime(tb), obs)
		if err != nil {
			return LocalSolarEclipse{}, false, err
		}
		totalEnd, err := s.event(te.Truncate(timeEpsilon), obs)
		if err != nil {
			return LocalSolarEclipse{}, false, err
		}
		ev.TotalBegin, ev.TotalEnd = clampTotality(&totalBegin, &totalEnd, peak)
	case pg.sepDeg < pg.sunRDeg-pg.moonRDeg:
		ev.Kind = KindAnnular
	}

	if ev.PartialBegin.AltitudeDeg < 0 && ev.PartialEnd.AltitudeDeg < 0 {
		s.logger.Debug("%s peak %s below horizon at %s",
			ev.Kind, peak.Format(time.RFC3339), obs)
		return LocalSolarEclipse{}, false, nil
	}

	return ev, true, nil
}

// contact finds the outer contact on one side (dir = -1 before, +1 after) of
// peak. The returned instant lies just outside the eclipse.
func (s *Searcher) contact(f func(time.Time) (float64, error), peak time.Time, dir int) (time.Time, error) {
	outside := peak
	for reach := contactReach; ; reach += time.Hour {
		outside = peak.Add(time.Duration(dir) * reach)
		v, err := f(outside)
		if err != nil {
			return time.Time{}, err
		}
		if v > 0 {
			break
		}
		if reach > 2*contactReach {
			return time.Time{}, fmt.Errorf("no contact within %s of %s", reach, peak.Format(time.RFC3339))
		}
	}

	t, err := bisectOutside(f, outside, peak)
	if err != nil {
		return time.Time{}, err
	}
	if dir < 0 {
		return t.Truncate(timeEpsilon), nil
	}
	return ceilTime(t), nil
}

func (s *Searcher) event(t time.Time, obs astro.Observer) (EclipseEvent, error) {
	sun, err := s.pos.EquatorialPosition(BodySun, t, obs)
	if err != nil {
		return EclipseEvent{}, err
	}
	return EclipseEvent{Time: t, AltitudeDeg: s.altitude(t, obs, sun)}, nil
}

func (s *Searcher) altitude(t time.Time, obs astro.Observer, sun Equatorial) float64 {
	return s.pos.HorizontalPosition(t, obs, sun, HorizonNormal).AltitudeDeg
}

// bisect finds the sign change of f between a and b. The endpoints may be
// given in either order but must bracket a root.
func bisect(f func(time.Time) (float64, error), a, b time.Time) (time.Time, error) {
	fa, err := f(a)
	if err != nil {
		return time.Time{}, err
	}
	fb, err := f(b)
	if err != nil {
		return time.Time{}, err
	}
	if (fa > 0) == (fb > 0) {
		return time.Time{}, fmt.Errorf("no sign change between %s and %s",
			a.Format(time.RFC3339), b.Format(time.RFC3339))
	}

	for absDuration(b.Sub(a)) > timeEpsilon {
		m := a.Add(b.Sub(a) / 2)
		fm, err := f(m)
		if err != nil {
			return time.Time{}, err
		}
		if (fm > 0) == (fa > 0) {
			a, fa = m, fm
		} else {
			b = m
		}
	}
	return a.Add(b.Sub(a) / 2), nil
}

// bisectOutside is bisect returning the bracket end where f > 0.
func bisectOutside(f func(time.Time) (float64, error), outside, inside time.Time) (time.Time, error) {
	for absDuration(inside.Sub(outside)) > timeEpsilon {
		m := outside.Add(inside.Sub(outside) / 2)
		fm, err := f(m)
		if err != nil {
			return time.Time{}, err
		}
		if fm > 0 {
			outside = m
		} else {
			inside = m
		}
	}
	return outside, nil
}

// goldenMin locates the minimum of a unimodal f on [a, b].
func goldenMin(f func(time.Time) (float64, error), a, b time.Time) (time.Time, error) {
	const invPhi = 0.6180339887498949

	span := func() time.Duration { return b.Sub(a) }
	c := b.Add(-time.Duration(float64(span()) * invPhi))
	d := a.Add(time.Duration(float64(span()) * invPhi))
	fc, err := f(c)
	if err != nil {
		return time.Time{}, err
	}
	fd, err := f(d)
	if err != nil {
		return time.Time{}, err
	}

	for span() > timeEpsilon {
		if fc < fd {
			b, d, fd = d, c, fc
			c = b.Add(-time.Duration(float64(span()) * invPhi))
			if fc, err = f(c); err != nil {
				return time.Time{}, err
			}
		} else {
			a, c, fc = c, d, fd
			d = a.Add(time.Duration(float64(span()) * invPhi))
			if fd, err = f(d); err != nil {
				return time.Time{}, err
			}
		}
	}
	return a.Add(span() / 2), nil
}

// clampTotality keeps the totality bounds on either side of the peak after
// rounding.
func clampTotality(begin, end *EclipseEvent, peak time.Time) (*EclipseEvent, *EclipseEvent) {
	if begin.Time.After(peak) {
		begin.Time = peak
	}
	if end.Time.Before(peak) {
		end.Time = peak
	}
	return begin, end
}

func ceilTime(t time.Time) time.Time {
	tt := t.Truncate(timeEpsilon)
	if tt.Equal(t) {
		return t
	}
	return tt.Add(timeEpsilon)
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
