package timeline

import (
	"context"
	"fmt"
	"time"

	"github.com/keep94/sunrise"

	"github.com/litescript/ls-eclipse/internal/astro"
	"github.com/litescript/ls-eclipse/internal/eclipse"
)

// SunLocator returns the Sun's direction at an instant.
type SunLocator interface {
	SunHorizontal(t time.Time, obs astro.Observer) (eclipse.SunDirection, error)
}

// SunPoint is one sample of the Sun's track across the sky.
type SunPoint struct {
	Time time.Time `json:"time"`
	eclipse.SunDirection
}

// SunTrace samples the Sun's direction every step over [start, end].
func SunTrace(ctx context.Context, l SunLocator, obs astro.Observer, start, end time.Time, step time.Duration) ([]SunPoint, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: %s < %s", ErrEmptyRange,
			end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	if step <= 0 {
		return nil, fmt.Errorf("step must be positive, got %s", step)
	}

	var points []SunPoint
	for t := start; !t.After(end); t = t.Add(step) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dir, err := l.SunHorizontal(t, obs)
		if err != nil {
			return nil, err
		}
		points = append(points, SunPoint{Time: t, SunDirection: dir})
	}
	return points, nil
}

// SunEvents places sunrise and sunset relative to an eclipse.
type SunEvents struct {
	Sunrise            time.Time `json:"sunrise,omitzero"`
	Sunset             time.Time `json:"sunset,omitzero"`
	RisesDuringEclipse bool      `json:"rises_during_eclipse"`
	SetsDuringEclipse  bool      `json:"sets_during_eclipse"`
	// Polar is set when the Sun neither rises nor sets that day.
	Polar bool `json:"polar"`
}

// SunEventsFor returns the sunrise and sunset of the day whose daylight
// lies nearest the eclipse peak.
func SunEventsFor(obs astro.Observer, timing eclipse.Timing) SunEvents {
	var s sunrise.Sunrise
	s.Around(obs.LatDeg, obs.LonDeg, timing.Peak.UTC())
	s.AddDays(-1)

	var ev SunEvents
	best := time.Duration(-1)
	for i := 0; i < 3; i++ {
		rise, set := s.Sunrise(), s.Sunset()
		s.AddDays(1)
		if !set.After(rise) {
			continue
		}
		var gap time.Duration
		switch {
		case timing.Peak.Before(rise):
			gap = rise.Sub(timing.Peak)
		case timing.Peak.After(set):
			gap = timing.Peak.Sub(set)
		}
		if best < 0 || gap < best {
			best = gap
			ev.Sunrise, ev.Sunset = rise.UTC(), set.UTC()
		}
	}

	if best < 0 {
		return SunEvents{Polar: true}
	}

	ev.RisesDuringEclipse = timing.Contains(ev.Sunrise)
	ev.SetsDuringEclipse = timing.Contains(ev.Sunset)
	return ev
}
