package eclipse

import (
	"errors"
	"fmt"
	"time"

	"github.com/litescript/ls-eclipse/internal/astro"
	"github.com/litescript/ls-eclipse/internal/ephem"
)

// Resolver finds the next local solar eclipse for an observer.
type Resolver struct {
	search ephem.EclipseSearcher
}

// NewResolver creates a resolver backed by search.
func NewResolver(search ephem.EclipseSearcher) *Resolver {
	return &Resolver{search: search}
}

// Resolve returns the first eclipse visible from obs whose peak follows
// start. It returns ErrNoEclipseFound when the search horizon is exhausted.
func (r *Resolver) Resolve(start time.Time, obs astro.Observer) (Timing, error) {
	ev, err := r.search.SearchLocalSolarEclipse(start, obs)
	if err != nil {
		if errors.Is(err, ephem.ErrSearchExhausted) {
			return Timing{}, fmt.Errorf("%w after %s for %s", ErrNoEclipseFound,
				start.UTC().Format(time.RFC3339), obs)
		}
		return Timing{}, upstream("eclipse search", err)
	}

	kind, err := kindFrom(ev.Kind)
	if err != nil {
		return Timing{}, upstream("eclipse search", err)
	}

	timing := Timing{
		Start:       ev.PartialBegin.Time,
		Peak:        ev.Peak.Time,
		End:         ev.PartialEnd.Time,
		Obscuration: ev.Obscuration,
		Kind:        kind,
	}
	if kind == KindTotal && ev.TotalBegin != nil && ev.TotalEnd != nil {
		ts, te := ev.TotalBegin.Time, ev.TotalEnd.Time
		timing.TotalityStart, timing.TotalityEnd = &ts, &te
	}

	return timing, nil
}
