package eclipse

import (
	"fmt"
	"time"
)

// Phase is the stage of an eclipse at a given instant.
type Phase int

const (
	PhaseBefore Phase = iota
	PhasePartial
	PhaseTotal
	PhaseAfter
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseBefore:
		return "before"
	case PhasePartial:
		return "partial"
	case PhaseTotal:
		return "total"
	case PhaseAfter:
		return "after"
	default:
		return "unknown"
	}
}

// Duration returns the length of the partial window.
func (t Timing) Duration() time.Duration {
	return t.End.Sub(t.Start)
}

// TotalityDuration returns the length of totality, or 0 without totality.
func (t Timing) TotalityDuration() time.Duration {
	if t.TotalityStart == nil || t.TotalityEnd == nil {
		return 0
	}
	return t.TotalityEnd.Sub(*t.TotalityStart)
}

// Contains reports whether at lies within [Start, End].
func (t Timing) Contains(at time.Time) bool {
	return !at.Before(t.Start) && !at.After(t.End)
}

// Progress maps at onto [0, 1] across the eclipse window, clamping outside
// it. A zero-length window yields 0 before the peak and 1 from it on.
func (t Timing) Progress(at time.Time) float64 {
	d := t.Duration()
	if d <= 0 {
		if at.Before(t.Peak) {
			return 0
		}
		return 1
	}
	p := float64(at.Sub(t.Start)) / float64(d)
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}

// PhaseAt returns the eclipse phase at the given instant.
func (t Timing) PhaseAt(at time.Time) Phase {
	switch {
	case at.Before(t.Start):
		return PhaseBefore
	case at.After(t.End):
		return PhaseAfter
	case t.TotalityStart != nil && t.TotalityEnd != nil &&
		!at.Before(*t.TotalityStart) && !at.After(*t.TotalityEnd):
		return PhaseTotal
	default:
		return PhasePartial
	}
}

// Validate checks the ordering of the contact times and the consistency of
// the totality fields with Kind.
func (t Timing) Validate() error {
	if t.Start.IsZero() || t.Peak.IsZero() || t.End.IsZero() {
		return fmt.Errorf("%w: missing contact time", ErrInvalidTiming)
	}
	if t.Peak.Before(t.Start) || t.End.Before(t.Peak) {
		return fmt.Errorf("%w: start %s, peak %s, end %s out of order", ErrInvalidTiming,
			t.Start.Format(time.RFC3339), t.Peak.Format(time.RFC3339), t.End.Format(time.RFC3339))
	}
	if t.Obscuration < 0 || t.Obscuration > 1 {
		return fmt.Errorf("%w: obscuration %v outside [0, 1]", ErrInvalidTiming, t.Obscuration)
	}

	hasTotality := t.TotalityStart != nil || t.TotalityEnd != nil
	switch {
	case hasTotality && t.Kind != KindTotal:
		return fmt.Errorf("%w: totality bounds on %s eclipse", ErrInvalidTiming, t.Kind)
	case t.Kind == KindTotal && (t.TotalityStart == nil || t.TotalityEnd == nil):
		return fmt.Errorf("%w: total eclipse without totality bounds", ErrInvalidTiming)
	case hasTotality:
		if t.TotalityStart.Before(t.Start) || t.Peak.Before(*t.TotalityStart) ||
			t.TotalityEnd.Before(t.Peak) || t.End.Before(*t.TotalityEnd) {
			return fmt.Errorf("%w: totality %s..%s outside partial window", ErrInvalidTiming,
				t.TotalityStart.Format(time.RFC3339), t.TotalityEnd.Format(time.RFC3339))
		}
	}
	return nil
}
