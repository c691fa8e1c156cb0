// Package eclipse computes local solar eclipse circumstances: the fraction of
// the Sun's disk covered by the Moon at an instant, the contact times of the
// next eclipse for an observer, and the Sun's direction in the sky.
//
// Everything here is a pure function of (time, observer) and the ephemeris
// it is constructed with. Nothing is cached, so calls may run in parallel.
package eclipse

import (
	"errors"
	"fmt"
	"time"

	"github.com/litescript/ls-eclipse/internal/ephem"
)

// Kind classifies a solar eclipse as seen from the observer.
type Kind int

const (
	KindPartial Kind = iota
	KindAnnular
	KindTotal
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindPartial:
		return "partial"
	case KindAnnular:
		return "annular"
	case KindTotal:
		return "total"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	s := k.String()
	if s == "unknown" {
		return nil, fmt.Errorf("invalid eclipse kind %d", int(k))
	}
	return []byte(s), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "partial":
		*k = KindPartial
	case "annular":
		*k = KindAnnular
	case "total":
		*k = KindTotal
	default:
		return fmt.Errorf("invalid eclipse kind %q", string(b))
	}
	return nil
}

func kindFrom(k ephem.EclipseKind) (Kind, error) {
	switch k {
	case ephem.KindPartial:
		return KindPartial, nil
	case ephem.KindAnnular:
		return KindAnnular, nil
	case ephem.KindTotal:
		return KindTotal, nil
	default:
		return 0, fmt.Errorf("unrecognized eclipse kind %d", int(k))
	}
}

// Timing holds the circumstances of one local solar eclipse.
// TotalityStart and TotalityEnd are set only when Kind is KindTotal.
type Timing struct {
	Start         time.Time  `json:"start"`
	TotalityStart *time.Time `json:"totality_start,omitempty"`
	Peak          time.Time  `json:"peak"`
	TotalityEnd   *time.Time `json:"totality_end,omitempty"`
	End           time.Time  `json:"end"`
	Obscuration   float64    `json:"obscuration"`
	Kind          Kind       `json:"kind"`
}

// CoverageSample is one point of the obscuration curve.
type CoverageSample struct {
	Time     time.Time `json:"time"`
	Coverage float64   `json:"coverage"`
}

// SunDirection is the Sun's position in the observer's sky.
type SunDirection struct {
	AzimuthDeg   float64 `json:"azimuth_deg"`   // Clockwise from north [0, 360)
	ElevationDeg float64 `json:"elevation_deg"` // Above the horizon [-90, 90]
}

// ErrNoEclipseFound is returned when the search horizon holds no eclipse
// visible from the observer.
var ErrNoEclipseFound = errors.New("no eclipse found")

// ErrInvalidTiming is returned by Timing.Validate.
var ErrInvalidTiming = errors.New("invalid eclipse timing")

// UpstreamError reports a failure of the ephemeris behind a calculation.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("ephemeris %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func upstream(op string, err error) error {
	return &UpstreamError{Op: op, Err: err}
}
