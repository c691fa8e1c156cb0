// Package ephem provides the Sun and Moon ephemeris used by the eclipse
// engine: apparent topocentric positions, horizontal conversion and the
// local solar eclipse search.
package ephem

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/litescript/ls-eclipse/internal/astro"
	"github.com/litescript/ls-eclipse/internal/logging"
)

// Body identifies a solar system body known to the providers.
type Body int

const (
	BodySun Body = iota
	BodyMoon
)

// String returns the body name.
func (b Body) String() string {
	switch b {
	case BodySun:
		return "Sun"
	case BodyMoon:
		return "Moon"
	default:
		return "unknown"
	}
}

// NAIFID returns the NAIF SPICE ID of the body, as used by JPL Horizons.
func (b Body) NAIFID() int {
	switch b {
	case BodySun:
		return 10
	case BodyMoon:
		return 301
	default:
		return 0
	}
}

// ErrUnknownBody is returned for bodies a provider cannot position.
var ErrUnknownBody = errors.New("unknown body")

// Equatorial is an apparent topocentric equatorial position.
type Equatorial struct {
	RAHours float64 // Right ascension in hours [0, 24)
	DecDeg  float64 // Declination in degrees
	DistAU  float64 // Distance from the observer in AU
}

// RADeg returns the right ascension in degrees.
func (e Equatorial) RADeg() float64 {
	return e.RAHours * 15
}

// Horizontal is a direction in the observer's horizon frame.
type Horizontal struct {
	AzimuthDeg  float64 // Clockwise from north [0, 360)
	AltitudeDeg float64 // Above the horizon [-90, 90]
}

// HorizonMode selects the horizontal conversion variant.
// Only the geometric (airless) conversion is supported.
type HorizonMode int

const (
	HorizonNormal HorizonMode = iota
)

// Positioner supplies apparent topocentric positions.
type Positioner interface {
	// EquatorialPosition returns the apparent position of body seen from obs
	// at t, corrected for light-time, aberration and parallax.
	EquatorialPosition(body Body, t time.Time, obs astro.Observer) (Equatorial, error)

	// HorizontalPosition converts an equatorial position to azimuth/altitude.
	HorizontalPosition(t time.Time, obs astro.Observer, eq Equatorial, mode HorizonMode) Horizontal
}

// EclipseSearcher finds local solar eclipses.
type EclipseSearcher interface {
	// SearchLocalSolarEclipse returns the first solar eclipse visible from
	// obs whose peak follows start.
	SearchLocalSolarEclipse(start time.Time, obs astro.Observer) (LocalSolarEclipse, error)
}

// Provider defines the interface for ephemeris data sources.
type Provider interface {
	Positioner
	EclipseSearcher

	// Name returns the provider name for display/logging.
	Name() string
}

// EclipseKind classifies a local solar eclipse.
type EclipseKind int

const (
	KindPartial EclipseKind = iota
	KindAnnular
	KindTotal
)

// String returns the kind name.
func (k EclipseKind) String() string {
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

// EclipseEvent is one instant of a local eclipse together with the Sun's
// altitude at that moment.
type EclipseEvent struct {
	Time        time.Time
	AltitudeDeg float64
}

// LocalSolarEclipse describes a solar eclipse as seen from one location.
// TotalBegin and TotalEnd are set only for total eclipses.
type LocalSolarEclipse struct {
	Kind         EclipseKind
	Obscuration  float64
	PartialBegin EclipseEvent
	TotalBegin   *EclipseEvent
	Peak         EclipseEvent
	TotalEnd     *EclipseEvent
	PartialEnd   EclipseEvent
}

// ErrSearchExhausted is returned when no eclipse was found within the
// search horizon.
var ErrSearchExhausted = errors.New("no local solar eclipse within search horizon")

// Mode represents which ephemeris source to use.
type Mode int

const (
	ModeAnalytic Mode = iota // Built-in analytic series (default)
	ModeHorizons             // JPL Horizons positions, analytic search
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeAnalytic:
		return "analytic"
	case ModeHorizons:
		return "horizons"
	default:
		return "unknown"
	}
}

// ParseMode parses a mode string.
func ParseMode(s string) Mode {
	switch s {
	case "analytic":
		return ModeAnalytic
	case "horizons":
		return ModeHorizons
	default:
		return ModeAnalytic
	}
}

// Options configures NewProvider.
type Options struct {
	// HTTPClient is used for Horizons requests. Defaults to a client with
	// RequestTimeout.
	HTTPClient *http.Client

	// HorizonsURL overrides the Horizons API endpoint.
	HorizonsURL string

	// MaxLunations bounds the eclipse search. Defaults to DefaultMaxLunations.
	MaxLunations int

	Logger *logging.Logger
}

// NewProvider builds the provider for mode.
func NewProvider(mode Mode, opts Options) (Provider, error) {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}

	analytic := NewAnalyticProvider()
	search := NewSearcher(analytic, opts.MaxLunations, opts.Logger)

	switch mode {
	case ModeAnalytic:
		analytic.search = search
		return analytic, nil
	case ModeHorizons:
		hp := NewHorizonsProvider(opts.HTTPClient, opts.HorizonsURL, opts.Logger)
		return &composite{Positioner: hp, EclipseSearcher: search, name: hp.Name()}, nil
	default:
		return nil, fmt.Errorf("unsupported ephemeris mode %d", mode)
	}
}

// composite pairs a position source with a separate eclipse searcher.
type composite struct {
	Positioner
	EclipseSearcher
	name string
}

func (c *composite) Name() string {
	return c.name
}
