package ephem

import (
	"fmt"
	"time"

	"github.com/litescript/ls-eclipse/internal/astro"
	"github.com/litescript/ls-eclipse/internal/logging"
)

// AnalyticProvider computes positions from the built-in Sun and Moon series.
// It holds no mutable state and is safe for concurrent use.
type AnalyticProvider struct {
	search *Searcher
}

// NewAnalyticProvider creates an analytic provider with the default search
// horizon.
func NewAnalyticProvider() *AnalyticProvider {
	p := &AnalyticProvider{}
	p.search = NewSearcher(p, DefaultMaxLunations, logging.Discard())
	return p
}

// Name implements Provider.
func (p *AnalyticProvider) Name() string {
	return "analytic"
}

// EquatorialPosition implements Positioner.
func (p *AnalyticProvider) EquatorialPosition(body Body, t time.Time, obs astro.Observer) (Equatorial, error) {
	var (
		geo astro.SkyCoord
		err error
	)
	switch body {
	case BodySun:
		geo, err = astro.SunPosition(t)
	case BodyMoon:
		geo, err = astro.MoonPosition(t)
	default:
		return Equatorial{}, fmt.Errorf("%w: %d", ErrUnknownBody, body)
	}
	if err != nil {
		return Equatorial{}, fmt.Errorf("%s position: %w", body, err)
	}

	topo := astro.Topocentric(geo, obs, t)
	return Equatorial{
		RAHours: topo.RAdeg / 15,
		DecDeg:  topo.DecDeg,
		DistAU:  astro.KmToAU(topo.RangeKm),
	}, nil
}

// HorizontalPosition implements Positioner.
func (p *AnalyticProvider) HorizontalPosition(t time.Time, obs astro.Observer, eq Equatorial, mode HorizonMode) Horizontal {
	return toHorizontal(t, obs, eq)
}

// SearchLocalSolarEclipse implements EclipseSearcher.
func (p *AnalyticProvider) SearchLocalSolarEclipse(start time.Time, obs astro.Observer) (LocalSolarEclipse, error) {
	return p.search.SearchLocalSolarEclipse(start, obs)
}

// toHorizontal is the geometric equatorial to horizontal conversion shared
// by all providers.
func toHorizontal(t time.Time, obs astro.Observer, eq Equatorial) Horizontal {
	h := astro.EquatorialToHorizontal(astro.SkyCoord{
		RAdeg:  eq.RADeg(),
		DecDeg: eq.DecDeg,
	}, obs, t)
	return Horizontal{
		AzimuthDeg:  h.AzDeg,
		AltitudeDeg: h.ElDeg,
	}
}
