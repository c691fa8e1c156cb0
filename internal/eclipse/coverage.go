package eclipse

import (
	"math"
	"time"

	"github.com/litescript/ls-eclipse/internal/astro"
	"github.com/litescript/ls-eclipse/internal/ephem"
)

// Calculator evaluates the Sun-Moon geometry for an observer at an instant.
type Calculator struct {
	pos ephem.Positioner
}

// NewCalculator creates a calculator backed by pos.
func NewCalculator(pos ephem.Positioner) *Calculator {
	return &Calculator{pos: pos}
}

// Coverage returns the fraction of the Sun's apparent disk covered by the
// Moon at t as seen from obs, in [0, 1].
func (c *Calculator) Coverage(t time.Time, obs astro.Observer) (float64, error) {
	sun, err := c.pos.EquatorialPosition(ephem.BodySun, t, obs)
	if err != nil {
		return 0, upstream("sun position", err)
	}
	moon, err := c.pos.EquatorialPosition(ephem.BodyMoon, t, obs)
	if err != nil {
		return 0, upstream("moon position", err)
	}

	sep := separationDeg(sun, moon)
	rSun := angularRadiusDeg(astro.SunRadiusKm, sun.DistAU)
	rMoon := angularRadiusDeg(astro.MoonRadiusKm, moon.DistAU)

	return astro.DiskOverlap(rSun, rMoon, sep), nil
}

// Sample returns Coverage at t as a curve point.
func (c *Calculator) Sample(t time.Time, obs astro.Observer) (CoverageSample, error) {
	cov, err := c.Coverage(t, obs)
	if err != nil {
		return CoverageSample{}, err
	}
	return CoverageSample{Time: t, Coverage: cov}, nil
}

// SunHorizontal returns the Sun's azimuth and elevation at t for obs.
// No refraction is applied.
func (c *Calculator) SunHorizontal(t time.Time, obs astro.Observer) (SunDirection, error) {
	sun, err := c.pos.EquatorialPosition(ephem.BodySun, t, obs)
	if err != nil {
		return SunDirection{}, upstream("sun position", err)
	}
	h := c.pos.HorizontalPosition(t, obs, sun, ephem.HorizonNormal)
	return SunDirection{
		AzimuthDeg:   h.AzimuthDeg,
		ElevationDeg: h.AltitudeDeg,
	}, nil
}

// separationDeg is the angle between two positions by the spherical law of
// cosines.
func separationDeg(a, b ephem.Equatorial) float64 {
	raA := a.RAHours * 15 * math.Pi / 180
	raB := b.RAHours * 15 * math.Pi / 180
	decA := a.DecDeg * math.Pi / 180
	decB := b.DecDeg * math.Pi / 180

	cosSep := math.Sin(decA)*math.Sin(decB) + math.Cos(decA)*math.Cos(decB)*math.Cos(raA-raB)
	return math.Acos(math.Max(-1, math.Min(1, cosSep))) * 180 / math.Pi
}

func angularRadiusDeg(radiusKm, distAU float64) float64 {
	return astro.AngularRadius(radiusKm, distAU*astro.AU)
}
