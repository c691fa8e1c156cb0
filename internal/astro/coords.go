// Package astro provides astronomical time scales, solar and lunar positions,
// coordinate transformations and apparent-disk geometry.
package astro

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// SkyCoord represents celestial coordinates with both equatorial (RA/Dec)
// and horizontal (Az/El) components.
type SkyCoord struct {
	// Equatorial coordinates (true equator and equinox of date)
	RAdeg  float64 // Right Ascension in degrees (0-360)
	DecDeg float64 // Declination in degrees (-90 to +90)

	// Horizontal coordinates (observer-relative)
	AzDeg float64 // Azimuth in degrees (0=N, 90=E, 180=S, 270=W)
	ElDeg float64 // Elevation/Altitude in degrees (0=horizon, 90=zenith)

	// Distance from the center of the frame (geocenter or observer)
	RangeKm float64
}

// Observer represents a ground-based observer location.
type Observer struct {
	LatDeg     float64 `json:"latitude"`       // Degrees, north positive
	LonDeg     float64 `json:"longitude"`      // Degrees, east positive
	ElevationM float64 `json:"elevation_m"`    // Height above sea level in meters
	Name       string  `json:"name,omitempty"` // Optional name for the site
}

// ErrInvalidObserver is returned when an observer lies outside the valid
// latitude/longitude/elevation domain.
var ErrInvalidObserver = errors.New("invalid observer")

// Validate checks the observer's coordinates.
func (o Observer) Validate() error {
	switch {
	case !finite(o.LatDeg) || o.LatDeg < -90 || o.LatDeg > 90:
		return fmt.Errorf("%w: latitude %.4f outside [-90, 90]", ErrInvalidObserver, o.LatDeg)
	case !finite(o.LonDeg) || o.LonDeg < -180 || o.LonDeg > 180:
		return fmt.Errorf("%w: longitude %.4f outside [-180, 180]", ErrInvalidObserver, o.LonDeg)
	case !finite(o.ElevationM):
		return fmt.Errorf("%w: elevation %.1f m is not finite", ErrInvalidObserver, o.ElevationM)
	case o.ElevationM < 0:
		return fmt.Errorf("%w: elevation %.1f m is negative", ErrInvalidObserver, o.ElevationM)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// String formats the observer as "lat, lon" with an optional name.
func (o Observer) String() string {
	s := fmt.Sprintf("%.4f°, %.4f°", o.LatDeg, o.LonDeg)
	if o.ElevationM > 0 {
		s += fmt.Sprintf(", %.0f m", o.ElevationM)
	}
	if o.Name != "" {
		s = o.Name + " (" + s + ")"
	}
	return s
}

// EquatorialToHorizontal converts equatorial coordinates (RA/Dec) to horizontal
// coordinates (Az/El) for a given observer and time.
//
// The function preserves the input RA/Dec values and populates Az/El.
// No atmospheric refraction is applied.
// Uses standard astronomical conventions:
//   - Azimuth: 0° = North, 90° = East, 180° = South, 270° = West
//   - Elevation: 0° = horizon, 90° = zenith
func EquatorialToHorizontal(eq SkyCoord, obs Observer, t time.Time) SkyCoord {
	lat := degToRad(obs.LatDeg)
	dec := degToRad(eq.DecDeg)

	// Hour Angle = LST - RA
	ha := degToRad(localSiderealTime(t, obs.LonDeg) - eq.RAdeg)

	sinAlt := math.Sin(dec)*math.Sin(lat) + math.Cos(dec)*math.Cos(lat)*math.Cos(ha)
	alt := math.Asin(clamp(sinAlt, -1, 1))

	// atan2 form stays defined at the zenith, where the cosine form divides by zero
	az := math.Atan2(
		-math.Cos(dec)*math.Sin(ha),
		math.Sin(dec)*math.Cos(lat)-math.Cos(dec)*math.Sin(lat)*math.Cos(ha),
	)

	return SkyCoord{
		RAdeg:   eq.RAdeg,
		DecDeg:  eq.DecDeg,
		AzDeg:   normalizeAngle360(radToDeg(az)),
		ElDeg:   radToDeg(alt),
		RangeKm: eq.RangeKm,
	}
}

// localSiderealTime calculates the local apparent sidereal time in degrees
// for a given UTC time and observer longitude. Right ascensions of date
// include nutation, so the hour angle needs the apparent value.
func localSiderealTime(t time.Time, lonDeg float64) float64 {
	return normalizeAngle360(greenwichApparentSiderealTime(t) + lonDeg)
}

// greenwichApparentSiderealTime is GMST corrected by the equation of the
// equinoxes, in degrees.
func greenwichApparentSiderealTime(t time.Time) float64 {
	return normalizeAngle360(greenwichMeanSiderealTime(t) + equationOfEquinoxes(t))
}

// equationOfEquinoxes returns Δψ·cos ε in degrees (Meeus ch. 12).
func equationOfEquinoxes(t time.Time) float64 {
	T := (julianDate(t) + DeltaT(t)/86400 - 2451545.0) / 36525.0
	nut := nutationAt(T)
	return nut.dPsi * math.Cos(degToRad(nut.eps))
}

// greenwichMeanSiderealTime calculates GMST in degrees for a given UTC time.
// Uses the IAU formula based on Julian Date.
func greenwichMeanSiderealTime(t time.Time) float64 {
	jd := julianDate(t)

	// Julian centuries since J2000.0
	T := (jd - 2451545.0) / 36525.0

	// GMST = 280.46061837 + 360.98564736629*(JD-2451545) + 0.000387933*T^2 - T^3/38710000
	gmst := 280.46061837 +
		360.98564736629*(jd-2451545.0) +
		0.000387933*T*T -
		T*T*T/38710000.0

	return normalizeAngle360(gmst)
}

// julianDate calculates the Julian Date (UT) for a given time.
func julianDate(t time.Time) float64 {
	t = t.UTC()

	y := float64(t.Year())
	m := float64(t.Month())
	d := float64(t.Day())

	h := float64(t.Hour())
	min := float64(t.Minute())
	sec := float64(t.Second())
	ns := float64(t.Nanosecond())

	dayFrac := (h + min/60 + sec/3600 + ns/3600e9) / 24.0

	// January/February count as months 13/14 of the previous year
	if m <= 2 {
		y--
		m += 12
	}

	// Gregorian calendar correction
	A := math.Floor(y / 100)
	B := 2 - A + math.Floor(A/4)

	return math.Floor(365.25*(y+4716)) +
		math.Floor(30.6001*(m+1)) +
		d + dayFrac + B - 1524.5
}

// JulianDate returns the Julian Date (UT) for t.
func JulianDate(t time.Time) float64 {
	return julianDate(t)
}

// normalizeAngle360 normalizes an angle to 0-360 degrees.
func normalizeAngle360(a float64) float64 {
	a = math.Mod(a, 360)
	if a < 0 {
		a += 360
	}
	return a
}

// normalizeAngle180 wraps an angle to (-180, 180] degrees.
func normalizeAngle180(a float64) float64 {
	a = normalizeAngle360(a)
	if a > 180 {
		a -= 360
	}
	return a
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// degToRad converts degrees to radians.
func degToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// radToDeg converts radians to degrees.
func radToDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}
