package astro

import (
	"math"
	"time"
)

// AU is the Astronomical Unit in kilometers.
const AU = 149597870.7

// EarthEquatorialRadiusKm is the IAU 1976 equatorial radius used for parallax.
const EarthEquatorialRadiusKm = 6378.14

// earthPolarRatio is b/a for the reference ellipsoid.
const earthPolarRatio = 0.99664719

// Vec3 represents a 3D vector in any reference frame.
type Vec3 struct {
	X, Y, Z float64
}

// Norm returns the magnitude of the vector.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Scale returns the vector scaled by a factor.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Sub returns the difference of two vectors.
func (v Vec3) Sub(u Vec3) Vec3 {
	return Vec3{X: v.X - u.X, Y: v.Y - u.Y, Z: v.Z - u.Z}
}

// equatorialToVec converts RA/Dec/range to a rectangular equatorial vector.
func equatorialToVec(c SkyCoord) Vec3 {
	ra := degToRad(c.RAdeg)
	dec := degToRad(c.DecDeg)
	return Vec3{
		X: math.Cos(dec) * math.Cos(ra),
		Y: math.Cos(dec) * math.Sin(ra),
		Z: math.Sin(dec),
	}.Scale(c.RangeKm)
}

// vecToEquatorial converts a rectangular equatorial vector back to RA/Dec/range.
func vecToEquatorial(v Vec3) SkyCoord {
	r := v.Norm()
	if r == 0 {
		return SkyCoord{}
	}
	return SkyCoord{
		RAdeg:   normalizeAngle360(radToDeg(math.Atan2(v.Y, v.X))),
		DecDeg:  radToDeg(math.Asin(clamp(v.Z/r, -1, 1))),
		RangeKm: r,
	}
}

// ObserverVector returns the observer's geocentric position in km in the
// equatorial frame of date at time t. Elevation above the ellipsoid is included.
func ObserverVector(obs Observer, t time.Time) Vec3 {
	lat := degToRad(obs.LatDeg)
	u := math.Atan(earthPolarRatio * math.Tan(lat))
	h := obs.ElevationM / 1000 / EarthEquatorialRadiusKm

	rhoSin := earthPolarRatio*math.Sin(u) + h*math.Sin(lat)
	rhoCos := math.Cos(u) + h*math.Cos(lat)

	theta := degToRad(localSiderealTime(t, obs.LonDeg))
	return Vec3{
		X: rhoCos * math.Cos(theta),
		Y: rhoCos * math.Sin(theta),
		Z: rhoSin,
	}.Scale(EarthEquatorialRadiusKm)
}

// Topocentric shifts a geocentric equatorial position to the observer's
// location. RangeKm must be set on the input.
func Topocentric(geo SkyCoord, obs Observer, t time.Time) SkyCoord {
	return vecToEquatorial(equatorialToVec(geo).Sub(ObserverVector(obs, t)))
}

// KmToAU converts kilometers to Astronomical Units.
func KmToAU(km float64) float64 {
	return km / AU
}

// AUToKm converts Astronomical Units to kilometers.
func AUToKm(au float64) float64 {
	return au * AU
}
