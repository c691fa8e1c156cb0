package astro

import (
	"math"
	"time"
)

// SunRadiusKm is the Sun's physical radius.
const SunRadiusKm = 696340.0

// aberrationConstant is the annual aberration in degrees at 1 AU (20.4898").
const aberrationConstant = 20.4898 / 3600

// SunPosition calculates the apparent geocentric equatorial coordinates of the
// Sun, referred to the true equator and equinox of date, with the distance in
// RangeKm. Uses the low-precision theory of Meeus ch. 25 (about 0.01°) with
// nutation and annual aberration applied.
func SunPosition(t time.Time) (SkyCoord, error) {
	T, err := julianCenturiesTT(t)
	if err != nil {
		return SkyCoord{}, err
	}
	nut := nutationAt(T)
	lon, r := sunEcliptic(T)

	apparent := lon + nut.dPsi - aberrationConstant/r
	ra, dec := eclipticToEquatorial(apparent, 0, nut.eps)

	return SkyCoord{
		RAdeg:   ra,
		DecDeg:  dec,
		RangeKm: r * AU,
	}, nil
}

// sunEcliptic returns the Sun's true geometric longitude (degrees, mean
// equinox of date) and radius vector (AU).
func sunEcliptic(T float64) (lonDeg, rAU float64) {
	// Mean longitude of the Sun (degrees)
	L0 := normalizeAngle360(280.46646 + 36000.76983*T + 0.0003032*T*T)

	// Mean anomaly of the Sun (degrees)
	M := normalizeAngle360(357.52911 + 35999.05029*T - 0.0001537*T*T)
	Mrad := degToRad(M)

	// Eccentricity of Earth's orbit
	e := 0.016708634 - 0.000042037*T - 0.0000001267*T*T

	// Equation of center (degrees)
	C := (1.914602 - 0.004817*T - 0.000014*T*T) * math.Sin(Mrad)
	C += (0.019993 - 0.000101*T) * math.Sin(2*Mrad)
	C += 0.000289 * math.Sin(3*Mrad)

	v := degToRad(M + C)
	rAU = 1.000001018 * (1 - e*e) / (1 + e*math.Cos(v))

	return normalizeAngle360(L0 + C), rAU
}
