package astro

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Supported span of the analytic series. The truncated lunar theory drifts
// by arcminutes a few centuries away from J2000.
const (
	MinSupportedYear = 1700
	MaxSupportedYear = 2300
)

// ErrTimeOutOfRange is returned for instants outside the supported span.
var ErrTimeOutOfRange = errors.New("time outside supported ephemeris range")

// DeltaT returns TT-UT in seconds using the Espenak-Meeus polynomials.
func DeltaT(t time.Time) float64 {
	t = t.UTC()
	y := float64(t.Year()) + (float64(t.YearDay())-0.5)/365.25

	switch {
	case y < 1800:
		u := y - 1700
		return 8.83 + 0.1603*u - 0.0059285*u*u + 0.00013336*u*u*u - u*u*u*u/1174000
	case y < 1860:
		u := y - 1800
		return 13.72 - 0.332447*u + 0.0068612*u*u + 0.0041116*u*u*u -
			0.00037436*u*u*u*u + 0.0000121272*math.Pow(u, 5) -
			0.0000001699*math.Pow(u, 6) + 0.000000000875*math.Pow(u, 7)
	case y < 1900:
		u := y - 1860
		return 7.62 + 0.5737*u - 0.251754*u*u + 0.01680668*u*u*u -
			0.0004473624*u*u*u*u + math.Pow(u, 5)/233174
	case y < 1920:
		u := y - 1900
		return -2.79 + 1.494119*u - 0.0598939*u*u + 0.0061966*u*u*u - 0.000197*u*u*u*u
	case y < 1941:
		u := y - 1920
		return 21.20 + 0.84493*u - 0.076100*u*u + 0.0020936*u*u*u
	case y < 1961:
		u := y - 1950
		return 29.07 + 0.407*u - u*u/233 + u*u*u/2547
	case y < 1986:
		u := y - 1975
		return 45.45 + 1.067*u - u*u/260 - u*u*u/718
	case y < 2005:
		u := y - 2000
		return 63.86 + 0.3345*u - 0.060374*u*u + 0.0017275*u*u*u +
			0.000651814*u*u*u*u + 0.00002373599*math.Pow(u, 5)
	case y < 2050:
		u := y - 2000
		return 62.92 + 0.32217*u + 0.005589*u*u
	case y < 2150:
		u := (y - 1820) / 100
		return -20 + 32*u*u - 0.5628*(2150-y)
	default:
		u := (y - 1820) / 100
		return -20 + 32*u*u
	}
}

// julianCenturiesTT returns Julian centuries of Terrestrial Time since J2000.0.
func julianCenturiesTT(t time.Time) (float64, error) {
	if y := t.UTC().Year(); y < MinSupportedYear || y > MaxSupportedYear {
		return 0, fmt.Errorf("%w: year %d", ErrTimeOutOfRange, y)
	}
	jde := julianDate(t) + DeltaT(t)/86400
	return (jde - 2451545.0) / 36525.0, nil
}

// nutation holds the nutation in longitude and the true obliquity, in degrees.
type nutation struct {
	dPsi float64
	eps  float64
}

// nutationAt evaluates the abridged IAU 1980 nutation (Meeus ch. 22),
// good to about half an arcsecond.
func nutationAt(T float64) nutation {
	omega := degToRad(125.04452 - 1934.136261*T + 0.0020708*T*T + T*T*T/450000)
	lSun := degToRad(280.4665 + 36000.7698*T)
	lMoon := degToRad(218.3165 + 481267.8813*T)

	dPsi := -17.20*math.Sin(omega) - 1.32*math.Sin(2*lSun) -
		0.23*math.Sin(2*lMoon) + 0.21*math.Sin(2*omega)
	dEps := 9.20*math.Cos(omega) + 0.57*math.Cos(2*lSun) +
		0.10*math.Cos(2*lMoon) - 0.09*math.Cos(2*omega)

	return nutation{
		dPsi: dPsi / 3600,
		eps:  meanObliquity(T) + dEps/3600,
	}
}

// meanObliquity returns the mean obliquity of the ecliptic in degrees (IAU).
func meanObliquity(T float64) float64 {
	return 23.0 + 26.0/60 + (21.448-46.8150*T-0.00059*T*T+0.001813*T*T*T)/3600
}

// eclipticToEquatorial rotates ecliptic longitude/latitude (degrees) into
// RA/Dec (degrees) for obliquity eps (degrees).
func eclipticToEquatorial(lambdaDeg, betaDeg, epsDeg float64) (raDeg, decDeg float64) {
	lam := degToRad(lambdaDeg)
	bet := degToRad(betaDeg)
	eps := degToRad(epsDeg)

	ra := math.Atan2(math.Sin(lam)*math.Cos(eps)-math.Tan(bet)*math.Sin(eps), math.Cos(lam))
	dec := math.Asin(clamp(math.Sin(bet)*math.Cos(eps)+math.Cos(bet)*math.Sin(eps)*math.Sin(lam), -1, 1))

	return normalizeAngle360(radToDeg(ra)), radToDeg(dec)
}
