package astro

import (
	"math"
	"time"
)

// MoonRadiusKm is the Moon's mean physical radius.
const MoonRadiusKm = 1737.4

// lunarTerm is one periodic term of the lunar series. The arguments are the
// multiples of D (mean elongation), M (solar anomaly), M' (lunar anomaly) and
// F (argument of latitude).
type lunarTerm struct {
	d, m, mp, f int
	a, b        float64
}

// lonDistTerms is Meeus Table 47.A: a = longitude coefficient (1e-6 deg),
// b = distance coefficient (1e-3 km).
var lonDistTerms = []lunarTerm{
	{0, 0, 1, 0, 6288774, -20905355},
	{2, 0, -1, 0, 1274027, -3699111},
	{2, 0, 0, 0, 658314, -2955968},
	{0, 0, 2, 0, 213618, -569925},
	{0, 1, 0, 0, -185116, 48888},
	{0, 0, 0, 2, -114332, -3149},
	{2, 0, -2, 0, 58793, 246158},
	{2, -1, -1, 0, 57066, -152138},
	{2, 0, 1, 0, 53322, -170733},
	{2, -1, 0, 0, 45758, -204586},
	{0, 1, -1, 0, -40923, -129620},
	{1, 0, 0, 0, -34720, 108743},
	{0, 1, 1, 0, -30383, 104755},
	{2, 0, 0, -2, 15327, 10321},
	{0, 0, 1, 2, -12528, 0},
	{0, 0, 1, -2, 10980, 79661},
	{4, 0, -1, 0, 10675, -34782},
	{0, 0, 3, 0, 10034, -23210},
	{4, 0, -2, 0, 8548, -21636},
	{2, 1, -1, 0, -7888, 24208},
	{2, 1, 0, 0, -6766, 30824},
	{1, 0, -1, 0, -5163, -8379},
	{1, 1, 0, 0, 4987, -16675},
	{2, -1, 1, 0, 4036, -12831},
	{2, 0, 2, 0, 3994, -10445},
	{4, 0, 0, 0, 3861, -11650},
	{2, 0, -3, 0, 3665, 14403},
	{0, 1, -2, 0, -2689, -7003},
	{2, 0, -1, 2, -2602, 0},
	{2, -1, -2, 0, 2390, 10056},
	{1, 0, 1, 0, -2348, 6322},
	{2, -2, 0, 0, 2236, -9884},
	{0, 1, 2, 0, -2120, 5751},
	{0, 2, 0, 0, -2069, 0},
	{2, -2, -1, 0, 2048, -4950},
	{2, 0, 1, -2, -1773, 4130},
	{2, 0, 0, 2, -1595, 0},
	{4, -1, -1, 0, 1215, -3958},
	{0, 0, 2, 2, -1110, 0},
	{3, 0, -1, 0, -892, 3258},
	{2, 1, 1, 0, -810, 2616},
	{4, -1, -2, 0, 759, -1897},
	{0, 2, -1, 0, -713, -2117},
	{2, 2, -1, 0, -700, 2354},
	{2, 1, -2, 0, 691, 0},
	{2, -1, 0, -2, 596, 0},
	{4, 0, 1, 0, 549, -1423},
	{0, 0, 4, 0, 537, -1117},
	{4, -1, 0, 0, 520, -1571},
	{1, 0, -2, 0, -487, -1739},
	{2, 1, 0, -2, -399, 0},
	{0, 0, 2, -2, -381, -4421},
	{1, 1, 1, 0, 351, 0},
	{3, 0, -2, 0, -340, 0},
	{4, 0, -3, 0, 330, 0},
	{2, -1, 2, 0, 327, 0},
	{0, 2, 1, 0, -323, 1165},
	{1, 1, -1, 0, 299, 0},
	{2, 0, 3, 0, 294, 0},
	{2, 0, -1, -2, 0, 8752},
}

// latTerms is Meeus Table 47.B: a = latitude coefficient (1e-6 deg).
var latTerms = []lunarTerm{
	{0, 0, 0, 1, 5128122, 0},
	{0, 0, 1, 1, 280602, 0},
	{0, 0, 1, -1, 277693, 0},
	{2, 0, 0, -1, 173237, 0},
	{2, 0, -1, 1, 55413, 0},
	{2, 0, -1, -1, 46271, 0},
	{2, 0, 0, 1, 32573, 0},
	{0, 0, 2, 1, 17198, 0},
	{2, 0, 1, -1, 9266, 0},
	{0, 0, 2, -1, 8822, 0},
	{2, -1, 0, -1, 8216, 0},
	{2, 0, -2, -1, 4324, 0},
	{2, 0, 1, 1, 4200, 0},
	{2, 1, 0, -1, -3359, 0},
	{2, -1, -1, 1, 2463, 0},
	{2, -1, 0, 1, 2211, 0},
	{2, -1, -1, -1, 2065, 0},
	{0, 1, -1, -1, -1870, 0},
	{4, 0, -1, -1, 1828, 0},
	{0, 1, 0, 1, -1794, 0},
	{0, 0, 0, 3, -1749, 0},
	{0, 1, -1, 1, -1565, 0},
	{1, 0, 0, 1, -1491, 0},
	{0, 1, 1, 1, -1475, 0},
	{0, 1, 1, -1, -1410, 0},
	{0, 1, 0, -1, -1344, 0},
	{1, 0, 0, -1, -1335, 0},
	{0, 0, 3, 1, 1107, 0},
	{4, 0, 0, -1, 1021, 0},
	{4, 0, -1, 1, 833, 0},
	{0, 0, 1, -3, 777, 0},
	{4, 0, -2, 1, 671, 0},
	{2, 0, 0, -3, 607, 0},
	{2, 0, 2, -1, 596, 0},
	{2, -1, 1, -1, 491, 0},
	{2, 0, -2, 1, -451, 0},
	{0, 0, 3, -1, 439, 0},
	{2, 0, 2, 1, 422, 0},
	{2, 0, -3, -1, 421, 0},
	{2, 1, -1, 1, -366, 0},
	{2, 1, 0, 1, -351, 0},
	{4, 0, 0, 1, 331, 0},
	{2, -1, 1, 1, 315, 0},
	{2, -2, 0, -1, 302, 0},
	{0, 0, 1, 3, -283, 0},
	{2, 1, 1, -1, -229, 0},
	{1, 1, 0, -1, 223, 0},
	{1, 1, 0, 1, 223, 0},
	{0, 1, -2, -1, -220, 0},
	{2, 1, -1, -1, -220, 0},
	{1, 0, 1, 1, -185, 0},
	{2, -1, -2, -1, 181, 0},
	{0, 1, 2, 1, -177, 0},
	{4, 0, -2, -1, 176, 0},
	{4, -1, -1, -1, 166, 0},
	{1, 0, 1, -1, -164, 0},
	{4, 0, 1, -1, 132, 0},
	{1, 0, -1, -1, -119, 0},
	{4, -1, 0, -1, 115, 0},
	{2, -2, 0, 1, 107, 0},
}

// moonEcliptic holds the Moon's geometric ecliptic coordinates of date.
type moonEcliptic struct {
	lonDeg float64
	latDeg float64
	distKm float64
}

// moonEclipticAt evaluates the full Meeus ch. 47 series at T (Julian
// centuries TT). Accuracy is about 10" in longitude and 4" in latitude.
func moonEclipticAt(T float64) moonEcliptic {
	T2, T3, T4 := T*T, T*T*T, T*T*T*T

	Lp := normalizeAngle360(218.3164477 + 481267.88123421*T - 0.0015786*T2 + T3/538841 - T4/65194000)
	D := normalizeAngle360(297.8501921 + 445267.1114034*T - 0.0018819*T2 + T3/545868 - T4/113065000)
	M := normalizeAngle360(357.5291092 + 35999.0502909*T - 0.0001536*T2 + T3/24490000)
	Mp := normalizeAngle360(134.9633964 + 477198.8675055*T + 0.0087414*T2 + T3/69699 - T4/14712000)
	F := normalizeAngle360(93.2720950 + 483202.0175233*T - 0.0036539*T2 - T3/3526000 + T4/863310000)

	A1 := degToRad(119.75 + 131.849*T)
	A2 := degToRad(53.09 + 479264.290*T)
	A3 := degToRad(313.45 + 481266.484*T)

	// Terms involving the solar anomaly shrink with Earth's eccentricity
	E := 1 - 0.002516*T - 0.0000074*T2
	ecc := func(m int) float64 {
		switch m {
		case 1, -1:
			return E
		case 2, -2:
			return E * E
		default:
			return 1
		}
	}

	dR, mR, mpR, fR := degToRad(D), degToRad(M), degToRad(Mp), degToRad(F)

	var sumL, sumR, sumB float64
	for _, tm := range lonDistTerms {
		arg := float64(tm.d)*dR + float64(tm.m)*mR + float64(tm.mp)*mpR + float64(tm.f)*fR
		e := ecc(tm.m)
		sumL += tm.a * e * math.Sin(arg)
		sumR += tm.b * e * math.Cos(arg)
	}
	for _, tm := range latTerms {
		arg := float64(tm.d)*dR + float64(tm.m)*mR + float64(tm.mp)*mpR + float64(tm.f)*fR
		sumB += tm.a * ecc(tm.m) * math.Sin(arg)
	}

	LpR := degToRad(Lp)
	sumL += 3958*math.Sin(A1) + 1962*math.Sin(LpR-fR) + 318*math.Sin(A2)
	sumB += -2235*math.Sin(LpR) + 382*math.Sin(A3) + 175*math.Sin(A1-fR) +
		175*math.Sin(A1+fR) + 127*math.Sin(LpR-mpR) - 115*math.Sin(LpR+mpR)

	return moonEcliptic{
		lonDeg: normalizeAngle360(Lp + sumL/1e6),
		latDeg: sumB / 1e6,
		distKm: 385000.56 + sumR/1000,
	}
}

// MoonPosition calculates the apparent geocentric equatorial coordinates of
// the Moon (true equator and equinox of date) with the distance in RangeKm.
// Light-time for the Moon is about 1.3 s and is not applied.
func MoonPosition(t time.Time) (SkyCoord, error) {
	T, err := julianCenturiesTT(t)
	if err != nil {
		return SkyCoord{}, err
	}
	nut := nutationAt(T)
	moon := moonEclipticAt(T)

	ra, dec := eclipticToEquatorial(moon.lonDeg+nut.dPsi, moon.latDeg, nut.eps)
	return SkyCoord{
		RAdeg:   ra,
		DecDeg:  dec,
		RangeKm: moon.distKm,
	}, nil
}

// ConjunctionOffset returns the Moon's apparent ecliptic longitude minus the
// Sun's, wrapped to (-180, 180], and the Moon's ecliptic latitude, both in
// degrees. New moon is the zero of the first value.
func ConjunctionOffset(t time.Time) (elongationDeg, moonLatDeg float64, err error) {
	T, err := julianCenturiesTT(t)
	if err != nil {
		return 0, 0, err
	}
	sunLon, r := sunEcliptic(T)
	moon := moonEclipticAt(T)
	return normalizeAngle180(moon.lonDeg - (sunLon - aberrationConstant/r)), moon.latDeg, nil
}
