package astro

import "math"

// AngularRadius returns the apparent angular radius in degrees of a sphere of
// the given physical radius seen from distKm.
func AngularRadius(radiusKm, distKm float64) float64 {
	if distKm <= 0 {
		return 0
	}
	return radToDeg(math.Asin(clamp(radiusKm/distKm, -1, 1)))
}

// DiskOverlap returns the fraction of disk 1 (radius r1) covered by disk 2
// (radius r2) when their centers are d apart. All arguments share one angular
// unit. The result is in [0, 1]; non-positive radii yield 0.
func DiskOverlap(r1, r2, d float64) float64 {
	if r1 <= 0 || r2 <= 0 || math.IsNaN(d) {
		return 0
	}
	d = math.Abs(d)

	// Disjoint
	if d >= r1+r2 {
		return 0
	}

	// One disk inside the other
	if d <= math.Abs(r1-r2) {
		if r1 <= r2 {
			return 1
		}
		return (r2 / r1) * (r2 / r1)
	}

	// Lens: the chord splits d into d1 (from center 1) and d2 (from center 2)
	r1Sq := r1 * r1
	r2Sq := r2 * r2
	d1 := (r1Sq - r2Sq + d*d) / (2 * d)
	d2 := d - d1

	area := r1Sq*math.Acos(clamp(d1/r1, -1, 1)) - d1*math.Sqrt(math.Max(0, r1Sq-d1*d1)) +
		r2Sq*math.Acos(clamp(d2/r2, -1, 1)) - d2*math.Sqrt(math.Max(0, r2Sq-d2*d2))

	return clamp(area/(math.Pi*r1Sq), 0, 1)
}

// AngularSeparation calculates the angular separation between two points on the celestial sphere.
// All coordinates in degrees. Returns separation in degrees.
func AngularSeparation(ra1, dec1, ra2, dec2 float64) float64 {
	ra1Rad := degToRad(ra1)
	dec1Rad := degToRad(dec1)
	ra2Rad := degToRad(ra2)
	dec2Rad := degToRad(dec2)

	// Haversine keeps precision for the sub-degree separations near conjunction
	dRA := ra2Rad - ra1Rad
	dDec := dec2Rad - dec1Rad

	a := math.Sin(dDec/2)*math.Sin(dDec/2) +
		math.Cos(dec1Rad)*math.Cos(dec2Rad)*math.Sin(dRA/2)*math.Sin(dRA/2)

	return radToDeg(2 * math.Asin(math.Sqrt(clamp(a, 0, 1))))
}
