package astro

// ElevationTier categorizes the Sun's elevation for display.
type ElevationTier int

const (
	ElevationNone   ElevationTier = iota // Below horizon
	ElevationLow                         // 0-10 degrees, eclipse may be lost in haze
	ElevationMedium                      // 10-30 degrees
	ElevationHigh                        // 30+ degrees
)

// String returns a short label for the tier.
func (t ElevationTier) String() string {
	switch t {
	case ElevationNone:
		return "below horizon"
	case ElevationLow:
		return "low"
	case ElevationMedium:
		return "medium"
	case ElevationHigh:
		return "high"
	default:
		return "unknown"
	}
}

// GetElevationTier returns the tier for a given elevation.
func GetElevationTier(elDeg float64) ElevationTier {
	switch {
	case elDeg <= 0:
		return ElevationNone
	case elDeg < 10:
		return ElevationLow
	case elDeg < 30:
		return ElevationMedium
	default:
		return ElevationHigh
	}
}
