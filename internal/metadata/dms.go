package metadata

const (
	// DefaultLatitudeRef applies when a latitude has no hemisphere tag.
	DefaultLatitudeRef = "N"
	// DefaultLongitudeRef applies when a longitude has no hemisphere tag.
	DefaultLongitudeRef = "E"

	minutesPerDegree = 60.0
	secondsPerDegree = 3600.0
)

// DMSToDecimal converts degrees, minutes and seconds to decimal degrees,
// negated for the southern and western hemispheres. Ranges are not checked.
func DMSToDecimal(dms [3]float64, ref string) float64 {
	decimal := dms[0] + dms[1]/minutesPerDegree + dms[2]/secondsPerDegree
	if ref == "S" || ref == "W" {
		return -decimal
	}
	return decimal
}
