package vectors

import "math"

// EncodeLocation maps a latitude/longitude pair in degrees onto the unit
// sphere. The cosine similarity of two encodings is the cosine of the
// central angle between the points: 1 for the same place, 0 for points a
// quarter of the globe apart.
func EncodeLocation(lat, lng float64) []float64 {
	phi := lat * math.Pi / 180
	lambda := lng * math.Pi / 180
	return []float64{
		math.Cos(phi) * math.Cos(lambda),
		math.Cos(phi) * math.Sin(lambda),
		math.Sin(phi),
	}
}
