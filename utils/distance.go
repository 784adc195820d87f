package utils

import (
	"math"
)

// EarthRadiusM is the mean earth radius in metres.
const EarthRadiusM = 6371008.8

// RhumbLineDistance returns the distance in metres between two positions
// along a line of constant bearing.
func RhumbLineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := phi2 - phi1
	dLambda := math.Abs(lon2-lon1) * math.Pi / 180
	if dLambda > math.Pi {
		dLambda = 2*math.Pi - dLambda
	}

	dPsi := math.Log(math.Tan(math.Pi/4+phi2/2) / math.Tan(math.Pi/4+phi1/2))
	// E-W lines have dPsi == 0 and need the cosine of the latitude instead
	q := math.Cos(phi1)
	if math.Abs(dPsi) > 1e-12 {
		q = dPhi / dPsi
	}
	return math.Sqrt(dPhi*dPhi+q*q*dLambda*dLambda) * EarthRadiusM
}
