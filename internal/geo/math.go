package geo

import "math"

// MaxMercatorLat is the latitude limit of the web map projection.
const MaxMercatorLat = 85.05112878

// TileBounds returns the geodetic box covered by slippy-map tile z/x/y.
//
// It maps the tile column to the longitude range [-180, 180] and applies an
// inverse Mercator projection to the tile row for latitude.
func TileBounds(z, x, y int) Bounds {
	n := float64(int(1) << z)
	return Bounds{
		West:  float64(x)/n*360.0 - 180.0,
		East:  float64(x+1)/n*360.0 - 180.0,
		North: tileLat(float64(y), n),
		South: tileLat(float64(y+1), n),
	}
}

func tileLat(y, n float64) float64 {
	// y: [0..n] -> mercatorY: [PI..-PI]
	mercatorY := math.Pi * (1 - 2*y/n)

	// Inverse Mercator projection
	lat := math.Atan(math.Sinh(mercatorY)) * (180.0 / math.Pi)

	if lat > MaxMercatorLat {
		lat = MaxMercatorLat
	} else if lat < -MaxMercatorLat {
		lat = -MaxMercatorLat
	}
	return lat
}
