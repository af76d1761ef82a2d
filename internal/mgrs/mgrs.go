// Package mgrs encodes and parses military grid references.
//
// A reference is built from a zone number, a latitude band letter, a
// two-letter 100 km square identifier and, for finer precisions, an equal
// number of easting and northing digits: 05Q, 05QKB, 05QKB37, 05QKB3172.
// Parse is the only place reference strings are taken apart.
package mgrs

import (
	"fmt"
	"math"
	"strings"

	"github.com/woozymasta/mgrsgrid/internal/geo"
)

const (
	// BandLetters lists the latitude bands from 80°S northwards.
	BandLetters = "CDEFGHJKLMNPQRSTUVWX"

	MinLatitude = -80.0
	MaxLatitude = 84.0

	// BandHeight is the height of every band except X.
	BandHeight = 8.0

	squareSize = 100000
	rowLetters = "ABCDEFGHJKLMNPQRSTUV"
	maxDigits  = 5
)

// columnLetters holds the 100 km column letter sets, indexed by zone mod 3.
var columnLetters = [3]string{"STUVWXYZ", "ABCDEFGH", "JKLMNPQR"}

// Projector projects geodetic points into a zone.
type Projector interface {
	ToProjected(p geo.GeodeticPoint, zone int, h geo.Hemisphere) (geo.ProjectedPoint, error)
}

// LatitudeBand returns the band letter of a latitude.
func LatitudeBand(lat float64) (byte, error) {
	if math.IsNaN(lat) || lat < MinLatitude || lat > MaxLatitude {
		return 0, &Error{Input: fmt.Sprintf("%g", lat), Reason: "latitude outside grid coverage"}
	}
	if lat >= 72 {
		return 'X', nil
	}
	return BandLetters[int(math.Floor((lat-MinLatitude)/BandHeight))], nil
}

// BandRange returns the southern and northern latitude of a band.
func BandRange(band byte) (south, north float64, err error) {
	i := strings.IndexByte(BandLetters, band)
	if i < 0 {
		return 0, 0, &Error{Input: string(band), Reason: "unknown band"}
	}
	south = MinLatitude + float64(i)*BandHeight
	north = south + BandHeight
	if band == 'X' {
		north = MaxLatitude
	}
	return south, north, nil
}

// BandHemisphere returns the hemisphere of a band letter.
func BandHemisphere(band byte) geo.Hemisphere {
	if band >= 'N' {
		return geo.North
	}
	return geo.South
}

// ZoneID formats a zone key such as "05Q".
func ZoneID(zone int, band byte) string {
	return fmt.Sprintf("%02d%c", zone, band)
}

// DigitsForPrecision returns the number of easting (and northing) digits of a
// reference at the given cell size.
func DigitsForPrecision(meters int) (int, error) {
	size := squareSize
	for d := 0; d <= maxDigits; d++ {
		if size == meters {
			return d, nil
		}
		size /= 10
	}
	return 0, &Error{Input: fmt.Sprintf("%d", meters), Reason: "precision is not a power of ten between 1 m and 100 km"}
}

// SquareLetters returns the 100 km square identifier of a projected point.
func SquareLetters(zone int, p geo.ProjectedPoint) (string, error) {
	col := int(math.Floor(p.Easting / squareSize))
	if col < 1 || col > 8 {
		return "", &Error{Input: fmt.Sprintf("%g", p.Easting), Reason: "easting outside the 100 km column range"}
	}
	if p.Northing < 0 || math.IsNaN(p.Northing) {
		return "", &Error{Input: fmt.Sprintf("%g", p.Northing), Reason: "negative northing"}
	}

	row := int(math.Floor(math.Mod(p.Northing, 2000000) / squareSize))
	if zone%2 == 0 {
		row = (row + 5) % len(rowLetters)
	}

	return string([]byte{columnLetters[zone%3][col-1], rowLetters[row]}), nil
}

// Encode builds the reference of a projected point at the given precision.
// Zone and band are taken as given, so a point lying just outside the zone's
// nominal area keeps the caller's labelling.
func Encode(p geo.ProjectedPoint, zone int, band byte, precision int) (Reference, error) {
	if zone < 1 || zone > 60 {
		return Reference{}, &Error{Input: fmt.Sprintf("%d", zone), Reason: "zone out of range"}
	}
	if strings.IndexByte(BandLetters, band) < 0 {
		return Reference{}, &Error{Input: string(band), Reason: "unknown band"}
	}

	digits, err := DigitsForPrecision(precision)
	if err != nil {
		return Reference{}, err
	}

	square, err := SquareLetters(zone, p)
	if err != nil {
		return Reference{}, err
	}

	ref := Reference{Zone: zone, Band: band, Square: square, Digits: digits}
	if digits > 0 {
		ref.Easting = int(math.Floor(math.Mod(p.Easting, squareSize) / float64(precision)))
		ref.Northing = int(math.Floor(math.Mod(p.Northing, squareSize) / float64(precision)))
	}
	return ref, nil
}

// EncodePoint projects a geodetic point into zone and encodes it.
func EncodePoint(pr Projector, p geo.GeodeticPoint, zone int, band byte, precision int) (Reference, error) {
	pp, err := pr.ToProjected(p, zone, BandHemisphere(band))
	if err != nil {
		return Reference{}, &Error{Input: fmt.Sprintf("%g,%g", p.Lon, p.Lat), Reason: "projection failed", Err: err}
	}
	return Encode(pp, zone, band, precision)
}
