package mgrs

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/woozymasta/mgrsgrid/internal/geo"
)

// Reference is a decomposed grid reference.
type Reference struct {
	Square   string // empty for a zone-level reference
	Zone     int
	Easting  int
	Northing int
	Digits   int
	// Part numbers the pieces of a clipped cell; 0 and 1 both mean the first.
	Part int
	Band byte
}

// String formats the reference without a part suffix, zero-padding the zone.
func (r Reference) String() string {
	if r.Square == "" {
		return ZoneID(r.Zone, r.Band)
	}
	if r.Digits == 0 {
		return fmt.Sprintf("%02d%c%s", r.Zone, r.Band, r.Square)
	}
	return fmt.Sprintf("%02d%c%s%0*d%0*d", r.Zone, r.Band, r.Square, r.Digits, r.Easting, r.Digits, r.Northing)
}

// ID formats the reference with its part suffix. The first piece has none.
func (r Reference) ID() string {
	return PartID(r.String(), r.Part)
}

// ZoneID returns the zone key the reference belongs to, for example "05Q".
func (r Reference) ZoneID() string {
	return ZoneID(r.Zone, r.Band)
}

// Hemisphere is derived from the band letter.
func (r Reference) Hemisphere() geo.Hemisphere {
	return BandHemisphere(r.Band)
}

// Precision returns the cell size in meters, or 0 for a zone-level reference.
func (r Reference) Precision() int {
	if r.Square == "" {
		return geo.PrecisionZone
	}
	p := squareSize
	for i := 0; i < r.Digits; i++ {
		p /= 10
	}
	return p
}

// PartID appends the part suffix to a reference string when part > 1.
func PartID(ref string, part int) string {
	if part <= 1 {
		return ref
	}
	return ref + "-" + strconv.Itoa(part)
}

// Parse decomposes a reference such as "5Q", "05QKB", "05QKB3172" or
// "05QKB-2". Whitespace is ignored and letters are case-insensitive.
func Parse(s string) (Reference, error) {
	fail := func(reason string) (Reference, error) {
		return Reference{}, &Error{Input: s, Reason: reason}
	}

	in := strings.ToUpper(strings.Join(strings.Fields(s), ""))

	var ref Reference
	if i := strings.LastIndexByte(in, '-'); i >= 0 {
		part, err := strconv.Atoi(in[i+1:])
		if err != nil || part < 2 {
			return fail("invalid part suffix")
		}
		ref.Part = part
		in = in[:i]
	}

	n := 0
	for n < len(in) && n < 2 && in[n] >= '0' && in[n] <= '9' {
		n++
	}
	if n == 0 {
		return fail("missing zone number")
	}
	zone, _ := strconv.Atoi(in[:n])
	if zone < 1 || zone > 60 {
		return fail("zone out of range")
	}
	ref.Zone = zone
	in = in[n:]

	if len(in) == 0 || strings.IndexByte(BandLetters, in[0]) < 0 {
		return fail("missing or unknown band letter")
	}
	ref.Band = in[0]
	in = in[1:]

	if len(in) == 0 {
		return ref, nil
	}

	if len(in) < 2 {
		return fail("incomplete 100 km square identifier")
	}
	if strings.IndexByte(columnLetters[zone%3], in[0]) < 0 {
		return fail("column letter not used in this zone")
	}
	if strings.IndexByte(rowLetters, in[1]) < 0 {
		return fail("unknown row letter")
	}
	ref.Square = in[:2]
	in = in[2:]

	if len(in)%2 != 0 || len(in) > 2*maxDigits {
		return fail("easting and northing must have the same number of digits")
	}
	for i := 0; i < len(in); i++ {
		if in[i] < '0' || in[i] > '9' {
			return fail("non-digit in numeric location")
		}
	}
	ref.Digits = len(in) / 2
	if ref.Digits > 0 {
		ref.Easting, _ = strconv.Atoi(in[:ref.Digits])
		ref.Northing, _ = strconv.Atoi(in[ref.Digits:])
	}

	return ref, nil
}
