package mgrs

import (
	"errors"
	"strings"
	"testing"

	"github.com/woozymasta/mgrsgrid/internal/geo"
	"github.com/woozymasta/mgrsgrid/internal/projection"
)

func TestLatitudeBand(t *testing.T) {
	cases := map[float64]byte{
		-80:  'C',
		-72:  'D',
		-0.1: 'M',
		0:    'N',
		20:   'Q',
		56:   'V',
		71.9: 'W',
		72:   'X',
		84:   'X',
	}
	for lat, want := range cases {
		got, err := LatitudeBand(lat)
		if err != nil || got != want {
			t.Errorf("LatitudeBand(%v)=%c,%v want %c", lat, got, err, want)
		}
	}
	for _, lat := range []float64{-80.1, 84.1} {
		if _, err := LatitudeBand(lat); err == nil {
			t.Errorf("LatitudeBand(%v) accepted", lat)
		}
	}
}

func TestBandRange(t *testing.T) {
	s, n, err := BandRange('Q')
	if err != nil || s != 16 || n != 24 {
		t.Fatalf("Q=%v..%v err=%v", s, n, err)
	}
	s, n, err = BandRange('X')
	if err != nil || s != 72 || n != 84 {
		t.Fatalf("X=%v..%v err=%v", s, n, err)
	}
	if _, _, err := BandRange('I'); err == nil {
		t.Fatalf("band I accepted")
	}
	if BandHemisphere('M') != geo.South || BandHemisphere('N') != geo.North {
		t.Fatalf("hemisphere split wrong")
	}
}

func TestDigitsForPrecision(t *testing.T) {
	want := map[int]int{100000: 0, 10000: 1, 1000: 2, 100: 3, 10: 4, 1: 5}
	for p, d := range want {
		got, err := DigitsForPrecision(p)
		if err != nil || got != d {
			t.Errorf("DigitsForPrecision(%d)=%d,%v", p, got, err)
		}
	}
	if _, err := DigitsForPrecision(5000); err == nil {
		t.Fatalf("5000 accepted")
	}
}

func TestEncode(t *testing.T) {
	tests := []struct {
		p         geo.ProjectedPoint
		zone      int
		band      byte
		precision int
		want      string
	}{
		{geo.ProjectedPoint{Easting: 250000, Northing: 2150000}, 5, 'Q', 100000, "05QKB"},
		{geo.ProjectedPoint{Easting: 237512, Northing: 2172000}, 5, 'Q', 10000, "05QKB37"},
		{geo.ProjectedPoint{Easting: 597123, Northing: 6643456}, 32, 'V', 100000, "32VNM"},
		{geo.ProjectedPoint{Easting: 597123, Northing: 6643456}, 32, 'V', 1000, "32VNM9743"},
		{geo.ProjectedPoint{Easting: 618000, Northing: 2356000}, 4, 'Q', 100000, "04QFJ"},
	}
	for _, tt := range tests {
		ref, err := Encode(tt.p, tt.zone, tt.band, tt.precision)
		if err != nil {
			t.Fatalf("Encode(%v): %v", tt.p, err)
		}
		if ref.String() != tt.want {
			t.Errorf("Encode(%v)=%s want %s", tt.p, ref, tt.want)
		}
		if ref.Precision() != tt.precision {
			t.Errorf("%s precision=%d", ref, ref.Precision())
		}
	}
}

func TestEncodeErrors(t *testing.T) {
	var me *Error
	if _, err := Encode(geo.ProjectedPoint{Easting: 50000, Northing: 1}, 5, 'Q', 100000); !errors.As(err, &me) {
		t.Errorf("column 0: %v", err)
	}
	if _, err := Encode(geo.ProjectedPoint{Easting: 950000, Northing: 1}, 5, 'Q', 100000); !errors.As(err, &me) {
		t.Errorf("column 9: %v", err)
	}
	if _, err := Encode(geo.ProjectedPoint{Easting: 500000, Northing: 1}, 0, 'Q', 100000); err == nil {
		t.Errorf("zone 0 accepted")
	}
	if _, err := Encode(geo.ProjectedPoint{Easting: 500000, Northing: 1}, 5, 'O', 100000); err == nil {
		t.Errorf("band O accepted")
	}
}

func TestEncodePoint(t *testing.T) {
	svc, err := projection.NewService()
	if err != nil {
		t.Fatal(err)
	}

	// Oslo and Honolulu sit in well-known 100 km squares.
	oslo, err := EncodePoint(svc, geo.GeodeticPoint{Lon: 10.75, Lat: 59.91}, 32, 'V', 1000)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(oslo.String(), "32VNM") || len(oslo.String()) != 9 {
		t.Fatalf("oslo=%s", oslo)
	}

	honolulu, err := EncodePoint(svc, geo.GeodeticPoint{Lon: -157.86, Lat: 21.31}, 4, 'Q', 100000)
	if err != nil {
		t.Fatal(err)
	}
	if honolulu.String() != "04QFJ" {
		t.Fatalf("honolulu=%s", honolulu)
	}

	if _, err := EncodePoint(svc, geo.GeodeticPoint{Lon: 0, Lat: 89.9}, 31, 'X', 100000); err == nil {
		t.Fatalf("polar point encoded")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Reference
		str  string
	}{
		{"5Q", Reference{Zone: 5, Band: 'Q'}, "05Q"},
		{"05qkb", Reference{Zone: 5, Band: 'Q', Square: "KB"}, "05QKB"},
		{"05QKB37", Reference{Zone: 5, Band: 'Q', Square: "KB", Digits: 1, Easting: 3, Northing: 7}, "05QKB37"},
		{"32V NM 97 43", Reference{Zone: 32, Band: 'V', Square: "NM", Digits: 2, Easting: 97, Northing: 43}, "32VNM9743"},
		{"05QKB-2", Reference{Zone: 5, Band: 'Q', Square: "KB", Part: 2}, "05QKB"},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("Parse(%q)=%+v want %+v", tt.in, got, tt.want)
		}
		if got.String() != tt.str {
			t.Errorf("Parse(%q).String()=%s", tt.in, got)
		}
	}

	ref, _ := Parse("05QKB-2")
	if ref.ID() != "05QKB-2" || ref.ZoneID() != "05Q" || ref.Hemisphere() != geo.North {
		t.Fatalf("ref=%+v id=%s", ref, ref.ID())
	}
}

func TestParseErrors(t *testing.T) {
	for _, in := range []string{
		"", "Q", "61Q", "00Q", "05I", "05QK", "05QAB", "05QKZ", "05QKB1", "05QKB1A", "05QKB-1", "05QKB-x", "123Q",
	} {
		if _, err := Parse(in); err == nil {
			t.Errorf("Parse(%q) succeeded", in)
		}
	}
}

func TestEncodeParseAgree(t *testing.T) {
	p := geo.ProjectedPoint{Easting: 431250, Northing: 5987650}
	for _, precision := range []int{100000, 10000, 1000, 100, 10, 1} {
		ref, err := Encode(p, 33, 'U', precision)
		if err != nil {
			t.Fatal(err)
		}
		back, err := Parse(ref.String())
		if err != nil {
			t.Fatalf("Parse(%s): %v", ref, err)
		}
		if back != ref {
			t.Fatalf("precision %d: %+v != %+v", precision, back, ref)
		}
	}
}
