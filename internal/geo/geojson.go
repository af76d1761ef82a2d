package geo

import (
	"encoding/json"
	"fmt"

	geojson "github.com/paulmach/go.geojson"
	"gopkg.in/yaml.v3"
)

// Feature property keys.
const (
	PropID        = "id"
	PropRef       = "ref"
	PropParent    = "parent"
	PropPrecision = "precision"
	PropCenter    = "center"
	PropLevel     = "level"
)

// Feature converts the polygon into a GeoJSON polygon feature.
func (p GridPolygon) Feature() *geojson.Feature {
	f := geojson.NewPolygonFeature([][][]float64{p.Ring.Coords()})
	f.ID = p.ID
	f.SetProperty(PropID, p.ID)
	f.SetProperty(PropRef, p.Reference)
	f.SetProperty(PropPrecision, p.Precision)
	f.SetProperty(PropCenter, []float64{p.Center.Lon, p.Center.Lat})
	if p.ParentID != "" {
		f.SetProperty(PropParent, p.ParentID)
	}
	return f
}

// NewFeatureCollection collects polygons into one GeoJSON collection.
func NewFeatureCollection(groups ...[]GridPolygon) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, g := range groups {
		for _, p := range g {
			fc.AddFeature(p.Feature())
		}
	}
	return fc
}

// PolygonFromFeature restores a GridPolygon written by Feature.
func PolygonFromFeature(f *geojson.Feature) (GridPolygon, error) {
	if f.Geometry == nil || !f.Geometry.IsPolygon() || len(f.Geometry.Polygon) == 0 {
		return GridPolygon{}, fmt.Errorf("feature %v: not a polygon", f.ID)
	}

	id, _ := f.Properties[PropID].(string)
	if id == "" {
		id, _ = f.ID.(string)
	}
	if id == "" {
		return GridPolygon{}, fmt.Errorf("feature without id")
	}

	ref, _ := f.Properties[PropRef].(string)
	if ref == "" {
		ref = id
	}
	parent, _ := f.Properties[PropParent].(string)

	var precision int
	switch v := f.Properties[PropPrecision].(type) {
	case float64:
		precision = int(v)
	case int:
		precision = v
	}

	ring := RingFromCoords(f.Geometry.Polygon[0])
	center := GeodeticPoint{}
	switch c := f.Properties[PropCenter].(type) {
	case []float64:
		if len(c) == 2 {
			center = GeodeticPoint{Lon: c[0], Lat: c[1]}
		}
	case []interface{}:
		if len(c) == 2 {
			lon, _ := c[0].(float64)
			lat, _ := c[1].(float64)
			center = GeodeticPoint{Lon: lon, Lat: lat}
		}
	}

	return NewGridPolygon(id, ref, parent, precision, center, ring), nil
}

// Marshal encodes a feature collection as indented JSON or as YAML.
func Marshal(fc *geojson.FeatureCollection, format string) ([]byte, error) {
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return nil, err
	}

	switch format {
	case "", "json":
		return data, nil
	case "yaml":
		var doc interface{}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		return yaml.Marshal(doc)
	}

	return nil, fmt.Errorf("unknown format %q", format)
}
