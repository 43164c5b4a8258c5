package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// SRIDWGS84 is the spatial reference used for every stored site location.
const SRIDWGS84 = 4326

// GeoPoint is a WGS84 lon/lat point. It scans EWKB from PostGIS and renders as GeoJSON.
type GeoPoint struct {
	ewkb.Point
}

// NewGeoPoint builds a point from longitude and latitude.
func NewGeoPoint(longitude, latitude float64) GeoPoint {
	p := geom.NewPointFlat(geom.XY, []float64{longitude, latitude}).SetSRID(SRIDWGS84)
	return GeoPoint{Point: ewkb.Point{Point: p}}
}

// Longitude returns the X coordinate.
func (p GeoPoint) Longitude() float64 {
	if p.Point.Point == nil {
		return 0
	}
	return p.Point.X()
}

// Latitude returns the Y coordinate.
func (p GeoPoint) Latitude() float64 {
	if p.Point.Point == nil {
		return 0
	}
	return p.Point.Y()
}

// Valid reports whether the point is set and lies within WGS84 bounds.
func (p GeoPoint) Valid() bool {
	if p.Point.Point == nil {
		return false
	}
	lon, lat := p.Longitude(), p.Latitude()
	return lon >= -180 && lon <= 180 && lat >= -90 && lat <= 90
}

// Value encodes the point as EWKB for ST_GeomFromEWKB.
func (p GeoPoint) Value() (driver.Value, error) {
	if p.Point.Point == nil {
		return nil, nil
	}
	return p.Point.Value()
}

// MarshalJSON renders a GeoJSON Point.
func (p GeoPoint) MarshalJSON() ([]byte, error) {
	if p.Point.Point == nil {
		return []byte("null"), nil
	}
	return geojson.Marshal(p.Point.Point)
}

// UnmarshalJSON accepts a GeoJSON Point.
func (p *GeoPoint) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		p.Point.Point = nil
		return nil
	}
	var g geom.T
	if err := geojson.Unmarshal(data, &g); err != nil {
		return err
	}
	point, ok := g.(*geom.Point)
	if !ok {
		return fmt.Errorf("expected GeoJSON Point, got %T", g)
	}
	*p = NewGeoPoint(point.X(), point.Y())
	return nil
}

// Coordinates is the request shape for a location.
type Coordinates struct {
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
}

// Point converts request coordinates into a stored point.
func (c Coordinates) Point() GeoPoint {
	var lon, lat float64
	if c.Longitude != nil {
		lon = *c.Longitude
	}
	if c.Latitude != nil {
		lat = *c.Latitude
	}
	return NewGeoPoint(lon, lat)
}

var _ json.Marshaler = GeoPoint{}
