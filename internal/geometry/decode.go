// Package geometry turns a GeoJSON polygon into a coordinate literal that can
// be embedded in a spatial SQL predicate.
//
// Geometry constructors such as GeomFromText are not parameterizable on every
// backend, so the rendered literal is built from parsed floats and then checked
// against a whole-string character class before anyone may embed it.
package geometry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ErrDecode is returned for malformed or unsupported geometry values.
var ErrDecode = errors.New("geometry decode failure")

var safeCoordinates = regexp.MustCompile(`^[-.,0-9 ]+$`)

// Literal is a validated polygon outer ring.
type Literal struct {
	// Coordinates is "lon lat,lon lat,...".
	Coordinates string
	Ring        orb.Ring
	Bound       orb.Bound
}

// WKT renders the ring as POLYGON((...)).
func (l Literal) WKT() string {
	return "POLYGON((" + l.Coordinates + "))"
}

// EnvelopeWKT renders the bounding box of the ring as a closed polygon.
func (l Literal) EnvelopeWKT() string {
	b := l.Bound
	ring := orb.Ring{
		{b.Min.X(), b.Min.Y()},
		{b.Max.X(), b.Min.Y()},
		{b.Max.X(), b.Max.Y()},
		{b.Min.X(), b.Max.Y()},
		{b.Min.X(), b.Min.Y()},
	}
	return "POLYGON((" + RenderRing(ring) + "))"
}

// Decode accepts a GeoJSON Feature, a FeatureCollection (first feature), a
// bare geometry object, the legacy {"geometry": {...}} wrapper, or a bare outer
// ring array. Only Polygon is supported.
func Decode(raw string) (Literal, error) {
	data := bytes.TrimSpace([]byte(raw))
	if len(data) == 0 {
		return Literal{}, fmt.Errorf("%w: empty value", ErrDecode)
	}

	g, err := decodeGeometry(data)
	if err != nil {
		return Literal{}, err
	}

	poly, ok := g.(orb.Polygon)
	if !ok {
		if g == nil {
			return Literal{}, fmt.Errorf("%w: missing geometry", ErrDecode)
		}
		return Literal{}, fmt.Errorf("%w: unsupported geometry type %s", ErrDecode, g.GeoJSONType())
	}
	if len(poly) == 0 {
		return Literal{}, fmt.Errorf("%w: polygon has no rings", ErrDecode)
	}
	return FromRing(poly[0])
}

// FromRing renders and validates an outer ring.
func FromRing(ring orb.Ring) (Literal, error) {
	if len(ring) == 0 {
		return Literal{}, fmt.Errorf("%w: empty outer ring", ErrDecode)
	}
	coords := RenderRing(ring)
	if !ValidCoordinates(coords) {
		return Literal{}, fmt.Errorf("%w: coordinates contain disallowed characters", ErrDecode)
	}
	return Literal{
		Coordinates: coords,
		Ring:        ring,
		Bound:       ring.Bound(),
	}, nil
}

// ValidCoordinates reports whether s consists only of [-.,0-9 ].
func ValidCoordinates(s string) bool {
	return safeCoordinates.MatchString(s)
}

// RenderRing formats a ring as "lon lat,lon lat,...".
func RenderRing(ring orb.Ring) string {
	parts := make([]string, len(ring))
	for i, p := range ring {
		parts[i] = formatFloat(p.X()) + " " + formatFloat(p.Y())
	}
	return strings.Join(parts, ",")
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

type envelope struct {
	Type     string          `json:"type"`
	Geometry json.RawMessage `json:"geometry"`
}

func decodeGeometry(data []byte) (orb.Geometry, error) {
	if data[0] == '[' {
		var ring orb.Ring
		if err := json.Unmarshal(data, &ring); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		return orb.Polygon{ring}, nil
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	switch env.Type {
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		return f.Geometry, nil
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		if len(fc.Features) == 0 {
			return nil, fmt.Errorf("%w: feature collection is empty", ErrDecode)
		}
		return fc.Features[0].Geometry, nil
	case "":
		if len(env.Geometry) == 0 {
			return nil, fmt.Errorf("%w: no type and no geometry member", ErrDecode)
		}
		return decodeBareGeometry(env.Geometry)
	default:
		return decodeBareGeometry(data)
	}
}

func decodeBareGeometry(data []byte) (orb.Geometry, error) {
	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return g.Geometry(), nil
}
