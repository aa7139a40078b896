package geometry

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/ewkb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geojson"
)

var (
	// ErrEmpty is returned for nil or blank inputs.
	ErrEmpty = errors.New("geometry: empty value")
	// ErrUnconvertible is returned when a value cannot be read as any supported encoding.
	ErrUnconvertible = errors.New("geometry: unconvertible value")
)

// minHexLength is the shortest hex string treated as WKB. A 2D point is 42 hex chars.
const minHexLength = 20

// Normalize converts a spatial value coming out of the database driver into a GeoJSON geometry.
//
// Accepted inputs:
//   - GeoJSON geometries or features as map[string]any, json.RawMessage, JSON strings or JSON bytes
//   - hex-encoded WKB or EWKB strings (PostGIS default text output)
//   - raw WKB or EWKB bytes
//   - WKT or EWKT strings
//   - orb.Geometry and *geojson.Geometry values
func Normalize(v any) (*geojson.Geometry, error) {
	switch g := v.(type) {
	case nil:
		return nil, ErrEmpty
	case *geojson.Geometry:
		if g == nil {
			return nil, ErrEmpty
		}
		return checked(g)
	case geojson.Geometry:
		return checked(&g)
	case *geojson.Feature:
		if g == nil || g.Geometry == nil {
			return nil, ErrEmpty
		}
		return geojson.NewGeometry(g.Geometry), nil
	case orb.Geometry:
		return geojson.NewGeometry(g), nil
	case map[string]any:
		raw, err := json.Marshal(g)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnconvertible, err)
		}
		return fromJSON(raw)
	case json.RawMessage:
		return fromBytes(g)
	case string:
		return fromString(g)
	case []byte:
		return fromBytes(g)
	default:
		return nil, fmt.Errorf("%w: unsupported type %T", ErrUnconvertible, v)
	}
}

func fromString(s string) (*geojson.Geometry, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrEmpty
	}

	switch {
	case strings.HasPrefix(s, "{"):
		return fromJSON([]byte(s))
	case len(s) > minHexLength && isHex(s):
		raw, err := hex.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnconvertible, err)
		}
		return fromWKB(raw)
	default:
		return fromWKT(s)
	}
}

func fromBytes(b []byte) (*geojson.Geometry, error) {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 {
		return nil, ErrEmpty
	}

	// Drivers hand back text columns as []byte; only a leading byte-order mark means binary WKB.
	if trimmed[0] == 0x00 || trimmed[0] == 0x01 {
		return fromWKB(trimmed)
	}
	return fromString(string(trimmed))
}

func fromJSON(raw []byte) (*geojson.Geometry, error) {
	var probe struct {
		Type     string          `json:"type"`
		Geometry json.RawMessage `json:"geometry"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnconvertible, err)
	}

	if probe.Type == "Feature" {
		if len(probe.Geometry) == 0 || string(probe.Geometry) == "null" {
			return nil, ErrEmpty
		}
		raw = probe.Geometry
	}

	g, err := geojson.UnmarshalGeometry(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnconvertible, err)
	}
	return checked(g)
}

func fromWKB(raw []byte) (*geojson.Geometry, error) {
	g, _, err := ewkb.Unmarshal(raw)
	if err != nil {
		var werr error
		g, werr = wkb.Unmarshal(raw)
		if werr != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnconvertible, err)
		}
	}
	if g == nil {
		return nil, ErrEmpty
	}
	return geojson.NewGeometry(g), nil
}

func fromWKT(s string) (*geojson.Geometry, error) {
	if strings.HasPrefix(strings.ToUpper(s), "SRID=") {
		idx := strings.Index(s, ";")
		if idx < 0 {
			return nil, fmt.Errorf("%w: malformed EWKT", ErrUnconvertible)
		}
		s = s[idx+1:]
	}

	g, err := wkt.Unmarshal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnconvertible, err)
	}
	return geojson.NewGeometry(g), nil
}

func checked(g *geojson.Geometry) (*geojson.Geometry, error) {
	if len(g.Geometries) > 0 {
		return g, nil
	}
	if g.Coordinates == nil || isEmpty(g.Coordinates) {
		return nil, fmt.Errorf("%w: geometry %q has no coordinates", ErrUnconvertible, g.Type)
	}
	return g, nil
}

func isEmpty(g orb.Geometry) bool {
	switch c := g.(type) {
	case orb.MultiPoint:
		return len(c) == 0
	case orb.LineString:
		return len(c) == 0
	case orb.Ring:
		return len(c) == 0
	case orb.MultiLineString:
		return len(c) == 0
	case orb.Polygon:
		return len(c) == 0
	case orb.MultiPolygon:
		return len(c) == 0
	case orb.Collection:
		return len(c) == 0
	}
	return false
}

func isHex(s string) bool {
	if len(s)%2 != 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		isDigit := c >= '0' && c <= '9'
		isLower := c >= 'a' && c <= 'f'
		isUpper := c >= 'A' && c <= 'F'
		if !isDigit && !isLower && !isUpper {
			return false
		}
	}
	return true
}
