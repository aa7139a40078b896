package geometry

import (
	"encoding/hex"
	"encoding/json"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	polygonWKB  = "010300000001000000050000000000000000E051C000000000002045400000000000D051C000000000002045400000000000D051C000000000004045400000000000E051C000000000004045400000000000E051C00000000000204540"
	polygonEWKB = "0103000020E610000001000000050000000000000000E051C000000000002045400000000000D051C000000000002045400000000000D051C000000000004045400000000000E051C000000000004045400000000000E051C00000000000204540"
	pointWKB    = "010100000000000000002052C00000000000004540"
)

var expectedRing = orb.Ring{
	{-71.5, 42.25},
	{-71.25, 42.25},
	{-71.25, 42.5},
	{-71.5, 42.5},
	{-71.5, 42.25},
}

func TestNormalize_HexWKBPolygon(t *testing.T) {
	for name, input := range map[string]string{
		"wkb":       polygonWKB,
		"ewkb":      polygonEWKB,
		"lowercase": strings.ToLower(polygonWKB),
	} {
		t.Run(name, func(t *testing.T) {
			g, err := Normalize(input)
			require.NoError(t, err)
			assert.Equal(t, "Polygon", g.Type)

			poly, ok := g.Coordinates.(orb.Polygon)
			require.True(t, ok)
			require.Len(t, poly, 1)
			assert.Equal(t, expectedRing, poly[0])
		})
	}
}

func TestNormalize_RawWKBBytes(t *testing.T) {
	raw, err := hex.DecodeString(pointWKB)
	require.NoError(t, err)

	g, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, orb.Point{-72.5, 42.0}, g.Coordinates)
}

func TestNormalize_IsIdempotent(t *testing.T) {
	canonical := map[string]any{
		"type": "Polygon",
		"coordinates": []any{
			[]any{
				[]any{-71.5, 42.25},
				[]any{-71.25, 42.25},
				[]any{-71.25, 42.5},
				[]any{-71.5, 42.25},
			},
		},
	}
	want, err := json.Marshal(canonical)
	require.NoError(t, err)

	first, err := Normalize(canonical)
	require.NoError(t, err)
	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(firstJSON))

	second, err := Normalize(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(firstJSON), string(secondJSON))

	fromString, err := Normalize(string(firstJSON))
	require.NoError(t, err)
	assert.Equal(t, first.Coordinates, fromString.Coordinates)
}

func TestNormalize_OtherEncodings(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		wantType string
	}{
		{"geojson feature", `{"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[1,2]}}`, "Point"},
		{"json bytes", []byte(`{"type":"LineString","coordinates":[[0,0],[1,1]]}`), "LineString"},
		{"raw message", json.RawMessage(`{"type":"Point","coordinates":[3,4]}`), "Point"},
		{"hex as bytes", []byte(pointWKB), "Point"},
		{"wkt", "POINT(1 2)", "Point"},
		{"ewkt", "SRID=4326;POLYGON((0 0,1 0,1 1,0 0))", "Polygon"},
		{"orb geometry", orb.MultiPoint{{0, 0}, {1, 1}}, "MultiPoint"},
		{"geojson value", *geojson.NewGeometry(orb.Point{5, 6}), "Point"},
		{"collection", `{"type":"GeometryCollection","geometries":[{"type":"Point","coordinates":[1,2]}]}`, "GeometryCollection"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := Normalize(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, g.Type)
		})
	}
}

func TestNormalize_Failures(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  error
	}{
		{"nil", nil, ErrEmpty},
		{"blank", "   ", ErrEmpty},
		{"empty bytes", []byte{}, ErrEmpty},
		{"null feature geometry", `{"type":"Feature","geometry":null}`, ErrEmpty},
		{"garbage string", "not a geometry", ErrUnconvertible},
		{"truncated wkb", polygonWKB[:40], ErrUnconvertible},
		{"json without coordinates", `{"type":"Polygon"}`, ErrUnconvertible},
		{"number", 42, ErrUnconvertible},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.input)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
