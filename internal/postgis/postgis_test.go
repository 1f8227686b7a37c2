package postgis

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

func TestQuerySQL(t *testing.T) {
	tests := []struct {
		name     string
		query    Query
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "geometry only",
			query:   Query{Table: "districts", GeometryColumn: "geom"},
			wantSQL: `SELECT ST_AsEWKB("geom") FROM "districts"`,
		},
		{
			name: "attributes and filter",
			query: Query{
				Table:           "districts",
				GeometryColumn:  "geom",
				FilterAttribute: "province",
				FilterValue:     "Overijssel",
				Attributes:      []string{"name", "code"},
			},
			wantSQL:  `SELECT "name", "code", ST_AsEWKB("geom") FROM "districts" WHERE "province" = $1`,
			wantArgs: []any{"Overijssel"},
		},
		{
			name:    "schema qualified table",
			query:   Query{Table: "public.districts", GeometryColumn: "wkb_geometry"},
			wantSQL: `SELECT ST_AsEWKB("wkb_geometry") FROM "public"."districts"`,
		},
		{
			name:    "quote escaping",
			query:   Query{Table: `we"ird`, GeometryColumn: "geom"},
			wantSQL: `SELECT ST_AsEWKB("geom") FROM "we""ird"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := tt.query.SQL()
			require.Equal(t, tt.wantSQL, sql)
			require.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestEWKBDecode(t *testing.T) {
	// SRID=4326;POINT(1 2) as produced by ST_AsEWKB.
	raw, err := hex.DecodeString("0101000020E6100000000000000000F03F0000000000000040")
	require.NoError(t, err)

	g, err := ewkb.Unmarshal(raw)
	require.NoError(t, err)

	pt, ok := g.(*geom.Point)
	require.True(t, ok)
	require.Equal(t, 1.0, pt.X())
	require.Equal(t, 2.0, pt.Y())
	require.Equal(t, 4326, g.SRID())
}
