// Package postgis fetches feature collections from a PostGIS database.
package postgis

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/woozymasta/zonemap/internal/config"
	"github.com/woozymasta/zonemap/internal/feature"
)

// Connect opens a single database connection. The caller is responsible for
// closing it; no pooling or retries happen here.
func Connect(ctx context.Context, creds *config.Credentials) (*pgx.Conn, error) {
	connString := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		creds.Host, creds.Port, creds.User, creds.Password, creds.Database, creds.SSLMode)

	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect to %s:%d/%s: %w", creds.Host, creds.Port, creds.Database, err)
	}
	return conn, nil
}

// Query describes one filtered fetch from a geometry table.
type Query struct {
	Table           string
	GeometryColumn  string
	FilterAttribute string
	FilterValue     string
	Attributes      []string
}

// SQL builds the parameterized statement and its arguments. The geometry is
// always selected last as EWKB.
func (q Query) SQL() (string, []any) {
	cols := make([]string, 0, len(q.Attributes)+1)
	for _, a := range q.Attributes {
		cols = append(cols, quoteIdent(a))
	}
	cols = append(cols, fmt.Sprintf("ST_AsEWKB(%s)", quoteIdent(q.GeometryColumn)))

	sql := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), quoteTable(q.Table))

	var args []any
	if q.FilterAttribute != "" {
		sql += fmt.Sprintf(" WHERE %s = $1", quoteIdent(q.FilterAttribute))
		args = append(args, q.FilterValue)
	}

	return sql, args
}

// FetchFeatures runs the query and decodes rows into a feature collection.
// The active geometry column is normalized to feature.DefaultGeometryColumn
// and the collection CRS is read from the EWKB SRID of the first geometry.
// Rows with NULL geometry are skipped with a warning.
func FetchFeatures(ctx context.Context, conn *pgx.Conn, q Query) (*feature.Collection, error) {
	if q.GeometryColumn == "" {
		q.GeometryColumn = "geom"
	}

	sql, args := q.SQL()
	log.Debug().Str("sql", sql).Str("table", q.Table).Msg("Fetching features")

	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Table, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	geomIdx := len(fields) - 1

	col := feature.NewCollection(0)
	rowNum := 0

	for rows.Next() {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		rowNum++

		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}

		raw, ok := vals[geomIdx].([]byte)
		if !ok || len(raw) == 0 {
			log.Warn().Int("row", rowNum).Msg("Skipping row with NULL geometry")
			continue
		}

		g, err := ewkb.Unmarshal(raw)
		if err != nil {
			return nil, fmt.Errorf("row %d: decode geometry: %w", rowNum, err)
		}

		if col.EPSG == 0 {
			col.EPSG = g.SRID()
			if col.EPSG == 0 {
				col.EPSG = 4326
			}
		}

		props := make(map[string]any, geomIdx)
		for i := 0; i < geomIdx; i++ {
			props[fields[i].Name] = vals[i]
		}

		col.Append(g, props)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}

	if col.EPSG == 0 {
		col.EPSG = 4326
	}

	log.Info().
		Str("table", q.Table).
		Int("features", col.Len()).
		Int("epsg", col.EPSG).
		Msg("Features fetched")

	return col, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// quoteTable quotes a possibly schema-qualified table name.
func quoteTable(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = quoteIdent(p)
	}
	return strings.Join(parts, ".")
}
