package sqlexec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    string
		wantErr bool
	}{
		{name: "plain select", query: "SELECT * FROM parcels.parcel_details", want: "SELECT * FROM parcels.parcel_details"},
		{name: "trailing semicolons", query: "  select 1;; ", want: "select 1"},
		{name: "cte", query: "WITH s AS (SELECT 1) SELECT * FROM s", want: "WITH s AS (SELECT 1) SELECT * FROM s"},
		{name: "keyword inside literal", query: "SELECT * FROM t WHERE owner_name = 'DROP; DELETE CO'", want: "SELECT * FROM t WHERE owner_name = 'DROP; DELETE CO'"},
		{name: "escaped quote", query: "SELECT * FROM t WHERE a = 'it''s; fine'", want: "SELECT * FROM t WHERE a = 'it''s; fine'"},
		{name: "keyword in comment", query: "SELECT 1 -- update later\n", want: "SELECT 1 -- update later"},
		{name: "dollar quoted", query: "SELECT $x$ drop table $x$ AS note", want: "SELECT $x$ drop table $x$ AS note"},
		{name: "column containing keyword", query: "SELECT updated_at FROM t", want: "SELECT updated_at FROM t"},
		{name: "empty", query: " ; ", wantErr: true},
		{name: "delete", query: "DELETE FROM parcels.parcel_details", wantErr: true},
		{name: "stacked statements", query: "SELECT 1; DROP TABLE x", wantErr: true},
		{name: "data modifying cte", query: "WITH d AS (DELETE FROM t RETURNING *) SELECT * FROM d", wantErr: true},
		{name: "select into", query: "SELECT * INTO copy FROM t", wantErr: true},
		{name: "admin function", query: "SELECT pg_terminate_backend(42)", wantErr: true},
		{name: "block comment hides nothing", query: "/* x */ UPDATE t SET a = 1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Guard(tt.query)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrStatementNotAllowed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
