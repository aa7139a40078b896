package sqltext

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	const query = "SELECT * FROM parcels.parcel_details WHERE area_acres >= 20;"

	tests := []struct {
		name        string
		raw         string
		wantSQL     string
		wantExplain string
	}{
		{
			name:        "labels sql first",
			raw:         "SQL: " + query + "\nExplanation: Parcels of at least 20 acres.",
			wantSQL:     query,
			wantExplain: "Parcels of at least 20 acres.",
		},
		{
			name:        "labels explanation first",
			raw:         "Explanation: Large parcels.\n\nSQL:\n" + query,
			wantSQL:     query,
			wantExplain: "Large parcels.",
		},
		{
			name:        "fenced with labels",
			raw:         "SQL:\n```sql\n" + query + "\n```\nExplanation: Filters by acreage.",
			wantSQL:     query,
			wantExplain: "Filters by acreage.",
		},
		{
			name:        "fence after prose",
			raw:         "Here is the query you asked for.\n```\n" + query + "\n```",
			wantSQL:     query,
			wantExplain: "Here is the query you asked for.",
		},
		{
			name:    "bare sql",
			raw:     "  " + query + "  ",
			wantSQL: query,
		},
		{
			name:        "prose before bare sql",
			raw:         "Sure, this should work:\nSELECT 1;",
			wantSQL:     "SELECT 1;",
			wantExplain: "Sure, this should work:",
		},
		{
			name:        "prose after semicolon",
			raw:         "SQL: SELECT 'a;b' AS x; This returns one row.",
			wantSQL:     "SELECT 'a;b' AS x;",
			wantExplain: "This returns one row.",
		},
		{
			name:        "bold labels",
			raw:         "**SQL:** SELECT 1\n**Explanation:** one",
			wantSQL:     "SELECT 1",
			wantExplain: "one",
		},
		{
			name:        "explanation label only",
			raw:         "SELECT 2\nExplanation: two",
			wantSQL:     "SELECT 2",
			wantExplain: "two",
		},
		{
			name:        "explanation label before unlabelled sql",
			raw:         "Explanation: Parcels of at least 20 acres in Franklin county.\n\n" + query,
			wantSQL:     query,
			wantExplain: "Parcels of at least 20 acres in Franklin county.",
		},
		{
			name:        "explanation label without sql",
			raw:         "Explanation: nothing to run here.",
			wantSQL:     "",
			wantExplain: "nothing to run here.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, explanation := Extract(tt.raw)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantExplain, explanation)
		})
	}
}
