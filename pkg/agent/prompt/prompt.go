// Package prompt holds the prompt fragments shared by the SQL-writing stages.
package prompt

import (
	"strings"

	"solar-parcel-be/pkg/store"
)

// RequiredColumns must appear in every generated select list. Downstream display depends on them.
var RequiredColumns = []string{
	"geometry",
	"full_address",
	"county_name",
	"area_acres",
	"municipality_name",
	"owner_name",
	"total_value",
	"ground_mounted_capacity_kw",
}

// WriteSchema writes the rendered schema in a tagged block.
func WriteSchema(b *strings.Builder, schema string) {
	b.WriteString("<database_schema>\n")
	b.WriteString(schema)
	b.WriteString("\n</database_schema>\n\n")
}

// WriteSQLRules writes the rules every generated or repaired query must follow.
func WriteSQLRules(b *strings.Builder) {
	b.WriteString("<sql_rules>\n")
	b.WriteString("1. The database is PostgreSQL with PostGIS. Return exactly one SELECT statement.\n")
	b.WriteString("2. Always select these columns from parcels.parcel_details (alias p if you join): ")
	b.WriteString(strings.Join(RequiredColumns, ", "))
	b.WriteString(".\n")
	b.WriteString("3. Use the geometry_26986 columns (meters, Massachusetts State Plane) for every distance, buffer or area computation. Never measure with the 4326 geometry column.\n")
	b.WriteString("4. Convert user units to meters before comparing: 1 mile = 1609.34 m, 1 km = 1000 m, 1 foot = 0.3048 m.\n")
	b.WriteString("5. Prefer ST_DWithin on geometry_26986 for \"within X of\" conditions.\n")
	b.WriteString("6. Combine conditions with AND unless the user clearly asks for alternatives.\n")
	b.WriteString("7. A bare numeric threshold (\"over 20 acres\", \"50 kW capacity\") means greater than or equal (>=).\n")
	b.WriteString("8. Map user words to the closest categorical value using the column comments. County names are stored in uppercase, e.g. 'FRANKLIN'.\n")
	b.WriteString("9. Never return the same parcel twice. Use SELECT DISTINCT ON (p.parcel_id) when joins can multiply rows.\n")
	b.WriteString("10. Do not modify data. No INSERT, UPDATE, DELETE, DDL or SELECT INTO.\n")
	b.WriteString("</sql_rules>\n\n")
}

// WriteOutputFormat asks for the SQL and explanation in labelled sections.
func WriteOutputFormat(b *strings.Builder) {
	b.WriteString("<output_format>\n")
	b.WriteString("SQL:\n<the query, no markdown fences>\n")
	b.WriteString("Explanation:\n<one or two sentences for the user describing what the query finds>\n")
	b.WriteString("</output_format>\n")
}

// WriteConversation renders turns oldest first.
func WriteConversation(b *strings.Builder, turns []store.Turn) {
	b.WriteString("<conversation>\n")
	if len(turns) == 0 {
		b.WriteString("(no previous messages)\n")
	}
	for _, t := range turns {
		b.WriteString(string(t.Role))
		b.WriteString(": ")
		b.WriteString(t.Content)
		b.WriteString("\n")
	}
	b.WriteString("</conversation>\n\n")
}

// WriteTagged writes content inside <tag></tag>.
func WriteTagged(b *strings.Builder, tag, content string) {
	b.WriteString("<" + tag + ">\n")
	b.WriteString(content)
	b.WriteString("\n</" + tag + ">\n\n")
}
