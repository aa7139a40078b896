package schema

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"solar-parcel-be/internal/pkg/logger"

	"gorm.io/gorm"
)

// DefaultSchemas are the schemas exposed to SQL generation.
var DefaultSchemas = []string{"parcels", "geographic_features", "infrastructure_features"}

// Column is one catalog row.
type Column struct {
	TableSchema string  `gorm:"column:table_schema"`
	TableName   string  `gorm:"column:table_name"`
	ColumnName  string  `gorm:"column:column_name"`
	DataType    string  `gorm:"column:data_type"`
	NotNull     bool    `gorm:"column:not_null"`
	Comment     *string `gorm:"column:comment"`
}

// Provider supplies the rendered schema description.
type Provider interface {
	Describe(ctx context.Context) (string, error)
}

// catalogQuery uses format_type so PostGIS columns render as geometry(MultiPolygon,26986)
// instead of USER-DEFINED.
const catalogQuery = `
SELECT n.nspname AS table_schema,
       c.relname AS table_name,
       a.attname AS column_name,
       format_type(a.atttypid, a.atttypmod) AS data_type,
       a.attnotnull AS not_null,
       col_description(c.oid, a.attnum) AS comment
FROM pg_catalog.pg_attribute a
JOIN pg_catalog.pg_class c ON c.oid = a.attrelid
JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
WHERE n.nspname IN ?
  AND c.relkind IN ('r', 'p', 'v', 'm')
  AND a.attnum > 0
  AND NOT a.attisdropped
ORDER BY n.nspname, c.relname, a.attnum`

// Introspector reads the catalog once and keeps the rendered text for the life of the process.
type Introspector struct {
	db      *gorm.DB
	logger  logger.ILogger
	schemas []string

	mu       sync.Mutex
	rendered string
	loaded   bool
}

func NewIntrospector(db *gorm.DB, log logger.ILogger, schemas ...string) *Introspector {
	if len(schemas) == 0 {
		schemas = DefaultSchemas
	}
	return &Introspector{
		db:      db,
		logger:  log,
		schemas: schemas,
	}
}

// Describe returns the cached schema text, loading it on first use. Failed loads are not
// cached.
func (i *Introspector) Describe(ctx context.Context) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.loaded {
		return i.rendered, nil
	}

	var columns []Column
	if err := i.db.WithContext(ctx).Raw(catalogQuery, i.schemas).Scan(&columns).Error; err != nil {
		return "", fmt.Errorf("failed to read catalog: %w", err)
	}

	i.rendered = Render(columns)
	i.loaded = true
	i.logger.Info("SCHEMA", "Schema loaded", map[string]interface{}{
		"schemas": i.schemas,
		"columns": len(columns),
	})
	return i.rendered, nil
}

// Refresh drops the cached text so the next Describe reads the catalog again.
func (i *Introspector) Refresh() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.loaded = false
	i.rendered = ""
}

// Render formats catalog rows, which must be ordered by schema, table and position.
func Render(columns []Column) string {
	var blocks []string
	var b strings.Builder
	current := ""

	for _, col := range columns {
		table := col.TableSchema + "." + col.TableName
		if table != current {
			if current != "" {
				blocks = append(blocks, strings.TrimRight(b.String(), "\n"))
				b.Reset()
			}
			current = table
			fmt.Fprintf(&b, "Table: %s\nColumns:\n", table)
		}

		comment := "None"
		if col.Comment != nil && strings.TrimSpace(*col.Comment) != "" {
			comment = strings.TrimSpace(*col.Comment)
		}
		fmt.Fprintf(&b, "  - %s: %s, comments: %s", col.ColumnName, col.DataType, comment)
		if col.NotNull {
			b.WriteString(" (NOT NULL)")
		}
		b.WriteString("\n")
	}
	if current != "" {
		blocks = append(blocks, strings.TrimRight(b.String(), "\n"))
	}

	return strings.Join(blocks, "\n\n")
}

// Static serves a fixed description. Used by the CLI when a schema dump is supplied and by tests.
type Static string

func (s Static) Describe(context.Context) (string, error) {
	return string(s), nil
}
