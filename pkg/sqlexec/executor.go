package sqlexec

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"solar-parcel-be/internal/pkg/logger"
	"solar-parcel-be/pkg/geometry"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// QueryError carries the database error text handed to the repair stage.
type QueryError struct {
	Message string
	Err     error
}

func (e *QueryError) Error() string { return e.Message }

func (e *QueryError) Unwrap() error { return e.Err }

// Executor runs generated SQL on a dedicated connection.
type Executor struct {
	db               *gorm.DB
	logger           logger.ILogger
	geometryColumns  map[string]bool
	statementTimeout time.Duration
}

type Option func(*Executor)

// WithStatementTimeout bounds each statement server side. PostgreSQL only.
func WithStatementTimeout(d time.Duration) Option {
	return func(e *Executor) {
		e.statementTimeout = d
	}
}

// WithGeometryColumns sets which result columns are run through the geometry normalizer.
func WithGeometryColumns(columns ...string) Option {
	return func(e *Executor) {
		e.geometryColumns = make(map[string]bool, len(columns))
		for _, c := range columns {
			e.geometryColumns[c] = true
		}
	}
}

func NewExecutor(db *gorm.DB, log logger.ILogger, opts ...Option) *Executor {
	e := &Executor{
		db:              db,
		logger:          log,
		geometryColumns: map[string]bool{"geometry": true, "geom": true},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes a single read-only statement. The connection is returned to the pool on
// every path. Geometry columns come back as *geojson.Geometry, or nil when unreadable.
func (e *Executor) Run(ctx context.Context, query string) ([]Row, error) {
	stmt, err := Guard(query)
	if err != nil {
		e.logger.Warn("EXECUTOR", "Statement rejected", map[string]interface{}{"error": err.Error()})
		return nil, &QueryError{Message: err.Error(), Err: err}
	}

	start := time.Now()
	var rows []Row
	err = e.db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		return conn.Transaction(func(tx *gorm.DB) error {
			if e.isPostgres() && e.statementTimeout > 0 {
				timeout := fmt.Sprintf("SET LOCAL statement_timeout = %d", e.statementTimeout.Milliseconds())
				if err := tx.Exec(timeout).Error; err != nil {
					return err
				}
			}

			result, err := tx.Raw(stmt).Rows()
			if err != nil {
				return err
			}
			defer result.Close()

			rows, err = e.scan(result)
			return err
		}, e.txOptions())
	})
	if err != nil {
		msg := describe(err)
		e.logger.Warn("EXECUTOR", "Query failed", map[string]interface{}{
			"error":       msg,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return nil, &QueryError{Message: msg, Err: err}
	}

	e.logger.Info("EXECUTOR", "Query executed", map[string]interface{}{
		"rows":        len(rows),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return rows, nil
}

func (e *Executor) scan(result *sql.Rows) ([]Row, error) {
	columns, err := result.Columns()
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0)
	for result.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := result.Scan(ptrs...); err != nil {
			return nil, err
		}

		for i, col := range columns {
			values[i] = e.convert(col, values[i])
		}
		rows = append(rows, NewRow(columns, values))
	}
	return rows, result.Err()
}

func (e *Executor) convert(column string, v any) any {
	if v == nil {
		return nil
	}

	if e.geometryColumns[strings.ToLower(column)] {
		g, err := geometry.Normalize(v)
		if err != nil {
			e.logger.Debug("EXECUTOR", "Geometry not convertible", map[string]interface{}{
				"column": column,
				"error":  err.Error(),
			})
			return nil
		}
		return g
	}

	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func (e *Executor) isPostgres() bool {
	return e.db.Dialector != nil && e.db.Dialector.Name() == "postgres"
}

func (e *Executor) txOptions() *sql.TxOptions {
	if e.isPostgres() {
		return &sql.TxOptions{ReadOnly: true}
	}
	return &sql.TxOptions{}
}

// describe expands PostgreSQL errors with detail, hint and position so the repair prompt
// sees everything the server reported.
func describe(err error) string {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err.Error()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s (SQLSTATE %s)", pgErr.Message, pgErr.Code)
	if pgErr.Detail != "" {
		fmt.Fprintf(&b, "\nDETAIL: %s", pgErr.Detail)
	}
	if pgErr.Hint != "" {
		fmt.Fprintf(&b, "\nHINT: %s", pgErr.Hint)
	}
	if pgErr.Position > 0 {
		fmt.Fprintf(&b, "\nPOSITION: %d", pgErr.Position)
	}
	return b.String()
}
