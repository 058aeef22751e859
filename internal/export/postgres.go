package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"energy_harmonizer/internal/logger"
	"energy_harmonizer/internal/model"
)

// DefaultTable is the table PostgresSink writes to when none is configured.
const DefaultTable = "harmonized_dataset"

// PostgresSink copies frames into a PostgreSQL table, creating it when absent.
type PostgresSink struct {
	pool  *pgxpool.Pool
	table pgx.Identifier
	log   logger.Logger
	// Replace truncates the table before copying.
	Replace bool
}

// NewPostgresSink connects to dsn. table may be schema-qualified.
func NewPostgresSink(ctx context.Context, dsn, table string, log logger.Logger) (*PostgresSink, error) {
	if table == "" {
		table = DefaultTable
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping failed: %w", err)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &PostgresSink{
		pool:  pool,
		table: pgx.Identifier(strings.Split(table, ".")),
		log:   log.WithField("component", "postgres_sink"),
	}, nil
}

func (s *PostgresSink) Close() {
	s.pool.Close()
}

// columnTypes returns the SQL type of every non-key column. A column holding
// any text value is text; everything else is double precision.
func columnTypes(f model.Frame) []string {
	types := make([]string, len(f.Columns))
	for j := range f.Columns {
		types[j] = "double precision"
		for _, r := range f.Rows {
			if j < len(r.Values) && r.Values[j].Kind() == model.KindText {
				types[j] = "text"
				break
			}
		}
	}
	return types
}

// CreateTableSQL returns the DDL for a table holding f.
func CreateTableSQL(table pgx.Identifier, f model.Frame) string {
	types := columnTypes(f)
	defs := make([]string, 0, len(f.Columns)+1)
	defs = append(defs, pgx.Identifier{model.ColDateTime}.Sanitize()+" timestamp NOT NULL")
	for j, c := range f.Columns {
		defs = append(defs, pgx.Identifier{c}.Sanitize()+" "+types[j])
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table.Sanitize(), strings.Join(defs, ", "))
}

// copyRows adapts a frame to pgx.CopyFromSource, converting cells to the
// column's SQL type.
func copyRows(f model.Frame) pgx.CopyFromSource {
	types := columnTypes(f)
	return pgx.CopyFromSlice(len(f.Rows), func(i int) ([]any, error) {
		r := f.Rows[i]
		row := make([]any, len(f.Columns)+1)
		row[0] = r.DateTime
		for j := range f.Columns {
			if j >= len(r.Values) || r.Values[j].IsMissing() {
				continue
			}
			v := r.Values[j]
			if types[j] == "text" {
				row[j+1] = v.String()
				continue
			}
			row[j+1], _ = v.Float()
		}
		return row, nil
	})
}

// Write creates the table if needed and copies every row of f in one
// transaction.
func (s *PostgresSink) Write(ctx context.Context, f model.Frame) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, CreateTableSQL(s.table, f)); err != nil {
		return fmt.Errorf("create table %s: %w", s.table.Sanitize(), err)
	}
	if s.Replace {
		if _, err := tx.Exec(ctx, "TRUNCATE "+s.table.Sanitize()); err != nil {
			return fmt.Errorf("truncate %s: %w", s.table.Sanitize(), err)
		}
	}

	n, err := tx.CopyFrom(ctx, s.table, f.Header(), copyRows(f))
	if err != nil {
		return fmt.Errorf("copy into %s: %w", s.table.Sanitize(), err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.log.WithFields(map[string]interface{}{
		"table": s.table.Sanitize(),
		"rows":  n,
	}).Info("copied frame")
	return nil
}
