package writers

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ruslano69/tdtp-datagen/pkg/core/generr"
	"github.com/ruslano69/tdtp-datagen/pkg/core/strategy"
	"github.com/ruslano69/tdtp-datagen/pkg/core/table"
)

func init() {
	Register("postgres", newPostgresWriter)
}

var postgresTypes = map[table.Kind]string{
	table.KindInt:    "BIGINT",
	table.KindFloat:  "DOUBLE PRECISION",
	table.KindString: "TEXT",
	table.KindBool:   "BOOLEAN",
	table.KindNone:   "TEXT",
}

// PostgresWriter загружает таблицу через COPY.
// params: dsn, table_name, schema ("public"), if_exists
type PostgresWriter struct {
	dsn       string
	schema    string
	tableName string
	ifExists  IfExists
}

func newPostgresWriter(p strategy.Params) (Writer, error) {
	dsn, err := requireString(p, "postgres", "dsn")
	if err != nil {
		return nil, err
	}
	tableName, err := requireString(p, "postgres", "table_name")
	if err != nil {
		return nil, err
	}
	ifExists, err := parseIfExists(p, "postgres")
	if err != nil {
		return nil, err
	}
	schema := p.String("schema")
	if schema == "" {
		schema = "public"
	}
	return &PostgresWriter{dsn: dsn, schema: schema, tableName: tableName, ifExists: ifExists}, nil
}

func (w *PostgresWriter) Type() string { return "postgres" }

func (w *PostgresWriter) Write(ctx context.Context, tbl *table.Table) error {
	if err := w.write(ctx, tbl); err != nil {
		return generr.Writer(w.Type(), err)
	}
	return nil
}

func (w *PostgresWriter) write(ctx context.Context, tbl *table.Table) error {
	config, err := pgxpool.ParseConfig(w.dsn)
	if err != nil {
		return fmt.Errorf("failed to parse connection string: %w", err)
	}
	config.MaxConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	ident := pgx.Identifier{w.schema, w.tableName}
	name := ident.Sanitize()
	quote := func(s string) string { return pgx.Identifier{s}.Sanitize() }
	columns := columnDefs(tbl, quote, postgresTypes)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var stmts []string
	switch w.ifExists {
	case IfExistsReplace:
		stmts = []string{
			fmt.Sprintf("DROP TABLE IF EXISTS %s", name),
			fmt.Sprintf("CREATE TABLE %s (%s)", name, columns),
		}
	case IfExistsAppend:
		stmts = []string{fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", name, columns)}
	default:
		stmts = []string{fmt.Sprintf("CREATE TABLE %s (%s)", name, columns)}
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create table %s: %w", name, err)
		}
	}

	count, err := tx.CopyFrom(ctx, ident, tbl.Names(), pgx.CopyFromRows(tbl.Slice(0, tbl.Rows())))
	if err != nil {
		return fmt.Errorf("failed to copy rows: %w", err)
	}
	if int(count) != tbl.Rows() {
		return fmt.Errorf("copied %d rows, expected %d", count, tbl.Rows())
	}
	return tx.Commit(ctx)
}
