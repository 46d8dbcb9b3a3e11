package writers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/denisenkom/go-mssqldb" // MS SQL Server driver
	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"github.com/ruslano69/tdtp-datagen/pkg/core/generr"
	"github.com/ruslano69/tdtp-datagen/pkg/core/strategy"
	"github.com/ruslano69/tdtp-datagen/pkg/core/table"
)

func init() {
	Register("sqlite", newSQLiteWriter)
	Register("mysql", newDSNWriter(mysqlDialect))
	Register("mssql", newDSNWriter(mssqlDialect))
}

// IfExists поведение при существующей таблице
type IfExists string

const (
	IfExistsReplace IfExists = "replace"
	IfExistsAppend  IfExists = "append"
	IfExistsFail    IfExists = "fail"
)

func parseIfExists(p strategy.Params, writerType string) (IfExists, error) {
	switch v := IfExists(strings.ToLower(p.String("if_exists"))); v {
	case "":
		return IfExistsReplace, nil
	case IfExistsReplace, IfExistsAppend, IfExistsFail:
		return v, nil
	}
	e := generr.Validation([]generr.FieldError{{Field: "if_exists", Message: "must be one of replace, append, fail"}})
	e.Msg = "invalid parameters for " + writerType + " writer"
	return "", e
}

// dialect различия SQL-диалектов
type dialect struct {
	name        string
	driver      string
	quote       func(ident string) string
	placeholder func(i int) string
	types       map[table.Kind]string
	createIfNot func(name, columns string) string
}

var sqliteDialect = dialect{
	name:        "sqlite",
	driver:      "sqlite",
	quote:       func(s string) string { return `"` + strings.ReplaceAll(s, `"`, `""`) + `"` },
	placeholder: func(int) string { return "?" },
	types: map[table.Kind]string{
		table.KindInt:    "INTEGER",
		table.KindFloat:  "REAL",
		table.KindString: "TEXT",
		table.KindBool:   "INTEGER",
		table.KindNone:   "TEXT",
	},
	createIfNot: func(name, columns string) string {
		return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", name, columns)
	},
}

var mysqlDialect = dialect{
	name:        "mysql",
	driver:      "mysql",
	quote:       func(s string) string { return "`" + strings.ReplaceAll(s, "`", "``") + "`" },
	placeholder: func(int) string { return "?" },
	types: map[table.Kind]string{
		table.KindInt:    "BIGINT",
		table.KindFloat:  "DOUBLE",
		table.KindString: "TEXT",
		table.KindBool:   "BOOLEAN",
		table.KindNone:   "TEXT",
	},
	createIfNot: func(name, columns string) string {
		return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", name, columns)
	},
}

var mssqlDialect = dialect{
	name:        "mssql",
	driver:      "sqlserver",
	quote:       func(s string) string { return "[" + strings.ReplaceAll(s, "]", "]]") + "]" },
	placeholder: func(i int) string { return fmt.Sprintf("@p%d", i) },
	types: map[table.Kind]string{
		table.KindInt:    "BIGINT",
		table.KindFloat:  "FLOAT",
		table.KindString: "NVARCHAR(MAX)",
		table.KindBool:   "BIT",
		table.KindNone:   "NVARCHAR(MAX)",
	},
	createIfNot: func(name, columns string) string {
		return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s (%s)",
			strings.ReplaceAll(name, "'", "''"), name, columns)
	},
}

// SQLWriter пишет таблицу через database/sql.
// params: dsn (или output_path для sqlite), table_name, if_exists, batch_size
type SQLWriter struct {
	dialect   dialect
	dsn       string
	out       *output // только sqlite: файл БД
	tableName string
	ifExists  IfExists
	batchSize int
}

func newSQLiteWriter(p strategy.Params) (Writer, error) {
	w, err := newSQLWriter(sqliteDialect, p)
	if err != nil {
		return nil, err
	}
	if p.String("dsn") == "" {
		out, err := newOutput(p, "sqlite")
		if err != nil {
			return nil, err
		}
		w.out = out
	} else {
		w.dsn = p.String("dsn")
	}
	return w, nil
}

func newDSNWriter(d dialect) Constructor {
	return func(p strategy.Params) (Writer, error) {
		w, err := newSQLWriter(d, p)
		if err != nil {
			return nil, err
		}
		if w.dsn, err = requireString(p, d.name, "dsn"); err != nil {
			return nil, err
		}
		return w, nil
	}
}

func newSQLWriter(d dialect, p strategy.Params) (*SQLWriter, error) {
	tableName, err := requireString(p, d.name, "table_name")
	if err != nil {
		return nil, err
	}
	ifExists, err := parseIfExists(p, d.name)
	if err != nil {
		return nil, err
	}
	batchSize := p.Int("batch_size")
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &SQLWriter{dialect: d, tableName: tableName, ifExists: ifExists, batchSize: batchSize}, nil
}

func (w *SQLWriter) Type() string { return w.dialect.name }

func (w *SQLWriter) Write(ctx context.Context, tbl *table.Table) error {
	var err error
	if w.out != nil {
		err = w.out.write(ctx, func(local string) error {
			return w.writeDSN(ctx, local, tbl)
		})
	} else {
		err = w.writeDSN(ctx, w.dsn, tbl)
	}
	if err != nil {
		return generr.Writer(w.Type(), err)
	}
	return nil
}

func (w *SQLWriter) writeDSN(ctx context.Context, dsn string, tbl *table.Table) error {
	db, err := sql.Open(w.dialect.driver, dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if err := w.prepareTable(ctx, db, tbl); err != nil {
		return err
	}
	return w.insertRows(ctx, db, tbl)
}

// prepareTable создает таблицу согласно if_exists
func (w *SQLWriter) prepareTable(ctx context.Context, db *sql.DB, tbl *table.Table) error {
	name := w.dialect.quote(w.tableName)
	columns := columnDefs(tbl, w.dialect.quote, w.dialect.types)

	var stmts []string
	switch w.ifExists {
	case IfExistsReplace:
		stmts = []string{
			fmt.Sprintf("DROP TABLE IF EXISTS %s", name),
			fmt.Sprintf("CREATE TABLE %s (%s)", name, columns),
		}
	case IfExistsAppend:
		stmts = []string{w.dialect.createIfNot(name, columns)}
	default:
		stmts = []string{fmt.Sprintf("CREATE TABLE %s (%s)", name, columns)}
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create table %s: %w", w.tableName, err)
		}
	}
	return nil
}

// insertRows вставляет строки пачками по batchSize в отдельных транзакциях
func (w *SQLWriter) insertRows(ctx context.Context, db *sql.DB, tbl *table.Table) error {
	names := tbl.Names()
	quoted := make([]string, len(names))
	placeholders := make([]string, len(names))
	for i, n := range names {
		quoted[i] = w.dialect.quote(n)
		placeholders[i] = w.dialect.placeholder(i + 1)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		w.dialect.quote(w.tableName),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "))

	for from := 0; from < tbl.Rows(); from += w.batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		rows := tbl.Slice(from, from+w.batchSize)
		if err := insertBatch(ctx, db, query, rows); err != nil {
			return fmt.Errorf("failed to insert rows %d-%d: %w", from, from+len(rows)-1, err)
		}
	}
	return nil
}

func insertBatch(ctx context.Context, db *sql.DB, query string, rows [][]any) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// columnDefs описание колонок для CREATE TABLE
func columnDefs(tbl *table.Table, quote func(string) string, types map[table.Kind]string) string {
	schema := tbl.Schema()
	defs := make([]string, len(schema))
	for i, c := range schema {
		defs[i] = quote(c.Name) + " " + types[c.Kind]
	}
	return strings.Join(defs, ", ")
}
