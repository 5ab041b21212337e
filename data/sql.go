package data

import (
	"database/sql"
	"fmt"
	"strings"

	// Database drivers registered for the sqlite, mysql and postgres
	// datasource types.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/pkg/errors"

	"github.com/OmarAdellll/ETL/etl"
)

// SQLAdapter reads and writes database tables. The path takes the form
// dsn#table, e.g. sqlite:file.db#sales or
// postgres:host=localhost dbname=etl#orders.
type SQLAdapter struct {
	Dialect string
}

// driverName maps a datasource type to its registered driver.
func (a *SQLAdapter) driverName() (string, error) {
	switch a.Dialect {
	case "sqlite":
		return "sqlite", nil
	case "mysql":
		return "mysql", nil
	case "postgres":
		return "postgres", nil
	}
	return "", &UnknownSourceTypeError{SourceType: a.Dialect}
}

// splitPath separates the DSN from the table name at the last '#'.
func splitPath(path string) (dsn, table string, err error) {
	idx := strings.LastIndex(path, "#")
	if idx <= 0 || idx == len(path)-1 {
		return "", "", errors.Errorf("database path %q must take the form dsn#table", path)
	}
	return path[:idx], path[idx+1:], nil
}

func (a *SQLAdapter) open(path string) (*sql.DB, string, error) {
	driver, err := a.driverName()
	if err != nil {
		return nil, "", err
	}
	dsn, table, err := splitPath(path)
	if err != nil {
		return nil, "", err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, "", errors.Wrapf(err, "failed to open %s database", a.Dialect)
	}
	return db, table, nil
}

// Extract reads every row of the table into a relation.
func (a *SQLAdapter) Extract(path string) (*etl.Relation, error) {
	db, table, err := a.open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	rows, err := db.Query("SELECT * FROM " + quoteIdent(table, a.Dialect))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query table %s", table)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read result columns")
	}

	rel := etl.NewRelation(columns...)
	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, errors.Wrap(err, "failed to scan row")
		}
		for i, v := range values {
			// Drivers hand text columns back as byte slices.
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		if err := rel.AppendRow(values); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed while iterating rows")
	}
	return rel, nil
}

// Load creates the table if needed and inserts every row inside one
// transaction.
func (a *SQLAdapter) Load(rel *etl.Relation, path string) error {
	if rel == nil {
		return etl.ErrNilInput
	}

	db, table, err := a.open(path)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	quoted := make([]string, len(rel.Columns))
	for i, col := range rel.Columns {
		quoted[i] = quoteIdent(col, a.Dialect)
	}

	createStmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		quoteIdent(table, a.Dialect), strings.Join(quoted, " TEXT, ")+" TEXT")
	if _, err := db.Exec(createStmt); err != nil {
		return errors.Wrapf(err, "failed to create table %s", table)
	}

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}

	insertStmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table, a.Dialect), strings.Join(quoted, ", "),
		placeholders(len(rel.Columns), a.Dialect))
	stmt, err := tx.Prepare(insertStmt)
	if err != nil {
		_ = tx.Rollback()
		return errors.Wrap(err, "failed to prepare insert")
	}
	defer func() { _ = stmt.Close() }()

	for _, row := range rel.Rows {
		if _, err := stmt.Exec(row...); err != nil {
			_ = tx.Rollback()
			return errors.Wrapf(err, "failed to insert into %s", table)
		}
	}
	return errors.Wrap(tx.Commit(), "failed to commit")
}

// quoteIdent quotes an identifier for the dialect.
func quoteIdent(name, dialect string) string {
	if dialect == "mysql" {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// placeholders renders n bind markers: ?, ?, ... or $1, $2, ... for
// postgres.
func placeholders(n int, dialect string) string {
	parts := make([]string, n)
	for i := range parts {
		if dialect == "postgres" {
			parts[i] = fmt.Sprintf("$%d", i+1)
		} else {
			parts[i] = "?"
		}
	}
	return strings.Join(parts, ", ")
}
