// Package sqlxstore is a Postgres core.TabularStore.
package sqlxstore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/resultportal/core"
	"github.com/trezcool/resultportal/core/result"
)

// schema lists the columns of every table the store may touch.
var schema = map[string][]string{
	result.TableSessions: {"id", "name", "is_active", "created_at"},
	result.TableClasses:  {"id", "name", "section"},
	result.TableSubjects: {"id", "name", "class_id", "max_marks", "passing_marks"},
	result.TableStudents: {"id", "full_name", "father_name", "roll_number", "class_id"},
	result.TableMarks:    {"id", "student_id", "subject_id", "session_id", "obtained_marks"},
}

type Store struct {
	db *sqlx.DB
}

var _ core.TabularStore = (*Store)(nil) // interface compliance check

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func checkColumns(table string, columns ...string) error {
	known, ok := schema[table]
	if !ok {
		return errors.Errorf("unknown table %q", table)
	}
	for _, col := range columns {
		found := false
		for _, k := range known {
			if k == col {
				found = true
				break
			}
		}
		if !found {
			return errors.Errorf("unknown column %q in table %q", col, table)
		}
	}
	return nil
}

func sortedColumns(rec core.Record, skip ...string) []string {
	cols := make([]string, 0, len(rec))
outer:
	for col := range rec {
		for _, s := range skip {
			if col == s {
				continue outer
			}
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

func quoteAll(cols []string) []string {
	quoted := make([]string, 0, len(cols))
	for _, col := range cols {
		quoted = append(quoted, pq.QuoteIdentifier(col))
	}
	return quoted
}

func placeholders(from, n int) []string {
	ph := make([]string, 0, n)
	for i := 0; i < n; i++ {
		ph = append(ph, fmt.Sprintf("$%d", from+i))
	}
	return ph
}

func buildSelect(table string, filters []core.Filter) (string, []interface{}, error) {
	cols := make([]string, 0, len(filters))
	for _, f := range filters {
		cols = append(cols, f.Column)
	}
	if err := checkColumns(table, cols...); err != nil {
		return "", nil, err
	}

	q := "SELECT * FROM " + pq.QuoteIdentifier(table)
	conds := make([]string, 0, len(filters))
	args := make([]interface{}, 0, len(filters))
	for _, f := range filters {
		col := pq.QuoteIdentifier(f.Column)
		n := len(args) + 1
		switch f.Op {
		case core.OpEq, core.OpNeq:
			if len(f.Values) == 0 {
				return "", nil, errors.Errorf("filter %s has no value", f.Column)
			}
			op := "="
			if f.Op == core.OpNeq {
				op = "<>"
			}
			v := f.Values[0]
			if isKeyColumn(f.Column) {
				col += "::text"
				v = fmt.Sprint(v)
			}
			conds = append(conds, fmt.Sprintf("%s %s $%d", col, op, n))
			args = append(args, v)
		case core.OpIn:
			vals := make([]string, 0, len(f.Values))
			for _, v := range f.Values {
				vals = append(vals, fmt.Sprint(v))
			}
			conds = append(conds, fmt.Sprintf("%s::text = ANY($%d)", col, n))
			args = append(args, pq.Array(vals))
		default:
			return "", nil, errors.Errorf("unsupported filter operator %q", f.Op)
		}
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	return q + " ORDER BY " + pq.QuoteIdentifier("id"), args, nil
}

// isKeyColumn reports whether column holds a uuid key.
// Keys are compared as text so a malformed id matches nothing instead of failing the query.
func isKeyColumn(column string) bool {
	return column == "id" || strings.HasSuffix(column, "_id")
}

// undefinedTable is the postgres error code for a missing relation.
const undefinedTable = "42P01"

// wrapErr wraps err, turning a missing table into a shutdown error: the schema
// is not migrated and no request can succeed until it is.
func wrapErr(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == undefinedTable {
		return core.NewShutdownError(fmt.Sprintf("database schema is missing (%s); run migrations", pqErr.Message))
	}
	return errors.Wrapf(err, format, args...)
}

func buildInsert(table string, rec core.Record, conflictColumns []string) (string, []interface{}, error) {
	cols := sortedColumns(rec)
	if err := checkColumns(table, append(cols, conflictColumns...)...); err != nil {
		return "", nil, err
	}
	args := make([]interface{}, 0, len(cols))
	for _, col := range cols {
		args = append(args, rec[col])
	}

	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		pq.QuoteIdentifier(table), strings.Join(quoteAll(cols), ", "), strings.Join(placeholders(1, len(cols)), ", "))
	if len(cols) == 0 {
		q = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", pq.QuoteIdentifier(table))
	}

	if len(conflictColumns) > 0 {
		sets := make([]string, 0, len(cols))
		for _, col := range cols {
			if col == "id" {
				continue
			}
			qc := pq.QuoteIdentifier(col)
			sets = append(sets, qc+" = EXCLUDED."+qc)
		}
		q += fmt.Sprintf(" ON CONFLICT (%s)", strings.Join(quoteAll(conflictColumns), ", "))
		if len(sets) > 0 {
			q += " DO UPDATE SET " + strings.Join(sets, ", ")
		} else {
			q += " DO NOTHING"
		}
	}
	return q + " RETURNING *", args, nil
}

func buildUpdate(table, id string, fields core.Record) (string, []interface{}, error) {
	cols := sortedColumns(fields, "id")
	if len(cols) == 0 {
		return "", nil, errors.New("nothing to update")
	}
	if err := checkColumns(table, cols...); err != nil {
		return "", nil, err
	}
	sets := make([]string, 0, len(cols))
	args := make([]interface{}, 0, len(cols)+1)
	for i, col := range cols {
		sets = append(sets, fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(col), i+1))
		args = append(args, fields[col])
	}
	args = append(args, id)
	q := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d RETURNING *",
		pq.QuoteIdentifier(table), strings.Join(sets, ", "), pq.QuoteIdentifier("id"), len(args))
	return q, args, nil
}

// scanRecord normalizes driver values: text-like columns (uuid included) come back as []byte.
func scanRecord(row interface{ MapScan(map[string]interface{}) error }) (core.Record, error) {
	raw := make(map[string]interface{})
	if err := row.MapScan(raw); err != nil {
		return nil, err
	}
	rec := make(core.Record, len(raw))
	for k, v := range raw {
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		rec[k] = v
	}
	return rec, nil
}

func (s *Store) Fetch(ctx context.Context, table string, filters ...core.Filter) ([]core.Record, error) {
	q, args, err := buildSelect(table, filters)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryxContext(ctx, q, args...)
	if err != nil {
		return nil, wrapErr(err, "selecting from %s", table)
	}
	defer func() { _ = rows.Close() }()

	recs := make([]core.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, errors.Wrapf(err, "scanning %s", table)
		}
		recs = append(recs, rec)
	}
	return recs, wrapErr(rows.Err(), "selecting from %s", table)
}

// write runs one statement per record in a single transaction.
func (s *Store) write(ctx context.Context, table string, records []core.Record, conflictColumns []string) ([]core.Record, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	saved := make([]core.Record, 0, len(records))
	for _, rec := range records {
		q, args, err := buildInsert(table, rec, conflictColumns)
		if err != nil {
			return nil, err
		}
		row, err := scanRecord(tx.QueryRowxContext(ctx, q, args...))
		if err == sql.ErrNoRows {
			continue // ON CONFLICT DO NOTHING
		}
		if err != nil {
			return nil, wrapErr(err, "writing into %s", table)
		}
		saved = append(saved, row)
	}
	return saved, errors.Wrap(tx.Commit(), "committing transaction")
}

func (s *Store) Insert(ctx context.Context, table string, records ...core.Record) ([]core.Record, error) {
	return s.write(ctx, table, records, nil)
}

func (s *Store) Upsert(ctx context.Context, table string, records []core.Record, conflictColumns ...string) ([]core.Record, error) {
	if len(conflictColumns) == 0 {
		return nil, errors.New("upsert needs at least one conflict column")
	}
	return s.write(ctx, table, records, conflictColumns)
}

func (s *Store) Update(ctx context.Context, table, id string, fields core.Record) (core.Record, error) {
	q, args, err := buildUpdate(table, id, fields)
	if err != nil {
		return nil, err
	}
	rec, err := scanRecord(s.db.QueryRowxContext(ctx, q, args...))
	if err == sql.ErrNoRows {
		return nil, core.ErrRecordNotFound
	}
	return rec, wrapErr(err, "updating %s", table)
}

func (s *Store) Delete(ctx context.Context, table, id string) error {
	if err := checkColumns(table); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s = $1", pq.QuoteIdentifier(table), pq.QuoteIdentifier("id")), id)
	if err != nil {
		return wrapErr(err, "deleting from %s", table)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrRecordNotFound
	}
	return nil
}
