package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrRecordNotFound is returned by TabularStore.Update & TabularStore.Delete when no record matches.
var ErrRecordNotFound = errors.New("record not found")

type (
	// Record is a single table row, keyed by column name.
	Record map[string]interface{}

	// TabularStore is a generic table-oriented data store (a hosted relational REST API, a SQL database...).
	// Every record has a string "id" primary key assigned by the store.
	TabularStore interface {
		// Fetch returns the records of table matching all filters.
		Fetch(ctx context.Context, table string, filters ...Filter) ([]Record, error)
		Insert(ctx context.Context, table string, records ...Record) ([]Record, error)
		// Upsert inserts records, merging into existing ones when all conflictColumns match.
		Upsert(ctx context.Context, table string, records []Record, conflictColumns ...string) ([]Record, error)
		Update(ctx context.Context, table, id string, fields Record) (Record, error)
		Delete(ctx context.Context, table, id string) error
	}
)

// String returns the record's value for column as a string ("" if absent).
func (r Record) String(column string) string {
	switch v := r[column].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

type FilterOp string

const (
	OpEq  FilterOp = "eq"
	OpNeq FilterOp = "neq"
	OpIn  FilterOp = "in"
)

// Filter is a `column=operator.value` condition.
type Filter struct {
	Column string
	Op     FilterOp
	Values []interface{}
}

func Eq(column string, value interface{}) Filter {
	return Filter{Column: column, Op: OpEq, Values: []interface{}{value}}
}

func Neq(column string, value interface{}) Filter {
	return Filter{Column: column, Op: OpNeq, Values: []interface{}{value}}
}

func In(column string, values ...interface{}) Filter {
	return Filter{Column: column, Op: OpIn, Values: values}
}

// InStrings is In for a slice of strings (typically ids).
func InStrings(column string, values []string) Filter {
	vals := make([]interface{}, 0, len(values))
	for _, v := range values {
		vals = append(vals, v)
	}
	return In(column, vals...)
}

// Value is the operator & value part of the filter, eg. `eq.10th` or `in.(a,b)`.
func (f Filter) Value() string {
	if f.Op == OpIn {
		vals := make([]string, 0, len(f.Values))
		for _, v := range f.Values {
			vals = append(vals, quoteFilterValue(fmt.Sprint(v)))
		}
		return fmt.Sprintf("%s.(%s)", f.Op, strings.Join(vals, ","))
	}
	var val interface{}
	if len(f.Values) > 0 {
		val = f.Values[0]
	}
	return fmt.Sprintf("%s.%v", f.Op, val)
}

func (f Filter) String() string {
	return f.Column + "=" + f.Value()
}

// Match reports whether the record satisfies the filter, comparing values by their string form.
func (f Filter) Match(r Record) bool {
	got := r.String(f.Column)
	switch f.Op {
	case OpEq:
		return len(f.Values) > 0 && got == fmt.Sprint(f.Values[0])
	case OpNeq:
		return len(f.Values) > 0 && got != fmt.Sprint(f.Values[0])
	case OpIn:
		for _, v := range f.Values {
			if got == fmt.Sprint(v) {
				return true
			}
		}
	}
	return false
}

// quoteFilterValue double-quotes list members holding reserved characters.
func quoteFilterValue(v string) string {
	if strings.ContainsAny(v, `,.:()" `) {
		return `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
	}
	return v
}
