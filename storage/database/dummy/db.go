// Package dummydb is an in-memory core.TabularStore for tests and local runs.
package dummydb

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/resultportal/core"
)

type (
	DB struct {
		mu     sync.RWMutex
		tables map[string]*table
	}

	table struct {
		sync.RWMutex
		rows  map[string]core.Record
		order []string // ids in insertion order
	}
)

var _ core.TabularStore = (*DB)(nil) // interface compliance check

func Open() (*DB, error) {
	return &DB{tables: make(map[string]*table)}, nil
}

func (db *DB) tableFor(name string) *table {
	db.mu.RLock()
	tbl, ok := db.tables[name]
	db.mu.RUnlock()
	if ok {
		return tbl
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if tbl, ok = db.tables[name]; !ok {
		tbl = &table{rows: make(map[string]core.Record)}
		db.tables[name] = tbl
	}
	return tbl
}

// Len returns the number of records in table.
func (db *DB) Len(name string) int {
	tbl := db.tableFor(name)
	tbl.RLock()
	defer tbl.RUnlock()
	return len(tbl.rows)
}

func clone(rec core.Record) core.Record {
	cp := make(core.Record, len(rec))
	for k, v := range rec {
		cp[k] = v
	}
	return cp
}

func matchAll(rec core.Record, filters []core.Filter) bool {
	for _, f := range filters {
		if !f.Match(rec) {
			return false
		}
	}
	return true
}

func (tbl *table) insert(rec core.Record) core.Record {
	row := clone(rec)
	id := row.String("id")
	if id == "" {
		id = uuid.New().String()
	}
	row["id"] = id
	if _, exists := tbl.rows[id]; !exists {
		tbl.order = append(tbl.order, id)
	}
	tbl.rows[id] = row
	return clone(row)
}

func (db *DB) Fetch(ctx context.Context, name string, filters ...core.Filter) ([]core.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tbl := db.tableFor(name)
	tbl.RLock()
	defer tbl.RUnlock()

	recs := make([]core.Record, 0)
	for _, id := range tbl.order {
		if row := tbl.rows[id]; matchAll(row, filters) {
			recs = append(recs, clone(row))
		}
	}
	return recs, nil
}

func (db *DB) Insert(ctx context.Context, name string, records ...core.Record) ([]core.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tbl := db.tableFor(name)
	tbl.Lock()
	defer tbl.Unlock()

	inserted := make([]core.Record, 0, len(records))
	for _, rec := range records {
		inserted = append(inserted, tbl.insert(rec))
	}
	return inserted, nil
}

func (db *DB) Upsert(ctx context.Context, name string, records []core.Record, conflictColumns ...string) ([]core.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(conflictColumns) == 0 {
		return nil, errors.New("upsert needs at least one conflict column")
	}
	tbl := db.tableFor(name)
	tbl.Lock()
	defer tbl.Unlock()

	saved := make([]core.Record, 0, len(records))
	for _, rec := range records {
		filters := make([]core.Filter, 0, len(conflictColumns))
		for _, col := range conflictColumns {
			filters = append(filters, core.Eq(col, rec.String(col)))
		}

		var existing core.Record
		for _, id := range tbl.order {
			if row := tbl.rows[id]; matchAll(row, filters) {
				existing = row
				break
			}
		}
		if existing == nil {
			saved = append(saved, tbl.insert(rec))
			continue
		}
		for k, v := range rec {
			if k != "id" {
				existing[k] = v
			}
		}
		saved = append(saved, clone(existing))
	}
	return saved, nil
}

func (db *DB) Update(ctx context.Context, name, id string, fields core.Record) (core.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tbl := db.tableFor(name)
	tbl.Lock()
	defer tbl.Unlock()

	row, ok := tbl.rows[id]
	if !ok {
		return nil, core.ErrRecordNotFound
	}
	for k, v := range fields {
		if k != "id" {
			row[k] = v
		}
	}
	return clone(row), nil
}

func (db *DB) Delete(ctx context.Context, name, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tbl := db.tableFor(name)
	tbl.Lock()
	defer tbl.Unlock()

	if _, ok := tbl.rows[id]; !ok {
		return core.ErrRecordNotFound
	}
	delete(tbl.rows, id)
	for i, rid := range tbl.order {
		if rid == id {
			tbl.order = append(tbl.order[:i], tbl.order[i+1:]...)
			break
		}
	}
	return nil
}
