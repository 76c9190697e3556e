package sqlxstore

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/resultportal/core"
	"github.com/trezcool/resultportal/core/result"
)

func TestBuildSelect(t *testing.T) {
	tests := []struct {
		name     string
		table    string
		filters  []core.Filter
		wantQ    string
		wantArgs []interface{}
		wantErr  bool
	}{
		{
			name:     "no filter",
			table:    result.TableClasses,
			wantQ:    `SELECT * FROM "result_classes" ORDER BY "id"`,
			wantArgs: []interface{}{},
		},
		{
			name:     "eq and neq",
			table:    result.TableStudents,
			filters:  []core.Filter{core.Eq("class_id", "c1"), core.Neq("roll_number", "7")},
			wantQ:    `SELECT * FROM "result_students" WHERE "class_id"::text = $1 AND "roll_number" <> $2 ORDER BY "id"`,
			wantArgs: []interface{}{"c1", "7"},
		},
		{
			name:     "eq on key columns compares text",
			table:    result.TableSessions,
			filters:  []core.Filter{core.Eq("id", "not-a-uuid"), core.Eq("is_active", true)},
			wantQ:    `SELECT * FROM "result_sessions" WHERE "id"::text = $1 AND "is_active" = $2 ORDER BY "id"`,
			wantArgs: []interface{}{"not-a-uuid", true},
		},
		{
			name:     "in",
			table:    result.TableMarks,
			filters:  []core.Filter{core.Eq("session_id", "s1"), core.InStrings("student_id", []string{"a", "b"})},
			wantQ:    `SELECT * FROM "result_marks" WHERE "session_id"::text = $1 AND "student_id"::text = ANY($2) ORDER BY "id"`,
			wantArgs: []interface{}{"s1", pq.Array([]string{"a", "b"})},
		},
		{name: "unknown table", table: "users", wantErr: true},
		{name: "unknown column", table: result.TableMarks, filters: []core.Filter{core.Eq("password", "x")}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, args, err := buildSelect(tt.table, tt.filters)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantQ, q)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestBuildInsert(t *testing.T) {
	rec := core.Record{"student_id": "st", "subject_id": "sb", "session_id": "se", "obtained_marks": 85.0}

	q, args, err := buildInsert(result.TableMarks, rec, nil)
	require.NoError(t, err)
	assert.Equal(t,
		`INSERT INTO "result_marks" ("obtained_marks", "session_id", "student_id", "subject_id") VALUES ($1, $2, $3, $4) RETURNING *`,
		q,
	)
	assert.Equal(t, []interface{}{85.0, "se", "st", "sb"}, args)

	q, _, err = buildInsert(result.TableMarks, rec, []string{"student_id", "subject_id", "session_id"})
	require.NoError(t, err)
	assert.Equal(t,
		`INSERT INTO "result_marks" ("obtained_marks", "session_id", "student_id", "subject_id") VALUES ($1, $2, $3, $4)`+
			` ON CONFLICT ("student_id", "subject_id", "session_id") DO UPDATE SET`+
			` "obtained_marks" = EXCLUDED."obtained_marks", "session_id" = EXCLUDED."session_id",`+
			` "student_id" = EXCLUDED."student_id", "subject_id" = EXCLUDED."subject_id" RETURNING *`,
		q,
	)

	_, _, err = buildInsert(result.TableMarks, rec, []string{"nope"})
	assert.Error(t, err)
}

func TestBuildUpdate(t *testing.T) {
	q, args, err := buildUpdate(result.TableStudents, "42", core.Record{"id": "ignored", "full_name": "Ali", "father_name": "Khan"})
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "result_students" SET "father_name" = $1, "full_name" = $2 WHERE "id" = $3 RETURNING *`, q)
	assert.Equal(t, []interface{}{"Khan", "Ali", "42"}, args)

	_, _, err = buildUpdate(result.TableStudents, "42", core.Record{})
	assert.Error(t, err)
}

func TestWrapErr(t *testing.T) {
	assert.NoError(t, wrapErr(nil, "selecting from %s", result.TableMarks))

	err := wrapErr(&pq.Error{Code: "22P02", Message: "invalid input syntax"}, "selecting from %s", result.TableMarks)
	assert.False(t, core.IsShutdown(err))
	assert.Contains(t, err.Error(), "selecting from result_marks")

	err = wrapErr(&pq.Error{Code: "42P01", Message: `relation "result_marks" does not exist`}, "selecting from %s", result.TableMarks)
	assert.True(t, core.IsShutdown(err))
	assert.Contains(t, err.Error(), "run migrations")
}
