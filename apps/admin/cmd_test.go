package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/resultportal/core"
	"github.com/trezcool/resultportal/core/importer"
	"github.com/trezcool/resultportal/core/result"
	"github.com/trezcool/resultportal/tests"
)

const marksCSV = "Roll No,Class,Student Name,Father Name,English,Maths\n" +
	"Max Marks,,,,50,100\n" +
	"1,9,Ali,Khan,45,90\n" +
	"2,9,Sara,Iqbal,30,95\n" +
	"3,9,Zain,Ahmed,A,20\n"

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	repo := result.NewRepository(testutil.NewStore(t))
	out := new(bytes.Buffer)
	return &commandLine{
		repo:      repo,
		resultSvc: result.NewService(repo),
		importSvc: importer.NewService(repo, testutil.NewLogger(), nil, nil, ""),
		out:       out,
	}, out
}

func writeMarks(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "marks.csv")
	require.NoError(t, os.WriteFile(path, []byte(marksCSV), 0o600))
	return path
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func (tt cliTest) check(t *testing.T, err error) {
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, err)
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Equal(t, tt.wantErrStr, err.Error())
		}
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_usage(t *testing.T) {
	cli, _ := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "import: no args", args: []string{"import"}, wantErr: errHelp},
		{name: "import: no session", args: []string{"import", "-file", "marks.csv"}, wantErr: errHelp},
		{name: "import: bad flag", args: []string{"import", "-lol"}, wantErr: errHelp},
		{name: "report: no class", args: []string{"report", "-session", "Finals"}, wantErr: errHelp},
		{name: "lookup: no roll", args: []string{"lookup", "-session", "Finals", "-class", "9"}, wantErr: errHelp},
		{name: "migrate: no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "migrate: no database", args: []string{"migrate", "up"}, wantErr: errNoDatabase},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)
	cli.db = new(sql.DB)

	gooseRunFunc = func(db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "1"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "sections", "sql"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}
}

func Test_commandLine_import(t *testing.T) {
	cli, out := setup(t)
	path := writeMarks(t)
	ctx := context.Background()

	require.NoError(t, cli.run([]string{"admin", "import", "-file", path, "-dry-run"}))
	assert.Contains(t, out.String(), "2 subject(s), 3 row(s)")
	_, err := cli.repo.FindSessionByName(ctx, "Finals")
	assert.Equal(t, result.ErrNotFound, errors.Cause(err), "dry run saves nothing")

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "import", "-file", path, "-session", "Finals"}))
	assert.Contains(t, out.String(), "class 9th: 3 new / 0 updated students, 2 new / 0 updated subjects, 6 marks")
	assert.Contains(t, out.String(), `imported into session "Finals"`)

	_, err = cli.repo.FindSessionByName(ctx, "Finals")
	assert.NoError(t, err)

	t.Run("missing file", func(t *testing.T) {
		err := cli.run([]string{"admin", "import", "-file", filepath.Join(t.TempDir(), "nope.csv"), "-session", "Finals"})
		assert.Error(t, err)
	})
}

func Test_commandLine_reportAndLookup(t *testing.T) {
	cli, out := setup(t)
	require.NoError(t, cli.run([]string{"admin", "import", "-file", writeMarks(t), "-session", "Finals"}))

	t.Run("report", func(t *testing.T) {
		out.Reset()
		xlsx := filepath.Join(t.TempDir(), "report.xlsx")
		require.NoError(t, cli.run([]string{"admin", "report", "-session", "Finals", "-class", "9", "-xlsx", xlsx}))
		assert.Contains(t, out.String(), "Finals - 9th")
		assert.Contains(t, out.String(), "students: 3, passed: 2")

		f, err := excelize.OpenFile(xlsx)
		require.NoError(t, err)
		defer func() { _ = f.Close() }()
		rows, err := f.GetRows(reportSheet)
		require.NoError(t, err)
		require.Len(t, rows, 4)
		assert.Equal(t, []string{"Position", "Roll", "Name", "Father Name", "English", "Maths", "Total", "Max", "Percentage", "Grade"}, rows[0])
		assert.Equal(t, []string{"1st", "1", "Ali", "Khan", "45", "90", "135", "150", "90", "A+"}, rows[1])
	})

	t.Run("report: unknown class", func(t *testing.T) {
		err := cli.run([]string{"admin", "report", "-session", "Finals", "-class", "10"})
		assert.Equal(t, result.ErrNotFound, errors.Cause(err))
	})

	t.Run("lookup", func(t *testing.T) {
		out.Reset()
		require.NoError(t, cli.run([]string{"admin", "lookup", "-session", "Finals", "-class", "9th", "-roll", "2"}))
		assert.Contains(t, out.String(), "Sara (roll 2)")
		assert.Contains(t, out.String(), "total: 125/150, percentage: 83.33, grade: A, position: 2nd of 3")
	})

	t.Run("lookup: unknown roll", func(t *testing.T) {
		err := cli.run([]string{"admin", "lookup", "-session", "Finals", "-class", "9", "-roll", "42"})
		assert.Equal(t, result.ErrStudentNotFound, errors.Cause(err))
	})
}

func Test_promptStoreKey(t *testing.T) {
	tests := []struct {
		name    string
		driver  string
		key     string
		typed   string
		wantKey string
		wantErr bool
	}{
		{name: "memory store", driver: core.StoreMemory},
		{name: "key configured", driver: core.StoreREST, key: "from-env", wantKey: "from-env"},
		{name: "key typed", driver: core.StoreREST, typed: "s3cr3t", wantKey: "s3cr3t"},
		{name: "nothing typed", driver: core.StoreREST, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			readPasswordFunc = func(fd int) ([]byte, error) { return []byte(tt.typed), nil }
			conf := testutil.NewConfig()
			conf.Store.Driver, conf.Store.APIKey = tt.driver, tt.key

			err := promptStoreKey(conf, new(bytes.Buffer))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKey, conf.Store.APIKey)
		})
	}
}
