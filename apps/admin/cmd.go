package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/trezcool/resultportal/core"
	"github.com/trezcool/resultportal/core/importer"
	"github.com/trezcool/resultportal/core/result"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp       = errors.New("help provided")
	errNoDatabase = errors.New("migrate needs the postgres store driver")
)

type commandLine struct {
	db        *sql.DB // nil unless the postgres driver is used
	repo      *result.Repository
	resultSvc *result.Service
	importSvc *importer.Service
	out       io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                                   - run a goose migration command (up, down, status...)")
	fmt.Fprintln(cli.out, "  import -file PATH -session NAME [-dry-run]               - import a marks spreadsheet (.xlsx, .xls, .csv)")
	fmt.Fprintln(cli.out, "  report -session NAME -class NAME [-section S] [-xlsx OUT] - print a class report")
	fmt.Fprintln(cli.out, "  lookup -session NAME -class NAME [-section S] -roll ROLL  - print a student's result card")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	importCmd := flag.NewFlagSet("import", flag.ContinueOnError)
	importFile := importCmd.String("file", "", "The spreadsheet to import.")
	importSession := importCmd.String("session", "", "The session the marks belong to. Created if it does not exist.")
	importDryRun := importCmd.Bool("dry-run", false, "Only print the review sheet; nothing is saved.")

	reportCmd := flag.NewFlagSet("report", flag.ContinueOnError)
	reportSession := reportCmd.String("session", "", "The session name.")
	reportClass := reportCmd.String("class", "", "The class name, eg. 9 or 9th.")
	reportSection := reportCmd.String("section", "", "The class section, if any.")
	reportOrdering := reportCmd.String("ordering", "", "Comma separated ordering fields, eg. -percentage,name.")
	reportXLSX := reportCmd.String("xlsx", "", "Also write the report to this .xlsx file.")

	lookupCmd := flag.NewFlagSet("lookup", flag.ContinueOnError)
	lookupSession := lookupCmd.String("session", "", "The session name.")
	lookupClass := lookupCmd.String("class", "", "The class name, eg. 9 or 9th.")
	lookupSection := lookupCmd.String("section", "", "The class section, if any.")
	lookupRoll := lookupCmd.String("roll", "", "The student's roll number.")

	for _, fs := range []*flag.FlagSet{importCmd, reportCmd, lookupCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "import":
		if err := importCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *importFile == "" || (*importSession == "" && !*importDryRun) {
			importCmd.Usage()
			return errHelp
		}
		return cli.importFile(ctx, *importFile, *importSession, *importDryRun)

	case "report":
		if err := reportCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *reportSession == "" || *reportClass == "" {
			reportCmd.Usage()
			return errHelp
		}
		return cli.report(ctx, *reportSession, *reportClass, *reportSection, *reportOrdering, *reportXLSX)

	case "lookup":
		if err := lookupCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *lookupSession == "" || *lookupClass == "" || *lookupRoll == "" {
			lookupCmd.Usage()
			return errHelp
		}
		return cli.lookup(ctx, *lookupSession, *lookupClass, *lookupSection, *lookupRoll)

	default:
		cli.printUsage()
		return errHelp
	}
}

// promptStoreKey asks for the hosted store API key when the config does not provide it.
func promptStoreKey(conf *core.Config, out io.Writer) error {
	if conf.Store.Driver != core.StoreREST || conf.Store.APIKey != "" {
		return nil
	}
	fmt.Fprint(out, "Enter store API key:")
	key, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(out)
	if err != nil {
		return err
	}
	if len(key) == 0 {
		return errors.New("a store API key is required")
	}
	conf.Store.APIKey = string(key)
	return nil
}

// resolveClass finds a session by name and a class by its (normalized) name & section.
func (cli *commandLine) resolveClass(ctx context.Context, sessionName, className, section string) (result.Session, result.ClassSection, error) {
	sess, err := cli.repo.FindSessionByName(ctx, core.CleanString(sessionName))
	if err != nil {
		return sess, result.ClassSection{}, errors.Wrapf(err, "session %q", sessionName)
	}
	cls, err := cli.repo.FindClass(ctx, result.NormalizeClassToken(className), core.CleanString(section))
	if err != nil {
		return sess, cls, errors.Wrapf(err, "class %q", className)
	}
	return sess, cls, nil
}
