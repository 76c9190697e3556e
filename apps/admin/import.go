package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/trezcool/resultportal/core"
)

var cliOperator = &core.Operator{ID: "cli", Username: "admin-cli"}

// importFile previews a spreadsheet and, unless dryRun, commits it into the session.
func (cli *commandLine) importFile(ctx context.Context, path, sessionName string, dryRun bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "reading spreadsheet")
	}

	sheet, err := cli.importSvc.Preview(data, filepath.Base(path))
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%d subject(s), %d row(s)\n", len(sheet.Subjects), len(sheet.Rows))
	for _, subj := range sheet.Subjects {
		fmt.Fprintf(cli.out, "  %s (max %g)\n", subj.Name, subj.MaxMarks)
	}
	for _, w := range sheet.Warnings {
		fmt.Fprintln(cli.out, "warning:", w)
	}
	if dryRun {
		return nil
	}

	res, err := cli.importSvc.Import(ctx, sheet, sessionName, cliOperator)
	for _, cls := range res.Classes {
		fmt.Fprintf(cli.out, "class %s: %d new / %d updated students, %d new / %d updated subjects, %d marks\n",
			cls.ClassName, cls.StudentsCreated, cls.StudentsUpdated, cls.SubjectsCreated, cls.SubjectsUpdated, cls.MarksUpserted)
	}
	for _, w := range res.Warnings {
		fmt.Fprintln(cli.out, "warning:", w)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "imported into session %q\n", res.SessionName)
	return nil
}
