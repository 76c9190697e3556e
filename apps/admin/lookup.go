package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/trezcool/resultportal/core/result"
)

func (cli *commandLine) lookup(ctx context.Context, sessionName, className, section, roll string) error {
	sess, cls, err := cli.resolveClass(ctx, sessionName, className, section)
	if err != nil {
		return err
	}
	res, err := cli.resultSvc.LookupStudent(ctx, result.Lookup{SessionID: sess.ID, ClassID: cls.ID, RollNumber: roll})
	if err != nil {
		return err
	}

	std := res.Student
	fmt.Fprintf(cli.out, "%s (roll %s)\n", std.FullName, std.RollNumber)
	fmt.Fprintf(cli.out, "%s - %s\n", res.Session.Name, res.Class.DisplayName())

	tw := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SUBJECT\tOBTAINED\tMAX\tGRADE\tSTATUS")
	for _, line := range res.Subjects {
		status := "pass"
		if !line.Passed {
			status = "fail"
		}
		fmt.Fprintf(tw, "%s\t%g\t%g\t%s\t%s\n", line.Subject, line.Obtained, line.Max, line.Grade, status)
	}
	if err = tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "total: %g/%g, percentage: %.2f, grade: %s, position: %s of %d\n",
		res.TotalObtained, res.TotalMax, res.Percentage, res.Grade, res.Position, res.ClassSize)
	return nil
}
