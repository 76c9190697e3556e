package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/resultportal/core"
	"github.com/trezcool/resultportal/core/result"
)

const reportSheet = "Report"

func (cli *commandLine) report(ctx context.Context, sessionName, className, section, ordering, xlsxPath string) error {
	sess, cls, err := cli.resolveClass(ctx, sessionName, className, section)
	if err != nil {
		return err
	}
	report, err := cli.resultSvc.ClassReport(ctx, sess.ID, cls.ID, core.ParseOrderings(ordering)...)
	if err != nil {
		return err
	}

	fmt.Fprintf(cli.out, "%s - %s\n", report.Session.Name, report.Class.DisplayName())
	tw := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "POSITION\tROLL\tNAME\tTOTAL\tPERCENTAGE\tGRADE")
	for _, row := range report.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%g/%g\t%.2f\t%s\n",
			row.Position, row.Student.RollNumber, row.Student.FullName,
			row.TotalObtained, row.TotalMax, row.Percentage, row.Grade)
	}
	if err = tw.Flush(); err != nil {
		return err
	}
	st := report.Stats
	fmt.Fprintf(cli.out, "students: %d, passed: %d, highest: %.2f, lowest: %.2f, average: %.2f\n",
		st.Students, st.Passed, st.Highest, st.Lowest, st.Average)

	if xlsxPath == "" {
		return nil
	}
	return errors.Wrap(writeReportXLSX(report, xlsxPath), "writing "+xlsxPath)
}

// writeReportXLSX saves the class report as a single sheet workbook, one column per subject.
func writeReportXLSX(report result.ClassReport, path string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName(f.GetSheetName(0), reportSheet); err != nil {
		return err
	}

	// subjects in order of first appearance
	var subjects []string
	seen := make(map[string]bool)
	for _, row := range report.Rows {
		for _, line := range row.Subjects {
			if !seen[line.Subject] {
				seen[line.Subject] = true
				subjects = append(subjects, line.Subject)
			}
		}
	}

	header := []interface{}{"Position", "Roll", "Name", "Father Name"}
	for _, subj := range subjects {
		header = append(header, subj)
	}
	header = append(header, "Total", "Max", "Percentage", "Grade")
	if err := setRow(f, 1, header); err != nil {
		return err
	}

	for i, row := range report.Rows {
		obtained := make(map[string]float64, len(row.Subjects))
		for _, line := range row.Subjects {
			obtained[line.Subject] = line.Obtained
		}
		values := []interface{}{row.Position, row.Student.RollNumber, row.Student.FullName, row.Student.FatherName}
		for _, subj := range subjects {
			if v, ok := obtained[subj]; ok {
				values = append(values, v)
			} else {
				values = append(values, "")
			}
		}
		values = append(values, row.TotalObtained, row.TotalMax, row.Percentage, row.Grade)
		if err := setRow(f, i+2, values); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

func setRow(f *excelize.File, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(reportSheet, cell, &values)
}
