package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/resultportal/core"
	"github.com/trezcool/resultportal/core/result"
)

type (
	ClassResult struct {
		ClassID         string `json:"class_id"`
		ClassName       string `json:"class_name"`
		SubjectsCreated int    `json:"subjects_created"`
		SubjectsUpdated int    `json:"subjects_updated"`
		StudentsCreated int    `json:"students_created"`
		StudentsUpdated int    `json:"students_updated"`
		MarksUpserted   int    `json:"marks_upserted"`
	}

	Result struct {
		SessionID   string        `json:"session_id"`
		SessionName string        `json:"session_name"`
		Classes     []ClassResult `json:"classes"`
		Warnings    []string      `json:"warnings"`
	}

	classGroup struct {
		name string
		rows []StudentRow
	}

	// Reconciler writes review sheets into the result tables.
	Reconciler struct {
		repo *result.Repository
	}
)

func NewReconciler(repo *result.Repository) *Reconciler {
	return &Reconciler{repo: repo}
}

// Reconcile commits the sheet into sessionName, one class at a time:
// find-or-create the class, its subjects and students, then upsert every mark.
// Nothing spans classes; a failure returns a *PartialCommitError naming what is already saved.
// Re-running the same sheet updates records in place.
func (rc *Reconciler) Reconcile(ctx context.Context, sheet Sheet, sessionName string) (Result, error) {
	res := Result{SessionName: core.CleanString(sessionName), Classes: make([]ClassResult, 0), Warnings: make([]string, 0)}
	if res.SessionName == "" {
		return res, core.NewValidationError(nil, core.FieldError{Field: "session_name", Error: "this field cannot be blank"})
	}
	if err := checkSheet(sheet); err != nil {
		return res, err
	}

	groups, warnings := groupByClass(sheet.Rows)
	res.Warnings = append(res.Warnings, warnings...)
	if len(groups) == 0 {
		return res, core.NewValidationError(nil, core.FieldError{Field: "rows", Error: "no row has a roll number, a name and a class"})
	}

	sess, err := rc.findOrCreateSession(ctx, res.SessionName)
	if err != nil {
		return res, errors.Wrap(err, "resolving session")
	}
	res.SessionID = sess.ID

	committed := make([]string, 0, len(groups))
	for _, group := range groups {
		clsRes, err := rc.reconcileClass(ctx, sess.ID, sheet.Subjects, group)
		if err != nil {
			return res, &PartialCommitError{Committed: committed, Failed: group.name, Err: err}
		}
		res.Classes = append(res.Classes, clsRes)
		committed = append(committed, group.name)
	}
	return res, nil
}

func checkSheet(sheet Sheet) error {
	for i, row := range sheet.Rows {
		if len(row.Marks) > len(sheet.Subjects) {
			return core.NewValidationError(nil, core.FieldError{
				Field: fmt.Sprintf("rows[%d].marks", i),
				Error: "has more marks than subjects",
			})
		}
	}
	for i, subj := range sheet.Subjects {
		if core.CleanString(subj.Name) == "" {
			return core.NewValidationError(nil, core.FieldError{Field: fmt.Sprintf("subjects[%d].name", i), Error: "this field cannot be blank"})
		}
	}
	return nil
}

// groupByClass groups usable rows by normalized class name, in order of first appearance.
// Within a class the last row of a roll number wins.
func groupByClass(rows []StudentRow) ([]classGroup, []string) {
	var (
		groups   []classGroup
		warnings []string
		byName   = make(map[string]int)
		byRoll   = make(map[string]map[string]int)
	)
	for i, row := range rows {
		row.RollNumber = core.CleanString(row.RollNumber)
		row.FullName = core.CleanString(row.FullName)
		row.FatherName = core.CleanString(row.FatherName)
		row.ClassName = result.NormalizeClassToken(row.ClassName)

		switch {
		case row.RollNumber == "" || row.FullName == "":
			warnings = append(warnings, fmt.Sprintf("row %d skipped: missing roll number or name", i+1))
			continue
		case row.ClassName == "":
			warnings = append(warnings, fmt.Sprintf("row %d skipped: missing class", i+1))
			continue
		}

		gi, ok := byName[row.ClassName]
		if !ok {
			gi = len(groups)
			byName[row.ClassName] = gi
			byRoll[row.ClassName] = make(map[string]int)
			groups = append(groups, classGroup{name: row.ClassName})
		}
		if ri, dup := byRoll[row.ClassName][row.RollNumber]; dup {
			warnings = append(warnings, fmt.Sprintf("row %d: roll number %s appears more than once in class %s, the last row is kept", i+1, row.RollNumber, row.ClassName))
			groups[gi].rows[ri] = row
			continue
		}
		byRoll[row.ClassName][row.RollNumber] = len(groups[gi].rows)
		groups[gi].rows = append(groups[gi].rows, row)
	}
	return groups, warnings
}

func (rc *Reconciler) findOrCreateSession(ctx context.Context, name string) (result.Session, error) {
	sess, err := rc.repo.FindSessionByName(ctx, name)
	if err == nil || errors.Cause(err) != result.ErrNotFound {
		return sess, err
	}
	return rc.repo.CreateSession(ctx, name, true)
}

func (rc *Reconciler) findOrCreateClass(ctx context.Context, name string) (result.ClassSection, error) {
	cls, err := rc.repo.FindClass(ctx, name, "")
	if err == nil || errors.Cause(err) != result.ErrNotFound {
		return cls, err
	}
	return rc.repo.CreateClass(ctx, name, "")
}

func (rc *Reconciler) reconcileClass(ctx context.Context, sessionID string, columns []SubjectColumn, group classGroup) (ClassResult, error) {
	clsRes := ClassResult{ClassName: group.name}

	cls, err := rc.findOrCreateClass(ctx, group.name)
	if err != nil {
		return clsRes, errors.Wrap(err, "class")
	}
	clsRes.ClassID = cls.ID

	subjectIDs, err := rc.reconcileSubjects(ctx, cls.ID, columns, &clsRes)
	if err != nil {
		return clsRes, errors.Wrap(err, "subjects")
	}
	studentIDs, err := rc.reconcileStudents(ctx, cls.ID, group.rows, &clsRes)
	if err != nil {
		return clsRes, errors.Wrap(err, "students")
	}

	marks := make([]result.Mark, 0, len(group.rows)*len(subjectIDs))
	seen := make(map[[2]string]int, cap(marks)) // {student id, subject id}: index in marks
	for _, row := range group.rows {
		studentID, ok := studentIDs[row.RollNumber]
		if !ok {
			return clsRes, errors.Errorf("student %s was not saved", row.RollNumber)
		}
		for i, subjectID := range subjectIDs {
			var value string
			if i < len(row.Marks) {
				value = row.Marks[i]
			}
			mark := result.Mark{
				StudentID:     studentID,
				SubjectID:     subjectID,
				SessionID:     sessionID,
				ObtainedMarks: ParseObtained(value),
			}
			// two columns with the same subject name: the last one wins
			key := [2]string{studentID, subjectID}
			if idx, dup := seen[key]; dup {
				marks[idx] = mark
				continue
			}
			seen[key] = len(marks)
			marks = append(marks, mark)
		}
	}
	if err := rc.repo.UpsertMarks(ctx, marks); err != nil {
		return clsRes, errors.Wrap(err, "marks")
	}
	clsRes.MarksUpserted = len(marks)
	return clsRes, nil
}

// reconcileSubjects returns the subject id of every column, matching existing subjects case-insensitively.
func (rc *Reconciler) reconcileSubjects(ctx context.Context, classID string, columns []SubjectColumn, clsRes *ClassResult) ([]string, error) {
	existing, err := rc.repo.ListSubjects(ctx, classID)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]result.Subject, len(existing))
	for _, subj := range existing {
		key := core.CleanString(subj.Name, true /* lower */)
		if _, ok := byName[key]; !ok {
			byName[key] = subj
		}
	}

	ids := make([]string, 0, len(columns))
	for _, col := range columns {
		name := core.CleanString(col.Name)
		key := strings.ToLower(name)
		subj, ok := byName[key]
		switch {
		case !ok:
			if subj, err = rc.repo.CreateSubject(ctx, name, classID, col.MaxMarks); err != nil {
				return nil, err
			}
			clsRes.SubjectsCreated++
		case subj.MaxMarks != col.MaxMarks:
			if subj, err = rc.repo.UpdateSubjectMaxMarks(ctx, subj.ID, col.MaxMarks); err != nil {
				return nil, err
			}
			clsRes.SubjectsUpdated++
		}
		byName[key] = subj
		ids = append(ids, subj.ID)
	}
	return ids, nil
}

// reconcileStudents upserts students by roll number, then re-reads the class to map roll numbers to ids.
func (rc *Reconciler) reconcileStudents(ctx context.Context, classID string, rows []StudentRow, clsRes *ClassResult) (map[string]string, error) {
	existing, err := rc.repo.ListStudents(ctx, classID)
	if err != nil {
		return nil, err
	}
	byRoll := make(map[string]result.Student, len(existing))
	for _, std := range existing {
		byRoll[std.RollNumber] = std
	}

	var newStudents []result.Student
	for _, row := range rows {
		std, ok := byRoll[row.RollNumber]
		if !ok {
			newStudents = append(newStudents, result.Student{
				FullName:   row.FullName,
				FatherName: row.FatherName,
				RollNumber: row.RollNumber,
				ClassID:    classID,
			})
			continue
		}
		if std.FullName != row.FullName || std.FatherName != row.FatherName {
			if err := rc.repo.UpdateStudentNames(ctx, std.ID, row.FullName, row.FatherName); err != nil {
				return nil, err
			}
			clsRes.StudentsUpdated++
		}
	}
	if err := rc.repo.CreateStudents(ctx, newStudents...); err != nil {
		return nil, err
	}
	clsRes.StudentsCreated = len(newStudents)

	students, err := rc.repo.ListStudents(ctx, classID)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]string, len(students))
	for _, std := range students {
		ids[std.RollNumber] = std.ID
	}
	return ids, nil
}
