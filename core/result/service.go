package result

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/resultportal/core"
)

// Report orderings
const (
	OrderByRank       = "rank"
	OrderByName       = "name"
	OrderByRoll       = "roll_number"
	OrderByPercentage = "percentage"
)

type (
	ClassStats struct {
		Students int     `json:"students"`
		Passed   int     `json:"passed"`
		Highest  float64 `json:"highest"`
		Lowest   float64 `json:"lowest"`
		Average  float64 `json:"average"`
	}

	ClassReport struct {
		Session Session         `json:"session"`
		Class   ClassSection    `json:"class"`
		Rows    []RankedSummary `json:"rows"`
		Stats   ClassStats      `json:"stats"`
	}

	SubjectReportRow struct {
		Student    Student `json:"student"`
		Obtained   float64 `json:"obtained"`
		Max        float64 `json:"max"`
		Percentage float64 `json:"percentage"`
		Grade      string  `json:"grade"`
		Passed     bool    `json:"passed"`
		Missing    bool    `json:"missing"`
	}

	SubjectReport struct {
		Session Session            `json:"session"`
		Class   ClassSection       `json:"class"`
		Subject Subject            `json:"subject"`
		Rows    []SubjectReportRow `json:"rows"`
	}

	// StudentResult is the self-service result card.
	StudentResult struct {
		Session Session      `json:"session"`
		Class   ClassSection `json:"class"`
		RankedSummary
		ClassSize int `json:"class_size"`
	}

	Service struct {
		repo *Repository
	}
)

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) ListSessions(ctx context.Context, active *bool) ([]Session, error) {
	sessions, err := svc.repo.ListSessions(ctx, active)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(sessions, func(i, j int) bool { return sessions[i].CreatedAt.After(sessions[j].CreatedAt) })
	return sessions, nil
}

func (svc *Service) CreateSession(ctx context.Context, ns NewSession) (Session, error) {
	name := core.CleanString(ns.Name)
	if name == "" {
		return Session{}, core.NewValidationError(nil, core.FieldError{Field: "name", Error: "this field cannot be blank"})
	}
	active := true
	if ns.IsActive != nil {
		active = *ns.IsActive
	}
	return svc.repo.CreateSession(ctx, name, active)
}

func (svc *Service) UpdateSession(ctx context.Context, id string, us UpdateSession) (Session, error) {
	if us.IsActive == nil {
		return Session{}, core.NewValidationError(nil, core.FieldError{Field: "is_active", Error: "this field is required"})
	}
	return svc.repo.SetSessionActive(ctx, id, *us.IsActive)
}

func (svc *Service) ListClasses(ctx context.Context) ([]ClassSection, error) {
	classes, err := svc.repo.ListClasses(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(classes, func(i, j int) bool { return classes[i].DisplayName() < classes[j].DisplayName() })
	return classes, nil
}

func (svc *Service) ListSubjects(ctx context.Context, classID string) ([]Subject, error) {
	if _, err := svc.repo.GetClass(ctx, classID); err != nil {
		return nil, err
	}
	subjects, err := svc.repo.ListSubjects(ctx, classID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(subjects, func(i, j int) bool { return subjects[i].Name < subjects[j].Name })
	return subjects, nil
}

// classSummaries loads the class and computes the summary of every student holding
// at least one mark in the session. Data is always re-read from the store.
func (svc *Service) classSummaries(ctx context.Context, sessionID, classID string) (Session, ClassSection, []StudentSummary, error) {
	sess, err := svc.repo.GetSession(ctx, sessionID)
	if err != nil {
		return sess, ClassSection{}, nil, errors.Wrap(err, "session")
	}
	cls, err := svc.repo.GetClass(ctx, classID)
	if err != nil {
		return sess, cls, nil, errors.Wrap(err, "class")
	}

	students, err := svc.repo.ListStudents(ctx, cls.ID)
	if err != nil {
		return sess, cls, nil, err
	}
	subjects, err := svc.repo.ListSubjects(ctx, cls.ID)
	if err != nil {
		return sess, cls, nil, err
	}
	subjectsByID := make(map[string]Subject, len(subjects))
	for _, subj := range subjects {
		subjectsByID[subj.ID] = subj
	}

	studentIDs := make([]string, 0, len(students))
	for _, std := range students {
		studentIDs = append(studentIDs, std.ID)
	}
	marks, err := svc.repo.ListMarks(ctx, sess.ID, studentIDs)
	if err != nil {
		return sess, cls, nil, err
	}
	marksByStudent := make(map[string][]Mark, len(students))
	for _, m := range marks {
		marksByStudent[m.StudentID] = append(marksByStudent[m.StudentID], m)
	}

	summaries := make([]StudentSummary, 0, len(students))
	for _, std := range students {
		if stdMarks, ok := marksByStudent[std.ID]; ok {
			summaries = append(summaries, ComputeStudentSummary(std, stdMarks, subjectsByID))
		}
	}
	return sess, cls, summaries, nil
}

// ClassReport ranks every student of the class with marks in the session.
// Rows come in rank order unless orderings say otherwise (see OrderBy*).
func (svc *Service) ClassReport(ctx context.Context, sessionID, classID string, orderings ...core.Ordering) (ClassReport, error) {
	if err := checkOrderings(orderings); err != nil {
		return ClassReport{}, err
	}
	sess, cls, summaries, err := svc.classSummaries(ctx, sessionID, classID)
	if err != nil {
		return ClassReport{}, err
	}
	rows := RankClass(summaries)
	orderRows(rows, orderings)
	return ClassReport{
		Session: sess,
		Class:   cls,
		Rows:    rows,
		Stats:   computeStats(rows),
	}, nil
}

// SubjectReport lists every student of the subject's class, flagging those without a mark in the session.
func (svc *Service) SubjectReport(ctx context.Context, sessionID, subjectID string) (SubjectReport, error) {
	var report SubjectReport
	sess, err := svc.repo.GetSession(ctx, sessionID)
	if err != nil {
		return report, errors.Wrap(err, "session")
	}
	subj, err := svc.repo.GetSubject(ctx, subjectID)
	if err != nil {
		return report, errors.Wrap(err, "subject")
	}
	cls, err := svc.repo.GetClass(ctx, subj.ClassID)
	if err != nil {
		return report, errors.Wrap(err, "class")
	}
	students, err := svc.repo.ListStudents(ctx, cls.ID)
	if err != nil {
		return report, err
	}
	marks, err := svc.repo.ListSubjectMarks(ctx, sess.ID, subj.ID)
	if err != nil {
		return report, err
	}
	obtained := make(map[string]float64, len(marks))
	for _, m := range marks {
		obtained[m.StudentID] = m.ObtainedMarks
	}

	sort.SliceStable(students, func(i, j int) bool { return lessRoll(students[i].RollNumber, students[j].RollNumber) })
	rows := make([]SubjectReportRow, 0, len(students))
	for _, std := range students {
		row := SubjectReportRow{Student: std, Max: subj.MaxMarks}
		if value, ok := obtained[std.ID]; ok {
			line := subjectLine(subj, value)
			row.Obtained = value
			row.Percentage = line.Percentage
			row.Grade = line.Grade
			row.Passed = line.Passed
		} else {
			row.Missing = true
		}
		rows = append(rows, row)
	}

	report.Session, report.Class, report.Subject, report.Rows = sess, cls, subj, rows
	return report, nil
}

// LookupStudent is the self-service path. The rank is computed over the whole class on every call.
func (svc *Service) LookupStudent(ctx context.Context, lkp Lookup) (StudentResult, error) {
	var res StudentResult
	roll := core.CleanString(lkp.RollNumber)

	sess, err := svc.repo.GetSession(ctx, lkp.SessionID)
	if err != nil {
		return res, errors.Wrap(err, "session")
	}
	std, err := svc.repo.FindStudentByRoll(ctx, lkp.ClassID, roll)
	if err != nil {
		if err == ErrNotFound {
			return res, ErrStudentNotFound
		}
		return res, err
	}
	own, err := svc.repo.ListMarks(ctx, sess.ID, []string{std.ID})
	if err != nil {
		return res, err
	}
	if len(own) == 0 {
		return res, ErrNoMarks
	}

	sess, cls, summaries, err := svc.classSummaries(ctx, sess.ID, std.ClassID)
	if err != nil {
		return res, err
	}
	for _, row := range RankClass(summaries) {
		if row.Student.ID == std.ID {
			res.Session, res.Class, res.RankedSummary, res.ClassSize = sess, cls, row, len(summaries)
			return res, nil
		}
	}
	// marks were removed between the two reads
	return res, ErrNoMarks
}

func checkOrderings(orderings []core.Ordering) error {
	for _, ord := range orderings {
		switch ord.Field {
		case OrderByRank, OrderByName, OrderByRoll, OrderByPercentage:
		default:
			return core.NewValidationError(nil, core.FieldError{
				Field: "ordering",
				Error: "unknown ordering field " + ord.Field,
			})
		}
	}
	return nil
}

func orderRows(rows []RankedSummary, orderings []core.Ordering) {
	if len(orderings) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, ord := range orderings {
			cmp := compareRows(rows[i], rows[j], ord.Field)
			if cmp == 0 {
				continue
			}
			if ord.Ascending {
				return cmp < 0
			}
			return cmp > 0
		}
		return false
	})
}

func compareRows(a, b RankedSummary, field string) int {
	switch field {
	case OrderByName:
		return strings.Compare(strings.ToLower(a.Student.FullName), strings.ToLower(b.Student.FullName))
	case OrderByRoll:
		if lessRoll(a.Student.RollNumber, b.Student.RollNumber) {
			return -1
		} else if lessRoll(b.Student.RollNumber, a.Student.RollNumber) {
			return 1
		}
		return 0
	case OrderByPercentage:
		return compareFloats(a.Percentage, b.Percentage)
	default:
		return a.Rank - b.Rank
	}
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func computeStats(rows []RankedSummary) ClassStats {
	stats := ClassStats{Students: len(rows)}
	if len(rows) == 0 {
		return stats
	}
	sum := decimal.Zero
	stats.Highest, stats.Lowest = rows[0].Percentage, rows[0].Percentage
	for _, row := range rows {
		if row.Percentage > stats.Highest {
			stats.Highest = row.Percentage
		}
		if row.Percentage < stats.Lowest {
			stats.Lowest = row.Percentage
		}
		if row.Grade != GradeF {
			stats.Passed++
		}
		sum = sum.Add(decimal.NewFromFloat(row.Percentage))
	}
	stats.Average = sum.Div(decimal.NewFromInt(int64(len(rows)))).Round(2).InexactFloat64()
	return stats
}
