package result

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Grades
const (
	GradeAPlus = "A+"
	GradeA     = "A"
	GradeB     = "B"
	GradeC     = "C"
	GradeD     = "D"
	GradeF     = "F"
)

var gradeLadder = []struct {
	min   float64
	grade string
}{
	{90, GradeAPlus},
	{80, GradeA},
	{70, GradeB},
	{60, GradeC},
	{50, GradeD},
}

// Grade maps a percentage onto the letter grade ladder.
func Grade(percentage float64) string {
	for _, step := range gradeLadder {
		if percentage >= step.min {
			return step.grade
		}
	}
	return GradeF
}

// Percentage is obtained/max*100 rounded to 2 decimal places, 0 when max is not positive.
func Percentage(obtained, max float64) float64 {
	if max <= 0 {
		return 0
	}
	pct := decimal.NewFromFloat(obtained).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromFloat(max)).
		Round(2)
	return pct.InexactFloat64()
}

type (
	// SubjectLine is one subject row of a student's result card.
	SubjectLine struct {
		SubjectID    string  `json:"subject_id"`
		Subject      string  `json:"subject"`
		Obtained     float64 `json:"obtained"`
		Max          float64 `json:"max"`
		PassingMarks float64 `json:"passing_marks"`
		Percentage   float64 `json:"percentage"`
		Grade        string  `json:"grade"`
		Passed       bool    `json:"passed"`
	}

	StudentSummary struct {
		Student       Student       `json:"student"`
		Subjects      []SubjectLine `json:"subjects"`
		TotalMax      float64       `json:"total_max"`
		TotalObtained float64       `json:"total_obtained"`
		Percentage    float64       `json:"percentage"`
		Grade         string        `json:"grade"`
	}

	RankedSummary struct {
		StudentSummary
		Rank     int    `json:"rank"`
		Position string `json:"position"`
	}
)

func subjectLine(subj Subject, obtained float64) SubjectLine {
	pct := Percentage(obtained, subj.MaxMarks)
	return SubjectLine{
		SubjectID:    subj.ID,
		Subject:      subj.Name,
		Obtained:     obtained,
		Max:          subj.MaxMarks,
		PassingMarks: subj.PassMark(),
		Percentage:   pct,
		Grade:        Grade(pct),
		Passed:       obtained >= subj.PassMark(),
	}
}

// ComputeStudentSummary sums a student's marks against their subjects' max marks.
// Marks whose subject is unknown are ignored. Subjects without positive max marks
// are listed but left out of the totals. Totals are rounded to 2 decimal places.
func ComputeStudentSummary(student Student, marks []Mark, subjectsByID map[string]Subject) StudentSummary {
	summary := StudentSummary{Student: student, Subjects: make([]SubjectLine, 0, len(marks))}
	totalMax, totalObtained := decimal.Zero, decimal.Zero
	for _, mark := range marks {
		subj, ok := subjectsByID[mark.SubjectID]
		if !ok {
			continue
		}
		summary.Subjects = append(summary.Subjects, subjectLine(subj, mark.ObtainedMarks))
		if subj.MaxMarks <= 0 {
			continue
		}
		totalMax = totalMax.Add(decimal.NewFromFloat(subj.MaxMarks))
		totalObtained = totalObtained.Add(decimal.NewFromFloat(mark.ObtainedMarks))
	}
	sort.SliceStable(summary.Subjects, func(i, j int) bool {
		return summary.Subjects[i].Subject < summary.Subjects[j].Subject
	})
	summary.TotalMax = totalMax.Round(2).InexactFloat64()
	summary.TotalObtained = totalObtained.Round(2).InexactFloat64()
	summary.Percentage = Percentage(summary.TotalObtained, summary.TotalMax)
	summary.Grade = Grade(summary.Percentage)
	return summary
}

// RankClass orders summaries by TotalObtained (descending) and assigns competition ranks:
// equal totals share a rank, the next lower total gets its 1-based position.
// Ties are listed by roll number. The input slice is left untouched.
func RankClass(summaries []StudentSummary) []RankedSummary {
	ranked := make([]RankedSummary, 0, len(summaries))
	for _, s := range summaries {
		ranked = append(ranked, RankedSummary{StudentSummary: s})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].TotalObtained != ranked[j].TotalObtained {
			return ranked[i].TotalObtained > ranked[j].TotalObtained
		}
		return lessRoll(ranked[i].Student.RollNumber, ranked[j].Student.RollNumber)
	})
	for i := range ranked {
		if i > 0 && ranked[i].TotalObtained == ranked[i-1].TotalObtained {
			ranked[i].Rank = ranked[i-1].Rank
		} else {
			ranked[i].Rank = i + 1
		}
		ranked[i].Position = Ordinal(ranked[i].Rank)
	}
	return ranked
}

// lessRoll compares roll numbers numerically when both are digits only ("2" < "10").
func lessRoll(a, b string) bool {
	if isDigits(a) && isDigits(b) && a != "" && b != "" {
		if len(a) != len(b) {
			return len(a) < len(b)
		}
	}
	return a < b
}
