package result

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// Tables
const (
	TableSessions = "result_sessions"
	TableClasses  = "result_classes"
	TableSubjects = "result_subjects"
	TableStudents = "result_students"
	TableMarks    = "result_marks"
)

// DefaultPassingMarks applies to subjects without passing_marks.
const DefaultPassingMarks = 33.0

type (
	// Session is one exam/test event scoping a set of marks.
	Session struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		IsActive  bool      `json:"is_active"`
		CreatedAt time.Time `json:"created_at"`
	}

	// ClassSection groups students and subjects. An empty Section is the unsectioned class.
	ClassSection struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Section string `json:"section"`
	}

	Subject struct {
		ID           string       `json:"id"`
		Name         string       `json:"name"`
		ClassID      string       `json:"class_id"`
		MaxMarks     float64      `json:"max_marks"`
		PassingMarks null.Float64 `json:"passing_marks"`
	}

	// Student is unique by RollNumber within its class.
	Student struct {
		ID         string `json:"id"`
		FullName   string `json:"full_name"`
		FatherName string `json:"father_name"`
		RollNumber string `json:"roll_number"`
		ClassID    string `json:"class_id"`
	}

	// Mark is unique by (StudentID, SubjectID, SessionID).
	Mark struct {
		ID            string  `json:"id,omitempty"`
		StudentID     string  `json:"student_id"`
		SubjectID     string  `json:"subject_id"`
		SessionID     string  `json:"session_id"`
		ObtainedMarks float64 `json:"obtained_marks"`
	}
)

// PassMark returns the subject's passing marks, or DefaultPassingMarks when unset.
func (s Subject) PassMark() float64 {
	if s.PassingMarks.Valid {
		return s.PassingMarks.Float64
	}
	return DefaultPassingMarks
}

// DisplayName is "<name>" or "<name> (<section>)".
func (c ClassSection) DisplayName() string {
	if c.Section == "" {
		return c.Name
	}
	return c.Name + " (" + c.Section + ")"
}

// NewSession contains information needed to create a new Session.
type NewSession struct {
	Name     string `json:"name" validate:"notblank,max=120"`
	IsActive *bool  `json:"is_active"`
}

// UpdateSession defines what may be changed on an existing Session.
type UpdateSession struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// Lookup identifies a single student's result.
type Lookup struct {
	SessionID  string `json:"session_id" validate:"notblank"`
	ClassID    string `json:"class_id" validate:"notblank"`
	RollNumber string `json:"roll_number" validate:"notblank"`
}
