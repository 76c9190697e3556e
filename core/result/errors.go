package result

import "errors"

var (
	ErrNotFound        = errors.New("record not found")
	ErrStudentNotFound = errors.New("no student with this roll number in the selected class")
	ErrNoMarks         = errors.New("results for this student have not been published for the selected session")
)
