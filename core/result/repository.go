package result

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/resultportal/core"
)

// Repository reads and writes result entities through a core.TabularStore.
type Repository struct {
	store core.TabularStore
}

func NewRepository(store core.TabularStore) *Repository {
	return &Repository{store: store}
}

// decode converts store records into entities.
func decode(recs []core.Record, dest interface{}) error {
	data, err := json.Marshal(recs)
	if err != nil {
		return errors.Wrap(err, "json.Marshal")
	}
	return errors.Wrap(json.Unmarshal(data, dest), "json.Unmarshal")
}

func decodeOne(rec core.Record, dest interface{}) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "json.Marshal")
	}
	return errors.Wrap(json.Unmarshal(data, dest), "json.Unmarshal")
}

func firstOrNotFound(recs []core.Record, dest interface{}) error {
	if len(recs) == 0 {
		return ErrNotFound
	}
	return decodeOne(recs[0], dest)
}

func notFound(err error) error {
	if errors.Cause(err) == core.ErrRecordNotFound {
		return ErrNotFound
	}
	return err
}

// Sessions

func (repo *Repository) ListSessions(ctx context.Context, active *bool) ([]Session, error) {
	var filters []core.Filter
	if active != nil {
		filters = append(filters, core.Eq("is_active", *active))
	}
	recs, err := repo.store.Fetch(ctx, TableSessions, filters...)
	if err != nil {
		return nil, errors.Wrap(err, "fetching sessions")
	}
	var sessions []Session
	return sessions, decode(recs, &sessions)
}

func (repo *Repository) GetSession(ctx context.Context, id string) (Session, error) {
	var sess Session
	recs, err := repo.store.Fetch(ctx, TableSessions, core.Eq("id", id))
	if err != nil {
		return sess, errors.Wrap(err, "fetching session")
	}
	return sess, firstOrNotFound(recs, &sess)
}

// FindSessionByName matches the name exactly.
func (repo *Repository) FindSessionByName(ctx context.Context, name string) (Session, error) {
	var sess Session
	recs, err := repo.store.Fetch(ctx, TableSessions, core.Eq("name", name))
	if err != nil {
		return sess, errors.Wrap(err, "fetching session")
	}
	return sess, firstOrNotFound(recs, &sess)
}

func (repo *Repository) CreateSession(ctx context.Context, name string, active bool) (Session, error) {
	var sess Session
	recs, err := repo.store.Insert(ctx, TableSessions, core.Record{
		"name":       name,
		"is_active":  active,
		"created_at": time.Now().UTC(),
	})
	if err != nil {
		return sess, errors.Wrap(err, "inserting session")
	}
	return sess, firstOrNotFound(recs, &sess)
}

func (repo *Repository) SetSessionActive(ctx context.Context, id string, active bool) (Session, error) {
	var sess Session
	rec, err := repo.store.Update(ctx, TableSessions, id, core.Record{"is_active": active})
	if err != nil {
		return sess, errors.Wrap(notFound(err), "updating session")
	}
	return sess, decodeOne(rec, &sess)
}

// Classes

func (repo *Repository) ListClasses(ctx context.Context) ([]ClassSection, error) {
	recs, err := repo.store.Fetch(ctx, TableClasses)
	if err != nil {
		return nil, errors.Wrap(err, "fetching classes")
	}
	var classes []ClassSection
	return classes, decode(recs, &classes)
}

func (repo *Repository) GetClass(ctx context.Context, id string) (ClassSection, error) {
	var cls ClassSection
	recs, err := repo.store.Fetch(ctx, TableClasses, core.Eq("id", id))
	if err != nil {
		return cls, errors.Wrap(err, "fetching class")
	}
	return cls, firstOrNotFound(recs, &cls)
}

func (repo *Repository) FindClass(ctx context.Context, name, section string) (ClassSection, error) {
	var cls ClassSection
	recs, err := repo.store.Fetch(ctx, TableClasses, core.Eq("name", name), core.Eq("section", section))
	if err != nil {
		return cls, errors.Wrap(err, "fetching class")
	}
	return cls, firstOrNotFound(recs, &cls)
}

func (repo *Repository) CreateClass(ctx context.Context, name, section string) (ClassSection, error) {
	var cls ClassSection
	recs, err := repo.store.Insert(ctx, TableClasses, core.Record{"name": name, "section": section})
	if err != nil {
		return cls, errors.Wrap(err, "inserting class")
	}
	return cls, firstOrNotFound(recs, &cls)
}

// Subjects

func (repo *Repository) ListSubjects(ctx context.Context, classID string) ([]Subject, error) {
	recs, err := repo.store.Fetch(ctx, TableSubjects, core.Eq("class_id", classID))
	if err != nil {
		return nil, errors.Wrap(err, "fetching subjects")
	}
	var subjects []Subject
	return subjects, decode(recs, &subjects)
}

func (repo *Repository) GetSubject(ctx context.Context, id string) (Subject, error) {
	var subj Subject
	recs, err := repo.store.Fetch(ctx, TableSubjects, core.Eq("id", id))
	if err != nil {
		return subj, errors.Wrap(err, "fetching subject")
	}
	return subj, firstOrNotFound(recs, &subj)
}

func (repo *Repository) CreateSubject(ctx context.Context, name, classID string, maxMarks float64) (Subject, error) {
	var subj Subject
	recs, err := repo.store.Insert(ctx, TableSubjects, core.Record{
		"name":      name,
		"class_id":  classID,
		"max_marks": maxMarks,
	})
	if err != nil {
		return subj, errors.Wrap(err, "inserting subject")
	}
	return subj, firstOrNotFound(recs, &subj)
}

func (repo *Repository) UpdateSubjectMaxMarks(ctx context.Context, id string, maxMarks float64) (Subject, error) {
	var subj Subject
	rec, err := repo.store.Update(ctx, TableSubjects, id, core.Record{"max_marks": maxMarks})
	if err != nil {
		return subj, errors.Wrap(notFound(err), "updating subject")
	}
	return subj, decodeOne(rec, &subj)
}

// Students

func (repo *Repository) ListStudents(ctx context.Context, classID string) ([]Student, error) {
	recs, err := repo.store.Fetch(ctx, TableStudents, core.Eq("class_id", classID))
	if err != nil {
		return nil, errors.Wrap(err, "fetching students")
	}
	var students []Student
	return students, decode(recs, &students)
}

func (repo *Repository) FindStudentByRoll(ctx context.Context, classID, roll string) (Student, error) {
	var std Student
	recs, err := repo.store.Fetch(ctx, TableStudents, core.Eq("class_id", classID), core.Eq("roll_number", roll))
	if err != nil {
		return std, errors.Wrap(err, "fetching student")
	}
	return std, firstOrNotFound(recs, &std)
}

func (repo *Repository) CreateStudents(ctx context.Context, students ...Student) error {
	if len(students) == 0 {
		return nil
	}
	recs := make([]core.Record, 0, len(students))
	for _, std := range students {
		recs = append(recs, core.Record{
			"full_name":   std.FullName,
			"father_name": std.FatherName,
			"roll_number": std.RollNumber,
			"class_id":    std.ClassID,
		})
	}
	_, err := repo.store.Insert(ctx, TableStudents, recs...)
	return errors.Wrap(err, "inserting students")
}

func (repo *Repository) UpdateStudentNames(ctx context.Context, id, fullName, fatherName string) error {
	_, err := repo.store.Update(ctx, TableStudents, id, core.Record{
		"full_name":   fullName,
		"father_name": fatherName,
	})
	return errors.Wrap(notFound(err), "updating student")
}

// Marks

// ListMarks returns the session's marks of the given students.
func (repo *Repository) ListMarks(ctx context.Context, sessionID string, studentIDs []string) ([]Mark, error) {
	if len(studentIDs) == 0 {
		return []Mark{}, nil
	}
	recs, err := repo.store.Fetch(ctx, TableMarks, core.Eq("session_id", sessionID), core.InStrings("student_id", studentIDs))
	if err != nil {
		return nil, errors.Wrap(err, "fetching marks")
	}
	var marks []Mark
	return marks, decode(recs, &marks)
}

func (repo *Repository) ListSubjectMarks(ctx context.Context, sessionID, subjectID string) ([]Mark, error) {
	recs, err := repo.store.Fetch(ctx, TableMarks, core.Eq("session_id", sessionID), core.Eq("subject_id", subjectID))
	if err != nil {
		return nil, errors.Wrap(err, "fetching marks")
	}
	var marks []Mark
	return marks, decode(recs, &marks)
}

// UpsertMarks writes marks in one batch, overwriting existing (student, subject, session) values.
func (repo *Repository) UpsertMarks(ctx context.Context, marks []Mark) error {
	if len(marks) == 0 {
		return nil
	}
	recs := make([]core.Record, 0, len(marks))
	for _, m := range marks {
		recs = append(recs, core.Record{
			"student_id":     m.StudentID,
			"subject_id":     m.SubjectID,
			"session_id":     m.SessionID,
			"obtained_marks": m.ObtainedMarks,
		})
	}
	_, err := repo.store.Upsert(ctx, TableMarks, recs, "student_id", "subject_id", "session_id")
	return errors.Wrap(err, "upserting marks")
}
