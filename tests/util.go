package testutil

import (
	"context"
	"io"
	"log"
	"testing"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/resultportal/core"
	"github.com/trezcool/resultportal/core/result"
	logsvc "github.com/trezcool/resultportal/services/logger"
	dummydb "github.com/trezcool/resultportal/storage/database/dummy"
)

// NewConfig returns a test configuration backed by the in-memory store.
func NewConfig() *core.Config {
	return &core.Config{
		Env:             "TEST",
		TestMode:        true,
		AppName:         "Result Portal",
		SecretKey:       "test-secret",
		FrontendBaseURL: "http://portal.test",
		Store:           core.StoreConfig{Driver: core.StoreMemory},
		Import:          core.ImportConfig{MaxUploadSize: 1 << 20},
	}
}

// NewLogger returns a silent logger that never reports to Rollbar.
func NewLogger() core.Logger {
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), NewConfig())
	logger.Enable(false)
	return logger
}

// NewStore opens a fresh in-memory store.
func NewStore(t *testing.T) *dummydb.DB {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	return db
}

func CreateSession(t *testing.T, repo *result.Repository, name string) result.Session {
	sess, err := repo.CreateSession(context.Background(), name, true)
	if err != nil {
		t.Fatalf("createSession() failed: %v", err)
	}
	return sess
}

func CreateClass(t *testing.T, repo *result.Repository, name, section string) result.ClassSection {
	cls, err := repo.CreateClass(context.Background(), name, section)
	if err != nil {
		t.Fatalf("createClass() failed: %v", err)
	}
	return cls
}

func CreateSubject(t *testing.T, repo *result.Repository, classID, name string, maxMarks float64) result.Subject {
	subj, err := repo.CreateSubject(context.Background(), name, classID, maxMarks)
	if err != nil {
		t.Fatalf("createSubject() failed: %v", err)
	}
	return subj
}

func CreateStudent(t *testing.T, repo *result.Repository, classID, roll, name string) result.Student {
	ctx := context.Background()
	if err := repo.CreateStudents(ctx, result.Student{FullName: name, RollNumber: roll, ClassID: classID}); err != nil {
		t.Fatalf("createStudent() failed: %v", err)
	}
	std, err := repo.FindStudentByRoll(ctx, classID, roll)
	if err != nil {
		t.Fatalf("createStudent() failed: %v", err)
	}
	return std
}

// SetMarks upserts obtained marks for one student, keyed by subject id.
func SetMarks(t *testing.T, repo *result.Repository, sessionID, studentID string, obtained map[string]float64) {
	marks := make([]result.Mark, 0, len(obtained))
	for subjectID, value := range obtained {
		marks = append(marks, result.Mark{
			StudentID:     studentID,
			SubjectID:     subjectID,
			SessionID:     sessionID,
			ObtainedMarks: value,
		})
	}
	if err := repo.UpsertMarks(context.Background(), marks); err != nil {
		t.Fatalf("setMarks() failed: %v", err)
	}
}

// NewValidator returns a validator set up the way the apps set it up.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	return validate, translator
}
