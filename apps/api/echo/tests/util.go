package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/resultportal/apps/api/echo"
	"github.com/trezcool/resultportal/core"
	"github.com/trezcool/resultportal/core/importer"
	"github.com/trezcool/resultportal/core/result"
	"github.com/trezcool/resultportal/tests"
)

var (
	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
)

type env struct {
	app  Server
	conf *core.Config
	repo *result.Repository
	log  *logSpy
}

// logSpy records the messages logged at error level.
type logSpy struct {
	core.Logger
	mu     sync.Mutex
	errors []string
}

func (l *logSpy) Error(msg string, args ...interface{}) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
	l.Logger.Error(msg, args...)
}

func (l *logSpy) count(msg string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, m := range l.errors {
		if m == msg {
			n++
		}
	}
	return n
}

func setup(t *testing.T, store ...core.TabularStore) env {
	conf := testutil.NewConfig()
	logger := &logSpy{Logger: testutil.NewLogger()}
	core.ParseEmailTemplates(logger)

	var db core.TabularStore
	if len(store) > 0 {
		db = store[0]
	} else {
		db = testutil.NewStore(t)
	}
	repo := result.NewRepository(db)
	validate, translator := testutil.NewValidator()

	app := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		ResultSvc:      result.NewService(repo),
		ImportSvc:      importer.NewService(repo, logger, nil, nil, conf.FrontendBaseURL),
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})
	return env{app: app, conf: conf, repo: repo, log: logger}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// newUploadRequest posts content as the multipart `file` field.
func newUploadRequest(t *testing.T, path, token, filename string, content []byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile() failed: %v", err)
	}
	if _, err = part.Write(content); err != nil {
		t.Fatalf("part.Write() failed: %v", err)
	}
	if err = w.Close(); err != nil {
		t.Fatalf("w.Close() failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}

func getToken(t *testing.T, conf *core.Config, claims Claims) string {
	if claims.Subject == "" {
		claims.Subject = "op-" + claims.Username
	}
	token, err := GenerateToken(conf.SecretKey, &claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func adminToken(t *testing.T, conf *core.Config) string {
	return getToken(t, conf, Claims{Username: "admin", Email: "admin@school.test", IsAdmin: true})
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func unmarchall(t *testing.T, rec *httptest.ResponseRecorder, obj interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), obj); err != nil {
		t.Fatalf("unmarchall() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	assert.Equal(t, tt.wantCode, rec.Code, "code")
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

// flakyStore fails every marks upsert after the first `healthy` ones.
type flakyStore struct {
	core.TabularStore
	mu      sync.Mutex
	healthy int
}

func (s *flakyStore) Upsert(ctx context.Context, table string, records []core.Record, conflictColumns ...string) ([]core.Record, error) {
	if table == result.TableMarks {
		s.mu.Lock()
		s.healthy--
		down := s.healthy < 0
		s.mu.Unlock()
		if down {
			return nil, errors.New("connection reset by peer")
		}
	}
	return s.TabularStore.Upsert(ctx, table, records, conflictColumns...)
}

// brokenStore reports a missing schema on every read.
type brokenStore struct {
	core.TabularStore
}

func (s brokenStore) Fetch(context.Context, string, ...core.Filter) ([]core.Record, error) {
	return nil, core.NewShutdownError("database schema is missing; run migrations")
}
