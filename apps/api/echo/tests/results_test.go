package tests

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/resultportal/apps/api/echo"
	"github.com/trezcool/resultportal/core/result"
	"github.com/trezcool/resultportal/tests"
)

type fixture struct {
	env
	session  result.Session
	class    result.ClassSection
	physics  result.Subject
	ali      result.Student
	sara     result.Student
	zain     result.Student
	adminTok string
}

// newFixture seeds one class of three students; Zain has no marks.
func newFixture(t *testing.T) fixture {
	e := setup(t)
	f := fixture{env: e, adminTok: adminToken(t, e.conf)}
	f.session = testutil.CreateSession(t, e.repo, "Mid Term")
	f.class = testutil.CreateClass(t, e.repo, "9th", "")
	f.physics = testutil.CreateSubject(t, e.repo, f.class.ID, "Physics", 100)
	chemistry := testutil.CreateSubject(t, e.repo, f.class.ID, "Chemistry", 100)
	f.ali = testutil.CreateStudent(t, e.repo, f.class.ID, "1", "Ali")
	f.sara = testutil.CreateStudent(t, e.repo, f.class.ID, "2", "Sara")
	f.zain = testutil.CreateStudent(t, e.repo, f.class.ID, "3", "Zain")
	testutil.SetMarks(t, e.repo, f.session.ID, f.ali.ID, map[string]float64{f.physics.ID: 85, chemistry.ID: 90})
	testutil.SetMarks(t, e.repo, f.session.ID, f.sara.ID, map[string]float64{f.physics.ID: 20, chemistry.ID: 10})
	return f
}

func Test_home(t *testing.T) {
	e := setup(t)
	req, rec := newRequest(http.MethodGet, "/")
	e.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Result Portal API!", rec.Body.String())
}

func Test_resultApi_lookup(t *testing.T) {
	f := newFixture(t)
	body := func(sessionID, classID, roll string) []byte {
		return marchallObj(t, result.Lookup{SessionID: sessionID, ClassID: classID, RollNumber: roll})
	}

	tests := []httpTest{
		{
			name: "unknown roll", body: body(f.session.ID, f.class.ID, "99"), wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: result.ErrStudentNotFound.Error()}),
		},
		{
			name: "not published", body: body(f.session.ID, f.class.ID, "3"), wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: result.ErrNoMarks.Error()}),
		},
		{
			name: "unknown session", body: body("nope", f.class.ID, "1"), wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: result.ErrNotFound.Error()}),
		},
		{
			name: "blank roll", body: body(f.session.ID, f.class.ID, "  "), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"roll_number": "this field cannot be blank"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/results/lookup", tt.body)
			f.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("found", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/results/lookup", body(f.session.ID, f.class.ID, " 2 "))
		f.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res result.StudentResult
		unmarchall(t, rec, &res)
		assert.Equal(t, f.sara.ID, res.Student.ID)
		assert.Equal(t, 30.0, res.TotalObtained)
		assert.Equal(t, 200.0, res.TotalMax)
		assert.Equal(t, 15.0, res.Percentage)
		assert.Equal(t, 2, res.Rank)
		assert.Equal(t, "2nd", res.Position)
		assert.Equal(t, 2, res.ClassSize)
		assert.Len(t, res.Subjects, 2)
	})
}

func Test_resultApi_adminGate(t *testing.T) {
	f := newFixture(t)
	staff := getToken(t, f.conf, Claims{Username: "clerk", Roles: []string{"staff:"}})
	principal := getToken(t, f.conf, Claims{Username: "principal", Roles: []string{"admin:principal"}})
	forged, err := GenerateToken("not-the-secret", &Claims{Username: "eve", IsAdmin: true})
	require.NoError(t, err)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/sessions", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Bad signature", path: "/v1/sessions", token: forged, wantCode: http.StatusUnauthorized},
		{name: "Admin required", path: "/v1/sessions", token: staff, wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "Admin role", path: "/v1/sessions", token: principal, wantCode: http.StatusOK, wantData: marchallObj(t, []result.Session{f.session})},
		{name: "Admin flag", path: "/v1/classes", token: f.adminTok, wantCode: http.StatusOK, wantData: marchallObj(t, []result.ClassSection{f.class})},
		{name: "Reports guarded", path: "/v1/reports/class", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Imports guarded", method: http.MethodPost, path: "/v1/imports", token: staff, wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req, rec := newAuthRequest(method, tt.path, tt.token)
			f.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_resultApi_sessions(t *testing.T) {
	f := newFixture(t)
	bPtr := func(b bool) *bool { return &b }

	req, rec := newAuthRequest(http.MethodPost, "/v1/sessions", f.adminTok, marchallObj(t, result.NewSession{Name: " Finals ", IsActive: bPtr(false)}))
	f.app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var finals result.Session
	unmarchall(t, rec, &finals)
	assert.Equal(t, "Finals", finals.Name)
	assert.False(t, finals.IsActive)

	tests := []httpTest{
		{
			name: "create blank", method: http.MethodPost, path: "/v1/sessions", body: marchallObj(t, result.NewSession{Name: " "}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"name": "this field cannot be blank"}),
		},
		{
			name: "update requires is_active", method: http.MethodPatch, path: "/v1/sessions/" + finals.ID, body: []byte(`{}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"is_active": "this field is required"}),
		},
		{
			name: "update unknown", method: http.MethodPatch, path: "/v1/sessions/nope", body: []byte(`{"is_active":true}`),
			wantCode: http.StatusNotFound,
		},
		{name: "active only", path: "/v1/sessions?active=true", wantCode: http.StatusOK, wantData: marchallObj(t, []result.Session{f.session})},
		{
			name: "active not a bool", path: "/v1/sessions?active=maybe",
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"active": "must be a boolean"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req, rec := newAuthRequest(method, tt.path, f.adminTok, tt.body)
			f.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("activate", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPatch, "/v1/sessions/"+finals.ID, f.adminTok, []byte(`{"is_active":true}`))
		f.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var sess result.Session
		unmarchall(t, rec, &sess)
		assert.True(t, sess.IsActive)
	})
}

func Test_resultApi_reports(t *testing.T) {
	f := newFixture(t)
	classPath := func(ordering string) string {
		v := make(url.Values)
		v.Add("session_id", f.session.ID)
		v.Add("class_id", f.class.ID)
		if ordering != "" {
			v.Add("ordering", ordering)
		}
		return "/v1/reports/class?" + v.Encode()
	}

	t.Run("class report", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, classPath("-roll_number"), f.adminTok)
		f.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var report result.ClassReport
		unmarchall(t, rec, &report)
		require.Len(t, report.Rows, 2)
		assert.Equal(t, f.sara.ID, report.Rows[0].Student.ID)
		assert.Equal(t, 2, report.Rows[0].Rank)
		assert.Equal(t, f.ali.ID, report.Rows[1].Student.ID)
		assert.Equal(t, 1, report.Rows[1].Rank)
		assert.Equal(t, 2, report.Stats.Students)
		assert.Equal(t, 1, report.Stats.Passed)
	})

	t.Run("subject report", func(t *testing.T) {
		v := make(url.Values)
		v.Add("session_id", f.session.ID)
		v.Add("subject_id", f.physics.ID)
		req, rec := newAuthRequest(http.MethodGet, "/v1/reports/subject?"+v.Encode(), f.adminTok)
		f.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var report result.SubjectReport
		unmarchall(t, rec, &report)
		require.Len(t, report.Rows, 3)
		assert.Equal(t, 85.0, report.Rows[0].Obtained)
		assert.False(t, report.Rows[1].Passed)
		assert.True(t, report.Rows[2].Missing)
	})

	tests := []httpTest{
		{
			name: "unknown ordering", path: classPath("height"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"ordering": "unknown ordering field height"}),
		},
		{
			name: "missing class", path: "/v1/reports/class?session_id=" + f.session.ID, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"class_id": "this field cannot be blank"}),
		},
		{name: "subjects of class", path: "/v1/classes/" + f.class.ID + "/subjects", wantCode: http.StatusOK},
		{name: "subjects of unknown class", path: "/v1/classes/nope/subjects", wantCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, f.adminTok)
			f.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_resultApi_missingSchemaShutsDown(t *testing.T) {
	e := setup(t, brokenStore{TabularStore: testutil.NewStore(t)})

	req, rec := newAuthRequest(http.MethodGet, "/v1/sessions", adminToken(t, e.conf))
	e.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusInternalServerError, wantData: marchallObj(t, httpErr{Error: "Internal Server Error"})}, rec)
	assert.Equal(t, 1, e.log.count(http.StatusText(http.StatusInternalServerError)))

	select {
	case <-e.app.ShutdownSignal():
	default:
		t.Fatal("server did not signal shutdown")
	}
}
