package tests

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/resultportal/apps/api/echo"
	"github.com/trezcool/resultportal/core/importer"
	"github.com/trezcool/resultportal/core/result"
	"github.com/trezcool/resultportal/tests"
)

const marksCSV = "Roll#,Class,Name,Father Name,Physics,Chemistry\n" +
	"Max Marks,-,-,-,100,50\n" +
	"1,9,Ali,Khan,85,40\n" +
	"2,9,Sara,Iqbal,A,25\n" +
	"1,10,Omar,Shah,70,45\n"

func previewSheet(t *testing.T, e env, token string) importer.Sheet {
	req, rec := newUploadRequest(t, "/v1/imports/preview", token, "marks.csv", []byte(marksCSV))
	e.app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var sheet importer.Sheet
	unmarchall(t, rec, &sheet)
	return sheet
}

func Test_importApi_previewAndCommit(t *testing.T) {
	e := setup(t)
	token := adminToken(t, e.conf)

	sheet := previewSheet(t, e, token)
	require.Len(t, sheet.Subjects, 2)
	assert.Equal(t, importer.SubjectColumn{Name: "Chemistry", MaxMarks: 50}, sheet.Subjects[1])
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "9th", sheet.Rows[0].ClassName)

	// the operator fixes a typo before committing
	sheet.Rows[1].FullName = "Sara Iqbal"

	req, rec := newAuthRequest(http.MethodPost, "/v1/imports", token, marchallObj(t, ImportRequest{SessionName: "Mid Term", Sheet: sheet}))
	e.app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var res importer.Result
	unmarchall(t, rec, &res)
	assert.Equal(t, "Mid Term", res.SessionName)
	require.Len(t, res.Classes, 2)
	assert.Equal(t, "9th", res.Classes[0].ClassName)
	assert.Equal(t, 4, res.Classes[0].MarksUpserted)
	assert.Equal(t, "10th", res.Classes[1].ClassName)

	// a student can now look up their result
	lookup := result.Lookup{SessionID: res.SessionID, ClassID: res.Classes[0].ClassID, RollNumber: "2"}
	req, rec = newRequest(http.MethodPost, "/v1/results/lookup", marchallObj(t, lookup))
	e.app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var card result.StudentResult
	unmarchall(t, rec, &card)
	assert.Equal(t, "Sara Iqbal", card.Student.FullName)
	assert.Equal(t, 25.0, card.TotalObtained) // absent in Physics counts as 0
	assert.Equal(t, 150.0, card.TotalMax)
	assert.Equal(t, 2, card.Rank)
}

func Test_importApi_errors(t *testing.T) {
	e := setup(t)
	token := adminToken(t, e.conf)

	uploads := []struct {
		name     string
		filename string
		content  []byte
		wantCode int
		wantData []byte
	}{
		{
			name: "missing columns", filename: "marks.csv", content: []byte("Rol,Class,Physics\n1,9,50\n"),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]interface{}{
				"error":           `missing required column(s): roll (did you mean "Rol"?), name`,
				"missing_columns": []string{"roll", "name"},
			}),
		},
		{
			name: "not a spreadsheet", filename: "marks.xlsx", content: []byte("PK\x03\x04garbage"),
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range uploads {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newUploadRequest(t, "/v1/imports/preview", token, tt.filename, tt.content)
			e.app.ServeHTTP(rec, req)
			checkCodeAndData(t, httpTest{wantCode: tt.wantCode, wantData: tt.wantData}, rec)
		})
	}

	t.Run("no file", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/imports/preview", token)
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "a spreadsheet must be uploaded in the `file` field"}),
		}, rec)
	})

	t.Run("too large", func(t *testing.T) {
		big := bytes.Repeat([]byte("1,9,Ali,85\n"), int(e.conf.Import.MaxUploadSize)/10)
		req, rec := newUploadRequest(t, "/v1/imports/preview", token, "marks.csv", append([]byte("Roll,Class,Name,Physics\n"), big...))
		e.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	commits := []httpTest{
		{
			name: "blank session", body: marchallObj(t, ImportRequest{SessionName: " ", Sheet: previewSheet(t, e, token)}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"session_name": "this field cannot be blank"}),
		},
		{
			name: "no rows", body: []byte(`{"session_name":"Finals","sheet":{"subjects":[],"rows":[]}}`),
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range commits {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/imports", token, tt.body)
			e.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_importApi_partialCommit(t *testing.T) {
	store := &flakyStore{TabularStore: testutil.NewStore(t), healthy: 1}
	e := setup(t, store)
	token := adminToken(t, e.conf)
	sheet := previewSheet(t, e, token)

	req, rec := newAuthRequest(http.MethodPost, "/v1/imports", token, marchallObj(t, ImportRequest{SessionName: "Finals", Sheet: sheet}))
	e.app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadGateway, rec.Code, rec.Body.String())

	var body struct {
		Error            string   `json:"error"`
		CommittedClasses []string `json:"committed_classes"`
		FailedClass      string   `json:"failed_class"`
	}
	unmarchall(t, rec, &body)
	assert.Equal(t, []string{"9th"}, body.CommittedClasses)
	assert.Equal(t, "10th", body.FailedClass)
	assert.Contains(t, body.Error, "connection reset by peer")
	assert.Equal(t, 1, e.log.count("import partially committed"))
	assert.Zero(t, e.log.count(http.StatusText(http.StatusInternalServerError)))

	// re-running the same import finishes the job
	store.healthy = 10
	req, rec = newAuthRequest(http.MethodPost, "/v1/imports", token, marchallObj(t, ImportRequest{SessionName: "Finals", Sheet: sheet}))
	e.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}
