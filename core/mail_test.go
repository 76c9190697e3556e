package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type errorLog struct{ errors []string }

func (l *errorLog) Debug(string, ...interface{}) {}
func (l *errorLog) Info(string, ...interface{})  {}
func (l *errorLog) Warn(string, ...interface{})  {}
func (l *errorLog) Fatal(string, ...interface{}) {}
func (l *errorLog) Error(msg string, _ ...interface{}) {
	l.errors = append(l.errors, msg)
}

func TestParseEmailTemplates(t *testing.T) {
	log := new(errorLog)
	ParseEmailTemplates(log, true)
	assert.Empty(t, log.errors)

	tmplMu.RLock()
	entry := templates["import_report"]
	tmplMu.RUnlock()
	require.NotNil(t, entry)
	assert.Contains(t, entry, ".txt")
	assert.Contains(t, entry, ".gohtml")

	msg := &EmailMessage{
		Subject:      "Import finished: Finals",
		TemplateName: "import_report",
		TemplateData: map[string]interface{}{
			"SessionName": "Finals",
			"Classes":     []map[string]interface{}{},
			"Warnings":    []string{},
			"Failed":      false,
			"FailedClass": "",
			"Error":       "",
		},
		FrontendBaseURL: "http://portal.test",
	}
	require.NoError(t, msg.Render())
	assert.True(t, msg.HasContent())
	assert.Contains(t, msg.TextContent, "Finals")
	assert.Contains(t, msg.HTMLContent, "Finals")
}
