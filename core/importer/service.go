package importer

import (
	"context"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/trezcool/resultportal/core"
	"github.com/trezcool/resultportal/core/result"
)

const reportTemplate = "import_report"

type (
	Service struct {
		rc          *Reconciler
		logger      core.Logger
		mailer      core.EmailService
		recipients  []mail.Address
		frontendURL string
	}

	reportData struct {
		SessionName string
		Classes     []ClassResult
		Warnings    []string
		Failed      bool
		FailedClass string
		Error       string
	}
)

// NewService wires the import pipeline. A nil mailer or no recipients disables import reports.
func NewService(repo *result.Repository, logger core.Logger, mailer core.EmailService, recipients []mail.Address, frontendURL string) *Service {
	return &Service{
		rc:          NewReconciler(repo),
		logger:      logger,
		mailer:      mailer,
		recipients:  recipients,
		frontendURL: frontendURL,
	}
}

// Preview parses an uploaded file into a review sheet. Nothing is written.
func (svc *Service) Preview(data []byte, filename string) (Sheet, error) {
	grid, err := ParseWorkbook(data, filename)
	if err != nil {
		return Sheet{}, err
	}
	return Analyze(grid)
}

// Import commits a review sheet and mails a report of the outcome.
func (svc *Service) Import(ctx context.Context, sheet Sheet, sessionName string, operator *core.Operator) (Result, error) {
	res, err := svc.rc.Reconcile(ctx, sheet, sessionName)

	var pce *PartialCommitError
	switch {
	case err == nil:
		svc.logger.Info("import committed", map[string]interface{}{
			"session": res.SessionName,
			"classes": len(res.Classes),
		}, operator)
		svc.notify(res, nil)
	case errors.As(err, &pce):
		svc.logger.Error("import partially committed", err, map[string]interface{}{
			"session":   res.SessionName,
			"committed": pce.Committed,
			"failed":    pce.Failed,
		}, operator)
		svc.notify(res, pce)
	}
	return res, err
}

func (svc *Service) notify(res Result, pce *PartialCommitError) {
	if svc.mailer == nil || len(svc.recipients) == 0 {
		return
	}
	data := reportData{
		SessionName: res.SessionName,
		Classes:     res.Classes,
		Warnings:    res.Warnings,
	}
	subject := "Import completed: " + res.SessionName
	if pce != nil {
		data.Failed, data.FailedClass, data.Error = true, pce.Failed, pce.Err.Error()
		subject = "Import stopped: " + res.SessionName
	}
	svc.mailer.SendMessages(&core.EmailMessage{
		To:              svc.recipients,
		Subject:         subject,
		TemplateName:    reportTemplate,
		TemplateData:    data,
		FrontendBaseURL: svc.frontendURL,
	})
}
