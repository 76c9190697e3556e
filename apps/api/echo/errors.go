package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/resultportal/core"
	"github.com/trezcool/resultportal/core/importer"
	"github.com/trezcool/resultportal/core/result"
)

var (
	errUnauthorized  = echo.NewHTTPError(http.StatusUnauthorized, "operator not authenticated")
	errHttpForbidden = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errNoFile        = echo.NewHTTPError(http.StatusBadRequest, "a spreadsheet must be uploaded in the `file` field")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		var (
			pce  *importer.PartialCommitError
			perr *importer.ParseError
			mce  *importer.MissingColumnError
		)
		switch {
		case errors.As(err, &pce): // already reported by the import service
			code = http.StatusBadGateway
			message = echo.Map{
				"error":             pce.Error(),
				"committed_classes": pce.Committed,
				"failed_class":      pce.Failed,
			}
		case errors.As(err, &perr):
			code, message = http.StatusBadRequest, perr.Error()
		case errors.As(err, &mce):
			code = http.StatusBadRequest
			message = echo.Map{"error": mce.Error(), "missing_columns": mce.Missing}
		default:
			code, message = classify(err, logger, translator, ctx, signalShutdown)
		}

		if ctx.Echo().Debug {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

func classify(err error, logger core.Logger, translator ut.Translator, ctx echo.Context, signalShutdown func()) (int, interface{}) {
	switch origErr := errors.Cause(err).(type) {
	case *echo.HTTPError:
		if origErr == middleware.ErrJWTMissing {
			return http.StatusUnauthorized, origErr.Message
		}
		if origErr.Internal != nil {
			if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
				origErr = herr
			}
		}
		return origErr.Code, origErr.Message
	case validator.ValidationErrors:
		fldErrs := make(map[string]string, len(origErr))
		for _, vErr := range origErr {
			fldErrs[vErr.Field()] = vErr.Translate(translator)
		}
		return http.StatusBadRequest, fldErrs
	case *core.ValidationError:
		if origErr.Fields != nil {
			fldErrs := make(map[string]string, len(origErr.Fields))
			for _, fErr := range origErr.Fields {
				fldErrs[fErr.Field] = fErr.Error
			}
			return http.StatusBadRequest, fldErrs
		}
		return http.StatusBadRequest, origErr.Error()
	}

	switch errors.Cause(err) {
	case result.ErrStudentNotFound, result.ErrNoMarks, result.ErrNotFound:
		return http.StatusNotFound, errors.Cause(err).Error()
	}

	// any other error is a server error
	msg := http.StatusText(http.StatusInternalServerError)
	logger.Error(msg, errors.Wrap(err, msg), contextOperator(ctx))

	// shutting down...
	if core.IsShutdown(err) {
		signalShutdown()
	}
	return http.StatusInternalServerError, msg
}
