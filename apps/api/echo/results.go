package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/resultportal/core"
	"github.com/trezcool/resultportal/core/result"
)

type (
	ClassReportQuery struct {
		SessionID string `json:"session_id" query:"session_id" validate:"notblank"`
		ClassID   string `json:"class_id" query:"class_id" validate:"notblank"`
	}

	SubjectReportQuery struct {
		SessionID string `json:"session_id" query:"session_id" validate:"notblank"`
		SubjectID string `json:"subject_id" query:"subject_id" validate:"notblank"`
	}
)

type resultApi struct {
	deps ServerDeps
	svc  *result.Service
}

func registerResultAPI(g *echo.Group, deps ServerDeps, jwt, admin echo.MiddlewareFunc) {
	api := resultApi{deps: deps, svc: deps.ResultSvc}

	// un-authed endpoints
	g.POST("/results/lookup", api.lookup)

	sg := g.Group("/sessions", jwt, admin)
	sg.GET("", api.listSessions)
	sg.POST("", api.createSession)
	sg.PATCH("/:id", api.updateSession)

	cg := g.Group("/classes", jwt, admin)
	cg.GET("", api.listClasses)
	cg.GET("/:id/subjects", api.listSubjects)

	rg := g.Group("/reports", jwt, admin)
	rg.GET("/class", api.classReport)
	rg.GET("/subject", api.subjectReport)
}

// Handlers

func (api *resultApi) listSessions(ctx echo.Context) error {
	var active *bool
	if v := ctx.QueryParam("active"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "active", Error: "must be a boolean"})
		}
		active = &b
	}

	sessions, err := api.svc.ListSessions(ctx.Request().Context(), active)
	if err != nil {
		return errors.Wrap(err, "listing sessions")
	}
	if sessions == nil {
		sessions = []result.Session{}
	}
	return ctx.JSON(http.StatusOK, sessions)
}

func (api *resultApi) createSession(ctx echo.Context) error {
	var data result.NewSession
	if err := bindAndValidate(ctx, api.deps, &data); err != nil {
		return errors.Wrap(err, "binding to NewSession")
	}

	sess, err := api.svc.CreateSession(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating session")
	}
	return ctx.JSON(http.StatusCreated, sess)
}

func (api *resultApi) updateSession(ctx echo.Context) error {
	var data result.UpdateSession
	if err := bindAndValidate(ctx, api.deps, &data); err != nil {
		return errors.Wrap(err, "binding to UpdateSession")
	}

	sess, err := api.svc.UpdateSession(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating session")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *resultApi) listClasses(ctx echo.Context) error {
	classes, err := api.svc.ListClasses(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing classes")
	}
	if classes == nil {
		classes = []result.ClassSection{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *resultApi) listSubjects(ctx echo.Context) error {
	subjects, err := api.svc.ListSubjects(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing subjects")
	}
	if subjects == nil {
		subjects = []result.Subject{}
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *resultApi) classReport(ctx echo.Context) error {
	var q ClassReportQuery
	if err := bindAndValidate(ctx, api.deps, &q); err != nil {
		return errors.Wrap(err, "binding to ClassReportQuery")
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	report, err := api.svc.ClassReport(ctx.Request().Context(), q.SessionID, q.ClassID, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "building class report")
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *resultApi) subjectReport(ctx echo.Context) error {
	var q SubjectReportQuery
	if err := bindAndValidate(ctx, api.deps, &q); err != nil {
		return errors.Wrap(err, "binding to SubjectReportQuery")
	}

	report, err := api.svc.SubjectReport(ctx.Request().Context(), q.SessionID, q.SubjectID)
	if err != nil {
		return errors.Wrap(err, "building subject report")
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *resultApi) lookup(ctx echo.Context) error {
	var data result.Lookup
	if err := bindAndValidate(ctx, api.deps, &data); err != nil {
		return errors.Wrap(err, "binding to Lookup")
	}

	res, err := api.svc.LookupStudent(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "looking up student result")
	}
	return ctx.JSON(http.StatusOK, res)
}
