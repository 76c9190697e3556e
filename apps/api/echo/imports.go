package echoapi

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/bytes"
	"github.com/pkg/errors"

	"github.com/trezcool/resultportal/core/importer"
)

// ImportRequest commits a reviewed sheet into the named session.
type ImportRequest struct {
	SessionName string         `json:"session_name" validate:"notblank,max=120"`
	Sheet       importer.Sheet `json:"sheet"`
}

type importApi struct {
	deps ServerDeps
}

func registerImportAPI(g *echo.Group, deps ServerDeps, jwt, admin echo.MiddlewareFunc) {
	api := importApi{deps: deps}

	ig := g.Group("/imports", jwt, admin)
	ig.POST("/preview", api.preview, middleware.BodyLimit(bytes.Format(deps.Conf.Import.MaxUploadSize)))
	ig.POST("", api.commit)
}

func (api *importApi) preview(ctx echo.Context) error {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return errNoFile
	}
	file, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return errors.Wrap(err, "reading uploaded file")
	}

	sheet, err := api.deps.ImportSvc.Preview(data, fh.Filename)
	if err != nil {
		return errors.Wrap(err, "previewing "+fh.Filename)
	}
	return ctx.JSON(http.StatusOK, sheet)
}

func (api *importApi) commit(ctx echo.Context) error {
	var data ImportRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ImportRequest")
	}
	if err := api.deps.Validate.Struct(data); err != nil {
		return err
	}

	res, err := api.deps.ImportSvc.Import(ctx.Request().Context(), data.Sheet, data.SessionName, contextOperator(ctx))
	if err != nil {
		return errors.Wrap(err, "importing sheet")
	}
	return ctx.JSON(http.StatusCreated, res)
}
