package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/resultportal/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.Ordering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	ord.Orderings = core.ParseOrderings(ctx.QueryParam(orderingParam))
}

// bindAndValidate binds the request payload into data then validates it.
func bindAndValidate(ctx echo.Context, deps ServerDeps, data interface{}) error {
	if err := ctx.Bind(data); err != nil {
		return err
	}
	return deps.Validate.Struct(data)
}
