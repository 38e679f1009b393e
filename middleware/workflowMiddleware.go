package middleware

import (
	"fmt"
	"net/http"

	"ga4gh/loader/contexts"
	"ga4gh/loader/models/constants/workflow"
	"ga4gh/loader/models/dtos/errors"

	"github.com/labstack/echo"
)

/*
Echo middleware to ensure a `workflow` HTTP query parameter names a known
workflow if provided
*/
func OptionalWorkflowAttribute(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		gc := c.(*contexts.LoaderContext)

		raw := c.QueryParam("workflow")
		if len(raw) > 0 {
			w := workflow.CastToWorkflow(raw)
			if w == workflow.Unknown {
				return c.JSON(http.StatusBadRequest, errors.CreateSimpleBadRequest(fmt.Sprintf("unknown workflow %s", raw)))
			}
			gc.Workflow = w
		}

		return next(gc)
	}
}
