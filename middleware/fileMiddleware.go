package middleware

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"ga4gh/loader/contexts"
	"ga4gh/loader/models/dtos/errors"

	"github.com/labstack/echo"
	"github.com/sirupsen/logrus"
)

/*
Echo middleware to ensure a valid, comma separated `fileNames` HTTP query
parameter was provided
*/
func MandateFileNamesAttribute(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := c.QueryParam("fileNames")
		if len(raw) == 0 {
			return c.JSON(http.StatusBadRequest, errors.CreateSimpleBadRequest("missing fileNames"))
		}

		var fileNames []string
		for _, fileName := range strings.Split(raw, ",") {
			fileName = strings.TrimSpace(fileName)
			if fileName == "" {
				continue
			}
			// files are resolved inside the vcf directory only
			if filepath.IsAbs(fileName) || strings.Contains(filepath.ToSlash(fileName), "..") {
				logrus.WithField("file", fileName).Warn("rejected file name")
				return c.JSON(http.StatusBadRequest, errors.CreateSimpleBadRequest(fmt.Sprintf("invalid file name %s", fileName)))
			}
			fileNames = append(fileNames, fileName)
		}
		if len(fileNames) == 0 {
			return c.JSON(http.StatusBadRequest, errors.CreateSimpleBadRequest("missing fileNames"))
		}

		// forward a type-safe value down the pipeline
		gc := c.(*contexts.LoaderContext)
		gc.FileNames = fileNames

		return next(gc)
	}
}
