package export

import (
	"net/http"

	"ga4gh/loader/contexts"
	"ga4gh/loader/models/dtos"
	"ga4gh/loader/models/dtos/errors"
	"ga4gh/loader/models/indexes"
	esRepo "ga4gh/loader/repositories/elasticsearch"

	"github.com/labstack/echo"
	"github.com/sirupsen/logrus"
)

// ExportRun writes every aggregated variant, variant set and call set to
// elasticsearch.
func ExportRun(c echo.Context) error {
	gc := c.(*contexts.LoaderContext)
	es := gc.Es7Client
	if es == nil {
		return c.JSON(http.StatusInternalServerError, errors.CreateSimpleInternalServerError("no elasticsearch connection configured"))
	}
	ctx := c.Request().Context()

	if err := esRepo.EnsureIndices(ctx, es, indexes.Mappings); err != nil {
		logrus.WithError(err).Error("cannot provision indices")
		return c.JSON(http.StatusInternalServerError, errors.CreateSimpleInternalServerError(err.Error()))
	}

	writer, err := esRepo.NewBulkWriter(es, gc.Config.Elasticsearch.BulkWorkers)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errors.CreateSimpleInternalServerError(err.Error()))
	}

	stats, exportErr := gc.IngestionService.Export(ctx, writer)
	closeErr := writer.Close(ctx)
	if exportErr == nil {
		exportErr = closeErr
	}
	if exportErr != nil {
		logrus.WithError(exportErr).Error("export failed")
		return c.JSON(http.StatusInternalServerError, dtos.ExportResponseDto{
			Status:  http.StatusInternalServerError,
			Message: exportErr.Error(),
			Stats:   stats,
		})
	}

	return c.JSON(http.StatusOK, dtos.ExportResponseDto{
		Status:  http.StatusOK,
		Message: "Export complete",
		Stats:   stats,
	})
}
