package contexts

import (
	"ga4gh/loader/models"
	"ga4gh/loader/models/constants"
	"ga4gh/loader/services"

	es7 "github.com/elastic/go-elasticsearch/v7"
	"github.com/labstack/echo"
)

type (
	// "Helper" Context to pass into routes that need
	//  the stores, an elasticsearch client and other variables
	LoaderContext struct {
		echo.Context
		Es7Client        *es7.Client
		Config           *models.Config
		IngestionService *services.IngestionService

		// values validated by middleware
		FileNames []string
		Workflow  constants.Workflow
	}
)
