package ingestion

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ga4gh/loader/contexts"
	"ga4gh/loader/models/ingest"
	"ga4gh/loader/services"
	"ga4gh/loader/services/metadata"
	"ga4gh/loader/utils"

	linq "github.com/ahmetb/go-linq"
	"github.com/labstack/echo"
	"github.com/sirupsen/logrus"
)

// IngestionRun queues the requested files and ingests them one after the
// other in the background.
func IngestionRun(c echo.Context) error {
	gc := c.(*contexts.LoaderContext)
	vcfPath := gc.Config.Api.VcfPath
	ingestionService := gc.IngestionService
	forcedWorkflow := gc.Workflow

	logrus.WithField("files", gc.FileNames).Info("IngestionRun hit")

	// Read all files and temporarily catalog all .vcf(.gz) files
	vcfFiles, err := catalogVcfFiles(vcfPath)
	if err != nil {
		logrus.WithError(err).Error("cannot list vcf directory")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "cannot list vcf directory"})
	}

	// Locate fileName from request inside found files
	for _, fileName := range gc.FileNames {
		if !utils.StringInSlice(fileName, vcfFiles) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "file " + fileName + " not found! Aborted -- "})
		}
	}

	responseDtos := []ingest.IngestResponseDTO{}
	var queued []*ingest.IngestRequest
	for _, fileName := range gc.FileNames {
		req, err := ingestionService.QueueFile(fileName)
		if errors.Is(err, services.ErrAlreadyRunning) {
			responseDtos = append(responseDtos, ingest.IngestResponseDTO{
				Filename: fileName,
				State:    ingest.Error,
				Message:  "File already being ingested..",
			})
			continue
		}

		queued = append(queued, req)
		responseDtos = append(responseDtos, ingest.IngestResponseDTO{
			Id:       req.Id,
			Filename: fileName,
			State:    ingest.Queued,
			Message:  "Successfully queued..",
		})
	}

	go func(requests []*ingest.IngestRequest) {
		for _, req := range requests {
			path := filepath.Join(vcfPath, req.Filename)

			meta, err := metadata.ForVcf(path)
			if err != nil {
				ingestionService.FailRequest(req, err)
				continue
			}
			if forcedWorkflow != "" {
				meta.Workflow = string(forcedWorkflow)
			}

			ingestionService.RunRequest(req, path, meta)
		}
	}(queued)

	return c.JSON(http.StatusOK, responseDtos)
}

func GetAllIngestionRequests(c echo.Context) error {
	requests := c.(*contexts.LoaderContext).IngestionService.Requests()

	// most recent first
	sorted := []ingest.IngestRequest{}
	linq.From(requests).
		OrderByDescendingT(func(r ingest.IngestRequest) int64 {
			t, _ := time.Parse(time.RFC3339Nano, r.CreatedAt)
			return t.UnixNano()
		}).
		ToSlice(&sorted)

	return c.JSON(http.StatusOK, sorted)
}

func IngestionStats(c echo.Context) error {
	return c.JSON(http.StatusOK, c.(*contexts.LoaderContext).IngestionService.Stats())
}

func catalogVcfFiles(vcfPath string) ([]string, error) {
	var vcfFiles []string
	err := filepath.Walk(vcfPath,
		func(absoluteFileName string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return nil
			}

			// keep track of relative path
			relativePathFileName, err := filepath.Rel(vcfPath, absoluteFileName)
			if err != nil {
				return err
			}

			if strings.HasSuffix(relativePathFileName, ".vcf.gz") || strings.HasSuffix(relativePathFileName, ".vcf") {
				vcfFiles = append(vcfFiles, relativePathFileName)
			}
			return nil
		})
	return vcfFiles, err
}
