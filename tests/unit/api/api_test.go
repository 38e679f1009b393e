package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ga4gh/loader/contexts"
	gam "ga4gh/loader/middleware"
	serviceInfo "ga4gh/loader/models/constants/service-info"
	"ga4gh/loader/models/constants/workflow"
	"ga4gh/loader/models/ingest"
	exportMvc "ga4gh/loader/mvc/export"
	ingestionMvc "ga4gh/loader/mvc/ingestion"
	serviceInfoMvc "ga4gh/loader/mvc/service-info"
	"ga4gh/loader/services"
	"ga4gh/loader/tests/common"

	"github.com/labstack/echo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setUp(t *testing.T) (*services.IngestionService, func(method string, path string) (*contexts.LoaderContext, *httptest.ResponseRecorder)) {
	cfg := common.InitTestConfig(t)
	iz, err := services.NewIngestionService(cfg)
	require.NoError(t, err)
	t.Cleanup(iz.Close)

	setUpEcho := func(method string, path string) (*contexts.LoaderContext, *httptest.ResponseRecorder) {
		e := echo.New()
		req := httptest.NewRequest(method, path, nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		gc := &contexts.LoaderContext{
			Context:          c,
			Es7Client:        nil,
			Config:           cfg,
			IngestionService: iz,
		}
		return gc, rec
	}
	return iz, setUpEcho
}

func getJsonBody(rec *httptest.ResponseRecorder, v interface{}) {
	body, _ := io.ReadAll(rec.Body)
	json.Unmarshal(body, v)
}

func TestGetServiceInfo(t *testing.T) {
	_, setUpEcho := setUp(t)
	gc, rec := setUpEcho(http.MethodGet, "/service-info")

	require.NoError(t, serviceInfoMvc.GetServiceInfo(gc))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	getJsonBody(rec, &body)
	assert.Equal(t, string(serviceInfo.SERVICE_ID), body["id"])
	assert.Equal(t, string(serviceInfo.SERVICE_VERSION), body["version"])
	assert.Equal(t, string(serviceInfo.SERVICE_ARTIFACT), body["type"].(map[string]interface{})["artifact"])
}

func TestIngestionRun(t *testing.T) {
	iz, setUpEcho := setUp(t)

	t.Run("should reject a missing fileNames parameter", func(t *testing.T) {
		gc, rec := setUpEcho(http.MethodGet, "/ingestion/run")
		handler := gam.MandateFileNamesAttribute(ingestionMvc.IngestionRun)

		require.NoError(t, handler(gc))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("should reject paths escaping the vcf directory", func(t *testing.T) {
		gc, rec := setUpEcho(http.MethodGet, "/ingestion/run?fileNames=../secret.vcf")
		handler := gam.MandateFileNamesAttribute(ingestionMvc.IngestionRun)

		require.NoError(t, handler(gc))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("should reject an unknown workflow", func(t *testing.T) {
		gc, rec := setUpEcho(http.MethodGet, "/ingestion/run?fileNames=a.vcf&workflow=nope")
		handler := gam.MandateFileNamesAttribute(gam.OptionalWorkflowAttribute(ingestionMvc.IngestionRun))

		require.NoError(t, handler(gc))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("should reject files absent from the vcf directory", func(t *testing.T) {
		gc, rec := setUpEcho(http.MethodGet, "/ingestion/run?fileNames=missing.vcf")
		handler := gam.MandateFileNamesAttribute(ingestionMvc.IngestionRun)

		require.NoError(t, handler(gc))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("should queue and ingest a file", func(t *testing.T) {
		gc, rec := setUpEcho(http.MethodGet, "/ingestion/run?fileNames=f82d213f.vcf&workflow=svcp")
		common.WriteVcf(t, gc.Config.Api.VcfPath, "f82d213f.vcf", common.SangerVcf)
		handler := gam.MandateFileNamesAttribute(gam.OptionalWorkflowAttribute(ingestionMvc.IngestionRun))

		require.NoError(t, handler(gc))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, workflow.SangerSvcp, gc.Workflow)

		var queued []ingest.IngestResponseDTO
		getJsonBody(rec, &queued)
		require.Len(t, queued, 1)
		assert.Equal(t, ingest.Queued, queued[0].State)

		assert.Eventually(t, func() bool {
			for _, r := range iz.Requests() {
				if r.Filename == "f82d213f.vcf" && r.State == ingest.Done {
					return true
				}
			}
			return false
		}, 5*time.Second, 10*time.Millisecond)

		statsCtx, statsRec := setUpEcho(http.MethodGet, "/ingestion/stats")
		require.NoError(t, ingestionMvc.IngestionStats(statsCtx))
		var stats ingest.StoreStats
		getJsonBody(statsRec, &stats)
		assert.Equal(t, 3, stats.Variants)
		assert.Equal(t, 1, stats.VariantSets)
		assert.Equal(t, 1, stats.CallSets)

		requestsCtx, requestsRec := setUpEcho(http.MethodGet, "/ingestion/requests")
		require.NoError(t, ingestionMvc.GetAllIngestionRequests(requestsCtx))
		var requests []ingest.IngestRequest
		getJsonBody(requestsRec, &requests)
		require.Len(t, requests, 1)
		assert.Equal(t, ingest.Done, requests[0].State)
	})
}

func TestExportRunWithoutElasticsearch(t *testing.T) {
	_, setUpEcho := setUp(t)
	gc, rec := setUpEcho(http.MethodPost, "/export/run")

	require.NoError(t, exportMvc.ExportRun(gc))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
