package monitor

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"ga4gh/loader/models"
	"ga4gh/loader/models/ingest"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
)

type fakeTarget struct {
	checkpoints int32
	err         error
}

func (f *fakeTarget) Checkpoint() error {
	atomic.AddInt32(&f.checkpoints, 1)
	return f.err
}

func (f *fakeTarget) Stats() ingest.StoreStats {
	return ingest.StoreStats{Variants: 3, Calls: 7, VariantSets: 1, CallSets: 2, NextVariant: 3}
}

func TestRunOnce(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	target := &fakeTarget{}
	ms := &MonitorService{target: target, Metrics: NewMetrics()}
	assert.NoError(t, ms.RunOnce())
	assert.Equal(t, int32(1), atomic.LoadInt32(&target.checkpoints))
	assert.Equal(t, 3, hook.LastEntry().Data["variants"])
	assert.Equal(t, float64(3), testutil.ToFloat64(ms.Metrics.variants))
	assert.Equal(t, float64(7), testutil.ToFloat64(ms.Metrics.calls))
	assert.Equal(t, float64(2), testutil.ToFloat64(ms.Metrics.callSets))

	target.err = errors.New("disk full")
	assert.Error(t, ms.RunOnce())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, float64(1), testutil.ToFloat64(ms.Metrics.checkpoints.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(ms.Metrics.checkpoints.WithLabelValues("error")))

	// a bare service still checkpoints
	assert.Error(t, (&MonitorService{target: target}).RunOnce())
}

func TestDisabledWithoutInterval(t *testing.T) {
	var cfg models.Config
	ms := NewMonitorService(&fakeTarget{}, &cfg)
	assert.False(t, ms.Initialized)
	ms.Stop()
}

func TestScheduledCheckpoints(t *testing.T) {
	var cfg models.Config
	cfg.Store.CheckpointIntervalSeconds = 1

	target := &fakeTarget{}
	ms := NewMonitorService(target, &cfg)
	defer ms.Stop()
	assert.True(t, ms.Initialized)

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&target.checkpoints) >= 1
	}, 5*time.Second, 50*time.Millisecond)
}

func TestMetricsHandler(t *testing.T) {
	ms := &MonitorService{target: &fakeTarget{}, Metrics: NewMetrics()}
	assert.NoError(t, ms.RunOnce())

	rec := httptest.NewRecorder()
	ms.Metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "loader_variants 3")
	assert.Contains(t, rec.Body.String(), `loader_checkpoints_total{status="ok"} 1`)
}
