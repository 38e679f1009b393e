package monitor

import (
	"time"

	"ga4gh/loader/models"
	"ga4gh/loader/models/ingest"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"
)

// Target is what the monitor periodically checkpoints and reports on.
type Target interface {
	Checkpoint() error
	Stats() ingest.StoreStats
}

type (
	MonitorService struct {
		Initialized bool
		Interval    time.Duration

		Metrics *Metrics

		target    Target
		scheduler *gocron.Scheduler
	}
)

func NewMonitorService(target Target, cfg *models.Config) *MonitorService {
	ms := &MonitorService{
		Initialized: false,
		Interval:    time.Duration(cfg.Store.CheckpointIntervalSeconds) * time.Second,
		Metrics:     NewMetrics(),
		target:      target,
	}

	ms.Init()

	return ms
}

func (ms *MonitorService) Init() {
	// initialization if necessary
	if ms.Initialized {
		return
	}
	if ms.Interval <= 0 {
		logrus.Info("store checkpointing disabled")
		return
	}

	// - periodically flush the stores to disk and record the identity
	//   counters, so a crash loses at most what was added since, and log
	//   the store sizes
	s := gocron.NewScheduler(time.UTC)
	_, err := s.Every(ms.Interval).SingletonMode().Do(func() {
		ms.RunOnce()
	})
	if err != nil {
		logrus.WithError(err).Error("cannot schedule store checkpointing")
		return
	}

	// don't fire right away, the stores were just opened
	s.WaitForScheduleAll()
	s.StartAsync()

	ms.scheduler = s
	ms.Initialized = true
	logrus.WithField("interval", ms.Interval).Info("Monitor Service Initialized ..")
}

// RunOnce checkpoints the target and logs its sizes.
func (ms *MonitorService) RunOnce() error {
	err := ms.target.Checkpoint()
	if ms.Metrics != nil {
		ms.Metrics.checkpointed(err)
	}
	if err != nil {
		logrus.WithError(err).Error("checkpointing stores failed")
		return err
	}

	stats := ms.target.Stats()
	if ms.Metrics != nil {
		ms.Metrics.observe(stats)
	}
	logrus.WithFields(logrus.Fields{
		"variants":    stats.Variants,
		"calls":       stats.Calls,
		"variantSets": stats.VariantSets,
		"callSets":    stats.CallSets,
	}).Info("stores checkpointed")
	return nil
}

func (ms *MonitorService) Stop() {
	if ms.scheduler != nil {
		ms.scheduler.Stop()
		ms.scheduler = nil
	}
	ms.Initialized = false
}
