package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"ga4gh/loader/codec"
	"ga4gh/loader/models"
	"ga4gh/loader/models/constants/workflow"
	"ga4gh/loader/models/indexes"
	"ga4gh/loader/models/ingest"
	"ga4gh/loader/repositories/aggregation"
	"ga4gh/loader/repositories/identity"
	"ga4gh/loader/repositories/storage"
	"ga4gh/loader/services/extraction"
	"ga4gh/loader/services/vcf"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// backing store names, one file per entity type under Config.Store.Dir
const (
	VariantsStoreName           = "variants"
	VariantSetsStoreName        = "variant-sets"
	CallSetsStoreName           = "call-sets"
	CallSetMembershipsStoreName = "call-set-memberships"
)

var ErrAlreadyRunning = errors.New("file is already being ingested")

// RecordSource yields the parsed records of one file in file order and
// io.EOF at the end.
type RecordSource interface {
	Next() (models.RawVariantRecord, error)
}

// DocumentWriter receives exported documents.
type DocumentWriter interface {
	Write(ctx context.Context, index string, id string, doc any) error
	Close(ctx context.Context) error
}

type (
	IngestionService struct {
		Initialized         bool
		IngestRequestChan   chan *ingest.IngestRequest
		IngestRequestMap    map[string]*ingest.IngestRequest
		IngestRequestMapMux sync.RWMutex

		Variants    *aggregation.Store
		VariantSets *identity.VariantSetStore
		CallSets    *identity.CallSetStore

		// the stores have a single writer; files are ingested one at a time
		storesMux sync.Mutex
		stop      chan struct{}

		// cancelled by Close to abort requests still running
		ctx    context.Context
		cancel context.CancelFunc
	}
)

func NewIngestionService(cfg *models.Config) (*IngestionService, error) {
	iz := &IngestionService{
		Initialized:       false,
		IngestRequestChan: make(chan *ingest.IngestRequest),
		IngestRequestMap:  map[string]*ingest.IngestRequest{},
		stop:              make(chan struct{}),
	}
	iz.ctx, iz.cancel = context.WithCancel(context.Background())

	if err := iz.openStores(cfg); err != nil {
		iz.cancel()
		return nil, err
	}

	iz.Init()

	return iz, nil
}

func (i *IngestionService) openStores(cfg *models.Config) error {
	options := func(name string) storage.Options {
		return storage.Options{
			Type:                cfg.Store.Type,
			Dir:                 cfg.Store.Dir,
			Name:                name,
			ForceNew:            cfg.Store.ForceNew,
			HybridCapacityBytes: cfg.Store.HybridCapacityBytes,
		}
	}

	var opened []storage.Closer
	fail := func(err error) error {
		for _, s := range opened {
			storage.CloseQuietly(s)
		}
		return err
	}

	variantStorage, err := storage.New[models.VariantKey, models.Aggregate](options(VariantsStoreName), codec.VariantKeyCodec{}, codec.AggregateCodec{})
	if err != nil {
		return fail(err)
	}
	opened = append(opened, variantStorage)

	variantSetStorage, err := storage.New[models.VariantSet, uint32](options(VariantSetsStoreName), codec.VariantSetCodec{}, codec.Uint32{})
	if err != nil {
		return fail(err)
	}
	opened = append(opened, variantSetStorage)

	callSetStorage, err := storage.New[models.CallSetKey, uint32](options(CallSetsStoreName), codec.CallSetKeyCodec{}, codec.Uint32{})
	if err != nil {
		return fail(err)
	}
	opened = append(opened, callSetStorage)

	membershipStorage, err := storage.New[uint32, *roaring.Bitmap](options(CallSetMembershipsStoreName), codec.Uint32{}, codec.BitmapCodec{})
	if err != nil {
		return fail(err)
	}
	opened = append(opened, membershipStorage)

	if i.Variants, err = aggregation.New(variantStorage, identity.Options[uint64]{Initial: cfg.Store.VariantIdInitial}); err != nil {
		return fail(err)
	}
	if i.VariantSets, err = identity.New(variantSetStorage, identity.Options[uint32]{Initial: cfg.Store.VariantSetIdInitial}); err != nil {
		return fail(err)
	}
	if i.CallSets, err = identity.NewCallSetStore(callSetStorage, membershipStorage, identity.Options[uint32]{Initial: cfg.Store.CallSetIdInitial}); err != nil {
		return fail(err)
	}

	logrus.WithFields(logrus.Fields{
		"type":        cfg.Store.Type,
		"dir":         cfg.Store.Dir,
		"variants":    i.Variants.Len(),
		"variantSets": i.VariantSets.Len(),
		"callSets":    i.CallSets.Len(),
	}).Info("stores opened")
	return nil
}

func (i *IngestionService) Init() {
	// safeguard to prevent multiple initilizations
	if !i.Initialized {
		// spin up a go routine acting as a listener for ingest request updates
		go func() {
			for {
				select {
				case ingestionRequest := <-i.IngestRequestChan:
					if ingestionRequest.State == ingest.Queued {
						logrus.WithField("file", ingestionRequest.Filename).Info("queueing a new ingestion request")
					}

					ingestionRequest.UpdatedAt = time.Now().Format(time.RFC3339Nano)
					i.IngestRequestMapMux.Lock()
					i.IngestRequestMap[ingestionRequest.Id.String()] = ingestionRequest
					i.IngestRequestMapMux.Unlock()

				case <-i.stop:
					return
				}
			}
		}()

		i.Initialized = true
	}
}

// ProcessFile ingests every record of source. Any extraction or storage
// error, or the cancellation of ctx, aborts the file; records already
// aggregated stay aggregated.
func (i *IngestionService) ProcessFile(ctx context.Context, meta models.FileMetadata, source RecordSource) (ingest.FileStats, error) {
	i.storesMux.Lock()
	defer i.storesMux.Unlock()

	stats := ingest.FileStats{Filename: meta.Filename}
	if err := ctx.Err(); err != nil {
		return stats, fmt.Errorf("%s: %w", meta.Filename, err)
	}

	w := workflow.CastToWorkflow(meta.Workflow)
	if w == workflow.Unknown {
		w = workflow.FromFilename(meta.Filename)
	}
	stats.Workflow = string(w)

	extractor, err := extraction.ForWorkflow(w)
	if err != nil {
		return stats, fmt.Errorf("%s: %w", meta.Filename, err)
	}

	log := logrus.WithFields(logrus.Fields{"file": meta.Filename, "workflow": w})

	variantSetId, err := i.VariantSets.Add(models.VariantSet{
		Name:           string(w),
		DatasetId:      meta.DatasetId,
		ReferenceSetId: meta.ReferenceSetId,
	})
	if err != nil {
		return stats, fmt.Errorf("%s: %w", meta.Filename, err)
	}
	callSetId, err := i.CallSets.Add(models.CallSet{
		Name:        meta.SampleId,
		BioSampleId: meta.BioSampleId,
	}, variantSetId)
	if err != nil {
		return stats, fmt.Errorf("%s: %w", meta.Filename, err)
	}
	stats.VariantSetId, stats.CallSetId = variantSetId, callSetId

	tmpl := extraction.CallTemplate{VariantSetId: variantSetId, CallSetId: callSetId}
	for {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("%s: after %d records: %w", meta.Filename, stats.Records, err)
		}
		record, err := source.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("%s: %w", meta.Filename, err)
		}
		stats.Records++

		extracted, err := extractor.Extract(tmpl, record, meta)
		if err != nil {
			return stats, fmt.Errorf("%s: record %d: %w", meta.Filename, stats.Records, err)
		}
		if extracted.Warning != nil {
			if stats.Warnings == 0 {
				log.Warn(extracted.Warning)
			}
			stats.Warnings++
		}

		before := i.Variants.Len()
		if _, err := i.Variants.Add(record.Variant(), extracted.Calls); err != nil {
			return stats, fmt.Errorf("%s: record %d: %w", meta.Filename, stats.Records, err)
		}
		stats.NewVariants += i.Variants.Len() - before
		stats.Calls += len(extracted.Calls)
	}

	if skipper, ok := source.(interface{ Skipped() int }); ok {
		stats.Skipped = skipper.Skipped()
	}

	log.WithFields(logrus.Fields{
		"records":     stats.Records,
		"calls":       stats.Calls,
		"newVariants": stats.NewVariants,
		"warnings":    stats.Warnings,
		"skipped":     stats.Skipped,
	}).Info("file ingested")

	return stats, nil
}

// ProcessPath opens the VCF at path and ingests it.
func (i *IngestionService) ProcessPath(ctx context.Context, path string, meta models.FileMetadata) (ingest.FileStats, error) {
	if meta.Filename == "" {
		meta.Filename = filepath.Base(path)
	}

	reader, err := vcf.Open(path)
	if err != nil {
		return ingest.FileStats{Filename: meta.Filename}, err
	}
	defer reader.Close()

	return i.ProcessFile(ctx, meta, reader)
}

// Export hands every aggregated variant, variant set and call set to w.
// It does not close w.
func (i *IngestionService) Export(ctx context.Context, w DocumentWriter) (ingest.ExportStats, error) {
	i.storesMux.Lock()
	defer i.storesMux.Unlock()

	var stats ingest.ExportStats

	variantSets, err := i.VariantSets.ReverseIdentities()
	if err != nil {
		return stats, err
	}
	for id, vs := range variantSets {
		if err := w.Write(ctx, indexes.VariantSetsIndex, strconv.FormatUint(uint64(id), 10), indexes.NewVariantSet(id, vs)); err != nil {
			return stats, err
		}
		stats.VariantSets++
	}

	callSets, err := i.CallSets.ReverseIdentities()
	if err != nil {
		return stats, err
	}
	for id, cs := range callSets {
		if err := w.Write(ctx, indexes.CallSetsIndex, strconv.FormatUint(uint64(id), 10), indexes.NewCallSet(id, cs)); err != nil {
			return stats, err
		}
		stats.CallSets++
	}

	for agg, err := range i.Variants.StreamAggregates() {
		if err != nil {
			return stats, err
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := w.Write(ctx, indexes.VariantsIndex, strconv.FormatUint(agg.Id, 10), indexes.NewVariant(agg.Id, agg.Variant, agg.Calls)); err != nil {
			return stats, err
		}
		stats.Variants++
		stats.Calls += len(agg.Calls)
	}

	logrus.WithFields(logrus.Fields{
		"variants":    stats.Variants,
		"calls":       stats.Calls,
		"variantSets": stats.VariantSets,
		"callSets":    stats.CallSets,
	}).Info("export complete")

	return stats, nil
}

func (i *IngestionService) Stats() ingest.StoreStats {
	i.storesMux.Lock()
	defer i.storesMux.Unlock()

	return ingest.StoreStats{
		Variants:    i.Variants.Len(),
		Calls:       i.Variants.CallCount(),
		VariantSets: i.VariantSets.Len(),
		CallSets:    i.CallSets.Len(),
		NextVariant: i.Variants.Next(),
	}
}

// Checkpoint records the identity counters of every store.
func (i *IngestionService) Checkpoint() error {
	i.storesMux.Lock()
	defer i.storesMux.Unlock()

	return errors.Join(
		i.Variants.Checkpoint(),
		i.VariantSets.Checkpoint(),
		i.CallSets.Checkpoint(),
	)
}

// Close aborts any running request, then checkpoints and closes every
// store. Failures are logged.
func (i *IngestionService) Close() {
	i.cancel()

	i.storesMux.Lock()
	defer i.storesMux.Unlock()

	if i.Initialized {
		close(i.stop)
		i.Initialized = false
	}

	// distinct stores share nothing and can be closed side by side
	var g errgroup.Group
	g.Go(func() error { i.Variants.Close(); return nil })
	g.Go(func() error { i.VariantSets.Close(); return nil })
	g.Go(func() error { i.CallSets.Close(); return nil })
	g.Wait()

	logrus.Info("stores closed")
}

// Purge empties every store and resets the identity counters.
func (i *IngestionService) Purge() {
	i.storesMux.Lock()
	defer i.storesMux.Unlock()

	var g errgroup.Group
	g.Go(func() error { i.Variants.Purge(); return nil })
	g.Go(func() error { i.VariantSets.Purge(); return nil })
	g.Go(func() error { i.CallSets.Purge(); return nil })
	g.Wait()

	logrus.Info("stores purged")
}

// QueueFile registers an ingestion request for filename.
func (i *IngestionService) QueueFile(filename string) (*ingest.IngestRequest, error) {
	if i.FilenameAlreadyRunning(filename) {
		return nil, fmt.Errorf("%s: %w", filename, ErrAlreadyRunning)
	}

	now := time.Now().Format(time.RFC3339Nano)
	req := &ingest.IngestRequest{
		Id:        uuid.New(),
		Filename:  filename,
		State:     ingest.Queued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	i.IngestRequestMapMux.Lock()
	i.IngestRequestMap[req.Id.String()] = req
	i.IngestRequestMapMux.Unlock()

	return req, nil
}

// RunRequest ingests the file of a queued request, reporting its state
// changes through IngestRequestChan. Once the service is closed the
// request is aborted and its updates are dropped.
func (i *IngestionService) RunRequest(req *ingest.IngestRequest, path string, meta models.FileMetadata) {
	running := *req
	running.State = ingest.Running
	i.publish(&running)

	stats, err := i.ProcessPath(i.ctx, path, meta)

	done := running
	done.Stats = &stats
	if err != nil {
		done.State = ingest.Error
		done.Message = err.Error()
		logrus.WithField("file", req.Filename).WithError(err).Error("ingestion failed")
	} else {
		done.State = ingest.Done
		done.Message = "File ingested"
	}
	i.publish(&done)
}

// FailRequest marks a queued request as failed before it could run.
func (i *IngestionService) FailRequest(req *ingest.IngestRequest, err error) {
	failed := *req
	failed.State = ingest.Error
	failed.Message = err.Error()
	logrus.WithField("file", req.Filename).WithError(err).Error("ingestion failed")
	i.publish(&failed)
}

// publish hands a request update to the listener started by Init.
func (i *IngestionService) publish(req *ingest.IngestRequest) {
	select {
	case i.IngestRequestChan <- req:
	case <-i.stop:
	}
}

// Requests returns a copy of every known ingestion request.
func (i *IngestionService) Requests() []ingest.IngestRequest {
	i.IngestRequestMapMux.RLock()
	defer i.IngestRequestMapMux.RUnlock()

	out := make([]ingest.IngestRequest, 0, len(i.IngestRequestMap))
	for _, r := range i.IngestRequestMap {
		out = append(out, *r)
	}
	return out
}

func (i *IngestionService) FilenameAlreadyRunning(filename string) bool {
	i.IngestRequestMapMux.Lock()
	defer i.IngestRequestMapMux.Unlock()

	for _, v := range i.IngestRequestMap {
		if v.Filename == filename && (v.State == ingest.Queued || v.State == ingest.Running) {
			return true
		}
	}
	return false
}
