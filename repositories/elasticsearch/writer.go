package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esutil"
	"github.com/sirupsen/logrus"
)

// BulkWriter indexes documents through the elasticsearch bulk API.
// Documents are buffered and flushed by the bulk indexer workers; Close
// flushes what is left and reports whether every document was accepted.
type BulkWriter struct {
	indexer esutil.BulkIndexer

	countSuccessful uint64
	countFailed     uint64
}

func NewBulkWriter(es *elasticsearch.Client, numWorkers int) (*BulkWriter, error) {
	if numWorkers < 1 {
		numWorkers = 1
	}

	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:     es,
		NumWorkers: numWorkers,
		OnError: func(ctx context.Context, err error) {
			logrus.WithError(err).Error("bulk indexer error")
		},
	})
	if err != nil {
		return nil, err
	}
	return &BulkWriter{indexer: bi}, nil
}

func (w *BulkWriter) Write(ctx context.Context, index string, id string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("cannot encode %s document %s: %w", index, id, err)
	}

	return w.indexer.Add(ctx, esutil.BulkIndexerItem{
		Action:     "index",
		Index:      index,
		DocumentID: id,
		Body:       bytes.NewReader(data),

		OnSuccess: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem) {
			atomic.AddUint64(&w.countSuccessful, 1)
		},

		OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
			atomic.AddUint64(&w.countFailed, 1)
			log := logrus.WithFields(logrus.Fields{"index": item.Index, "id": item.DocumentID})
			if err != nil {
				log.WithError(err).Error("indexing document failed")
			} else {
				log.Errorf("indexing document failed: %s: %s", res.Error.Type, res.Error.Reason)
			}
		},
	})
}

func (w *BulkWriter) Close(ctx context.Context) error {
	if err := w.indexer.Close(ctx); err != nil {
		return err
	}

	stats := w.indexer.Stats()
	logrus.WithFields(logrus.Fields{
		"indexed": stats.NumIndexed,
		"failed":  stats.NumFailed,
	}).Info("bulk indexing complete")

	if failed := atomic.LoadUint64(&w.countFailed); failed > 0 {
		return fmt.Errorf("%d of %d documents failed to index", failed, failed+atomic.LoadUint64(&w.countSuccessful))
	}
	return nil
}

func (w *BulkWriter) Successful() uint64 { return atomic.LoadUint64(&w.countSuccessful) }
func (w *BulkWriter) Failed() uint64     { return atomic.LoadUint64(&w.countFailed) }
