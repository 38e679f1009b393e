package common

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"ga4gh/loader/models"

	"github.com/stretchr/testify/require"
	yaml "gopkg.in/yaml.v2"
)

// InitConfig loads test.config.yml next to this file.
func InitConfig() *models.Config {
	var cfg models.Config

	// get this file's path
	_, filename, _, _ := runtime.Caller(0)
	folderpath := path.Dir(filename)

	// retrieve common's test.config
	f, err := os.Open(fmt.Sprintf("%s/test.config.yml", folderpath))
	if err != nil {
		processError(err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	err = decoder.Decode(&cfg)
	if err != nil {
		processError(err)
	}

	return &cfg
}

// InitTestConfig is InitConfig with every path pointed into a temporary
// directory of t.
func InitTestConfig(t *testing.T) *models.Config {
	t.Helper()
	cfg := InitConfig()
	cfg.Store.Dir = filepath.Join(t.TempDir(), "store")
	cfg.Api.VcfPath = t.TempDir()
	return cfg
}

func processError(err error) {
	fmt.Println(err)
	os.Exit(2)
}

// SliceSource replays records in order.
type SliceSource struct {
	Records []models.RawVariantRecord
	next    int
}

func (s *SliceSource) Next() (models.RawVariantRecord, error) {
	if s.next >= len(s.Records) {
		return models.RawVariantRecord{}, io.EOF
	}
	s.next++
	return s.Records[s.next-1], nil
}

// Document is one write received by a MemoryWriter.
type Document struct {
	Index string
	Id    string
	Doc   any
}

// MemoryWriter records every document written to it.
type MemoryWriter struct {
	mu     sync.Mutex
	Docs   []Document
	Closed bool
}

func (w *MemoryWriter) Write(ctx context.Context, index string, id string, doc any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Docs = append(w.Docs, Document{Index: index, Id: id, Doc: doc})
	return nil
}

func (w *MemoryWriter) Close(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Closed = true
	return nil
}

// InIndex returns the documents written to index.
func (w *MemoryWriter) InIndex(index string) []Document {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []Document
	for _, d := range w.Docs {
		if d.Index == index {
			out = append(out, d)
		}
	}
	return out
}

// WriteVcf writes content as dir/name and returns its path.
func WriteVcf(t *testing.T, dir string, name string, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

// a paired tumour/normal file as written by the Sanger pipeline
const SangerVcf = `##fileformat=VCFv4.1
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	NORMAL	TUMOUR
1	1000	.	A	T	.	PASS	DP=30	GT:DP	0/0:20	0/1:12
1	2000	.	C	G,CT	.	PASS	.	GT	0/0	1/2
chr2	300	.	G	A	.	PASS	SOMATIC	GT	0/0	0/1
`
