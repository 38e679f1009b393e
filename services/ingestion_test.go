package services

import (
	"context"
	"testing"
	"time"

	"ga4gh/loader/models"
	st "ga4gh/loader/models/constants/storage-type"
	"ga4gh/loader/models/constants/workflow"
	"ga4gh/loader/models/indexes"
	"ga4gh/loader/models/ingest"
	"ga4gh/loader/repositories/identity"
	"ga4gh/loader/services/extraction"
	"ga4gh/loader/tests/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T, cfg *models.Config) *IngestionService {
	t.Helper()
	iz, err := NewIngestionService(cfg)
	require.NoError(t, err)
	return iz
}

func rec(pos int64, ref string, alts []string, genotypes ...models.RawGenotype) models.RawVariantRecord {
	return models.RawVariantRecord{
		ReferenceName:  "1",
		Start:          pos,
		End:            pos + int64(len(ref)),
		ReferenceBases: ref,
		AlternateBases: alts,
		Genotypes:      genotypes,
	}
}

func gt(name string, alleles ...string) models.RawGenotype {
	return models.RawGenotype{SampleName: name, Alleles: alleles}
}

func sangerMeta(sample string) models.FileMetadata {
	return models.FileMetadata{
		Filename:       sample + ".svcp_1-0-5.20150707.somatic.snv_mnv.vcf.gz",
		Workflow:       "svcp_1-0-5",
		DatasetId:      "BRCA-UK",
		ReferenceSetId: "hs37d5",
		SampleId:       sample,
		BioSampleId:    "SP-" + sample,
	}
}

func pairedRecords() []models.RawVariantRecord {
	return []models.RawVariantRecord{
		rec(100, "A", []string{"T"}, gt("NORMAL", "A", "A"), gt("TUMOUR", "A", "T")),
		rec(200, "C", []string{"G", "CT"}, gt("NORMAL", "C", "C"), gt("TUMOUR", "G", "CT")),
		// columns swapped, found by fallback
		rec(300, "G", []string{"A"}, gt("TUMOUR", "G", "A"), gt("NORMAL", "G", "G")),
	}
}

func TestProcessFile(t *testing.T) {
	iz := newService(t, common.InitTestConfig(t))
	defer iz.Close()

	stats, err := iz.ProcessFile(context.Background(), sangerMeta("SA1"), &common.SliceSource{Records: pairedRecords()})
	require.NoError(t, err)
	assert.Equal(t, string(workflow.SangerSvcp), stats.Workflow)
	assert.Equal(t, 3, stats.Records)
	assert.Equal(t, 3, stats.Calls)
	assert.Equal(t, 3, stats.NewVariants)
	assert.Equal(t, 1, stats.Warnings)

	calls, err := iz.Variants.Calls(pairedRecords()[1].Variant())
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, []int32{1, 2}, calls[0].Alleles)
	assert.Equal(t, stats.VariantSetId, calls[0].VariantSetId)
	assert.Equal(t, stats.CallSetId, calls[0].CallSetId)

	// a second sample through another workflow aggregates onto the same variants
	museMeta := sangerMeta("SA2")
	museMeta.Workflow = string(workflow.Muse)
	other, err := iz.ProcessFile(context.Background(), museMeta, &common.SliceSource{Records: pairedRecords()[:1]})
	require.NoError(t, err)
	assert.Equal(t, 0, other.NewVariants)
	assert.NotEqual(t, stats.VariantSetId, other.VariantSetId)
	assert.NotEqual(t, stats.CallSetId, other.CallSetId)

	calls, err = iz.Variants.Calls(pairedRecords()[0].Variant())
	require.NoError(t, err)
	assert.Len(t, calls, 2)

	s := iz.Stats()
	assert.Equal(t, 3, s.Variants)
	assert.Equal(t, uint64(4), s.Calls)
	assert.Equal(t, 2, s.VariantSets)
	assert.Equal(t, 2, s.CallSets)
}

func TestProcessFileSameSampleAcrossWorkflows(t *testing.T) {
	iz := newService(t, common.InitTestConfig(t))
	defer iz.Close()

	first, err := iz.ProcessFile(context.Background(), sangerMeta("SA1"), &common.SliceSource{Records: pairedRecords()})
	require.NoError(t, err)

	museMeta := sangerMeta("SA1")
	museMeta.Workflow = string(workflow.Muse)
	second, err := iz.ProcessFile(context.Background(), museMeta, &common.SliceSource{Records: pairedRecords()})
	require.NoError(t, err)

	assert.Equal(t, first.CallSetId, second.CallSetId)
	ids, err := iz.CallSets.VariantSetIds(first.CallSetId)
	require.NoError(t, err)
	assert.Equal(t, []uint32{first.VariantSetId, second.VariantSetId}, ids)
}

func TestProcessFileErrors(t *testing.T) {
	iz := newService(t, common.InitTestConfig(t))
	defer iz.Close()

	t.Run("unknown workflow", func(t *testing.T) {
		meta := models.FileMetadata{Filename: "x.some-caller_1.vcf.gz", Workflow: "some-caller"}
		_, err := iz.ProcessFile(context.Background(), meta, &common.SliceSource{})
		assert.ErrorIs(t, err, extraction.ErrUnknownWorkflow)
	})

	t.Run("ambiguous tumor aborts the file", func(t *testing.T) {
		records := []models.RawVariantRecord{
			rec(100, "A", []string{"T"}, gt("NORMAL", "A", "A"), gt("TUMOUR", "A", "T")),
			rec(150, "A", []string{"T"}, gt("SAMPLE_A", "A", "T"), gt("SAMPLE_A", "A", "T")),
			rec(180, "A", []string{"T"}, gt("NORMAL", "A", "A"), gt("TUMOUR", "A", "T")),
		}
		stats, err := iz.ProcessFile(context.Background(), sangerMeta("SA9"), &common.SliceSource{Records: records})
		assert.ErrorIs(t, err, extraction.ErrAmbiguousTumorSample)
		assert.Equal(t, 2, stats.Records)

		ok, err := iz.Variants.Contains(records[2].Variant())
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unresolvable allele", func(t *testing.T) {
		records := []models.RawVariantRecord{
			rec(100, "A", []string{"T"}, gt("NORMAL", "A", "A"), gt("TUMOUR", "A", "C")),
		}
		_, err := iz.ProcessFile(context.Background(), sangerMeta("SA8"), &common.SliceSource{Records: records})
		assert.ErrorIs(t, err, extraction.ErrAlleleResolution)
	})
}

func TestIdentityExhaustionAbortsIngestion(t *testing.T) {
	cfg := common.InitTestConfig(t)
	cfg.Store.VariantIdInitial = ^uint64(0) - 2
	iz := newService(t, cfg)
	defer iz.Close()

	_, err := iz.ProcessFile(context.Background(), sangerMeta("SA1"), &common.SliceSource{Records: pairedRecords()})
	assert.ErrorIs(t, err, identity.ErrIdentityExhausted)
	assert.Equal(t, 2, iz.Variants.Len())
}

func TestExport(t *testing.T) {
	iz := newService(t, common.InitTestConfig(t))
	defer iz.Close()

	_, err := iz.ProcessFile(context.Background(), sangerMeta("SA1"), &common.SliceSource{Records: pairedRecords()})
	require.NoError(t, err)

	w := &common.MemoryWriter{}
	stats, err := iz.Export(context.Background(), w)
	require.NoError(t, err)
	assert.Equal(t, ingest.ExportStats{Variants: 3, Calls: 3, VariantSets: 1, CallSets: 1}, stats)
	assert.False(t, w.Closed)

	variants := w.InIndex(indexes.VariantsIndex)
	require.Len(t, variants, 3)
	for _, d := range variants {
		doc := d.Doc.(indexes.Variant)
		require.Len(t, doc.Calls, 1)
		assert.NotEmpty(t, doc.Calls[0].Zygosity)
	}

	callSets := w.InIndex(indexes.CallSetsIndex)
	require.Len(t, callSets, 1)
	cs := callSets[0].Doc.(indexes.CallSet)
	assert.Equal(t, "SA1", cs.Name)
	assert.Equal(t, []uint32{0}, cs.VariantSetIds)

	variantSets := w.InIndex(indexes.VariantSetsIndex)
	require.Len(t, variantSets, 1)
	assert.Equal(t, "svcp", variantSets[0].Doc.(indexes.VariantSet).Name)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = iz.Export(ctx, &common.MemoryWriter{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReproducibleAfterPurge(t *testing.T) {
	iz := newService(t, common.InitTestConfig(t))
	defer iz.Close()

	run := func() map[string]uint64 {
		_, err := iz.ProcessFile(context.Background(), sangerMeta("SA1"), &common.SliceSource{Records: pairedRecords()})
		require.NoError(t, err)
		ids := map[string]uint64{}
		for agg, err := range iz.Variants.StreamAggregates() {
			require.NoError(t, err)
			ids[agg.Variant.ReferenceBases] = agg.Id
		}
		return ids
	}

	first := run()
	iz.Purge()
	assert.Equal(t, 0, iz.Stats().Variants)
	assert.Equal(t, first, run())
}

func TestResumeFromPersistentStores(t *testing.T) {
	for _, tier := range []string{"persistent", "hybrid"} {
		t.Run(tier, func(t *testing.T) {
			cfg := common.InitTestConfig(t)
			cfg.Store.Type = st.CastToStorageType(tier)
			cfg.Store.HybridCapacityBytes = 64

			iz := newService(t, cfg)
			_, err := iz.ProcessFile(context.Background(), sangerMeta("SA1"), &common.SliceSource{Records: pairedRecords()})
			require.NoError(t, err)
			before := iz.Stats()
			iz.Close()

			cfg.Store.ForceNew = false
			resumed := newService(t, cfg)
			defer resumed.Close()
			assert.Equal(t, before, resumed.Stats())

			stats, err := resumed.ProcessFile(context.Background(), sangerMeta("SA2"), &common.SliceSource{Records: pairedRecords()[:1]})
			require.NoError(t, err)
			assert.Equal(t, uint32(0), stats.VariantSetId)
			assert.Equal(t, uint32(1), stats.CallSetId)
			assert.Equal(t, 0, stats.NewVariants)
		})
	}
}

func TestProcessPathAndRequests(t *testing.T) {
	cfg := common.InitTestConfig(t)
	iz := newService(t, cfg)
	defer iz.Close()

	name := "f82d213f.svcp_1-0-5.20150707.somatic.snv_mnv.vcf"
	p := common.WriteVcf(t, cfg.Api.VcfPath, name, common.SangerVcf)

	req, err := iz.QueueFile(name)
	require.NoError(t, err)
	assert.True(t, iz.FilenameAlreadyRunning(name))

	_, err = iz.QueueFile(name)
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	iz.RunRequest(req, p, models.FileMetadata{Workflow: "svcp", SampleId: "SA1"})

	var done ingest.IngestRequest
	assert.Eventually(t, func() bool {
		for _, r := range iz.Requests() {
			if r.Id == req.Id && r.State == ingest.Done {
				done = r
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
	assert.False(t, iz.FilenameAlreadyRunning(name))
	require.NotNil(t, done.Stats)
	assert.Equal(t, 3, done.Stats.Records)
	assert.Equal(t, name, done.Stats.Filename)

	_, err = iz.ProcessPath(context.Background(), p+".missing", models.FileMetadata{Workflow: "svcp"})
	assert.Error(t, err)
}

func TestProcessFileStopsWhenCancelled(t *testing.T) {
	iz := newService(t, common.InitTestConfig(t))
	defer iz.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stats, err := iz.ProcessFile(ctx, sangerMeta("SA1"), &common.SliceSource{Records: pairedRecords()})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, stats.Records)
	assert.Equal(t, 0, iz.Stats().Variants)
	assert.Equal(t, 0, iz.Stats().CallSets)
}

func TestRequestUpdatesAfterCloseReturn(t *testing.T) {
	cfg := common.InitTestConfig(t)
	iz := newService(t, cfg)

	name := "f82d213f.svcp_1-0-5.20150707.somatic.snv_mnv.vcf"
	p := common.WriteVcf(t, cfg.Api.VcfPath, name, common.SangerVcf)
	req, err := iz.QueueFile(name)
	require.NoError(t, err)

	iz.Close()

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		iz.RunRequest(req, p, models.FileMetadata{Workflow: "svcp", SampleId: "SA1"})
		iz.FailRequest(req, assert.AnError)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("request updates blocked after Close")
	}
}
