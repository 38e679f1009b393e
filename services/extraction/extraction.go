// Package extraction turns raw variant records into normalized calls. The
// calling workflow of a file decides how many genotype columns a record
// carries and which of them holds the tumor sample.
package extraction

import (
	"errors"
	"fmt"

	"ga4gh/loader/models"
	"ga4gh/loader/models/constants"
	"ga4gh/loader/models/constants/classifier"
	"ga4gh/loader/models/constants/strategy"

	"github.com/sirupsen/logrus"
)

var (
	ErrUnknownWorkflow       = errors.New("unknown workflow")
	ErrGenotypeCount         = errors.New("unexpected number of genotype columns")
	ErrAmbiguousTumorSample  = errors.New("no genotype column classified as tumor sample")
	ErrAlleleResolution      = errors.New("allele cannot be resolved against the variant")
	ErrTumorPositionFallback = errors.New("tumor sample found at fallback position")
)

// CallTemplate carries the identities every call extracted from one file
// shares.
type CallTemplate struct {
	VariantSetId uint32
	CallSetId    uint32
}

// Extraction is the outcome of extracting one record. Warning is set when
// the calls were produced after a recoverable anomaly.
type Extraction struct {
	Calls   []models.Call
	Warning error
}

// Extractor is the resolved extraction recipe of one workflow.
type Extractor struct {
	Workflow   constants.Workflow
	Strategy   constants.Strategy
	Classifier constants.Classifier
	// CandidatePosition is the genotype column tried first as the tumor
	// sample by the dual strategy
	CandidatePosition int
}

func (x Extractor) String() string {
	s := fmt.Sprintf("%s(%s", x.Workflow, strategy.StrategyToString(x.Strategy))
	if x.Strategy == strategy.Dual {
		s += fmt.Sprintf(", %s@%d", classifier.ClassifierToString(x.Classifier), x.CandidatePosition)
	}
	return s + ")"
}

// Extract produces the calls of record. meta is only consulted by
// classifiers that need file-level information.
func (x Extractor) Extract(tmpl CallTemplate, record models.RawVariantRecord, meta models.FileMetadata) (Extraction, error) {
	if got, want := len(record.Genotypes), strategy.ExpectedGenotypeColumns(x.Strategy); got != want {
		return Extraction{}, fmt.Errorf("%s: %s:%d has %d genotype columns, expected %d: %w",
			x, record.ReferenceName, record.Start, got, want, ErrGenotypeCount)
	}

	switch x.Strategy {
	case strategy.Empty:
		return Extraction{Calls: []models.Call{emptyCall(tmpl, record)}}, nil

	case strategy.Single:
		c, err := buildCall(tmpl, record, record.Genotypes[0])
		if err != nil {
			return Extraction{}, fmt.Errorf("%s: %s:%d: %w", x, record.ReferenceName, record.Start, err)
		}
		return Extraction{Calls: []models.Call{c}}, nil

	case strategy.Dual:
		return x.extractDual(tmpl, record, meta)

	default:
		return Extraction{}, fmt.Errorf("%s: unsupported strategy: %w", x, ErrUnknownWorkflow)
	}
}

func (x Extractor) extractDual(tmpl CallTemplate, record models.RawVariantRecord, meta models.FileMetadata) (Extraction, error) {
	position := x.CandidatePosition
	var warning error

	if !IsTumorSample(x.Classifier, record.Genotypes[position].SampleName, meta) {
		fallback := 1 - position
		if !IsTumorSample(x.Classifier, record.Genotypes[fallback].SampleName, meta) {
			return Extraction{}, fmt.Errorf("%s: %s:%d: samples %q and %q: %w",
				x, record.ReferenceName, record.Start,
				record.Genotypes[0].SampleName, record.Genotypes[1].SampleName, ErrAmbiguousTumorSample)
		}

		warning = fmt.Errorf("%s: sample %q at position %d rejected, using %q at position %d: %w",
			x, record.Genotypes[position].SampleName, position,
			record.Genotypes[fallback].SampleName, fallback, ErrTumorPositionFallback)
		logrus.WithFields(logrus.Fields{
			"workflow": x.Workflow,
			"variant":  fmt.Sprintf("%s:%d", record.ReferenceName, record.Start),
		}).Debug(warning)
		position = fallback
	}

	c, err := buildCall(tmpl, record, record.Genotypes[position])
	if err != nil {
		return Extraction{}, fmt.Errorf("%s: %s:%d: %w", x, record.ReferenceName, record.Start, err)
	}
	return Extraction{Calls: []models.Call{c}, Warning: warning}, nil
}

// emptyCall stands in for records that carry no per-sample genotype.
func emptyCall(tmpl CallTemplate, record models.RawVariantRecord) models.Call {
	return models.Call{
		VariantSetId:       tmpl.VariantSetId,
		CallSetId:          tmpl.CallSetId,
		Info:               mergeInfo(record.Info, nil),
		GenotypeLikelihood: models.NonInformativeLikelihood,
		Phased:             false,
		Alleles:            []int32{models.UnknownAllele},
	}
}

func buildCall(tmpl CallTemplate, record models.RawVariantRecord, genotype models.RawGenotype) (models.Call, error) {
	alleles, err := ResolveAlleles(record.ReferenceBases, record.AlternateBases, genotype.Alleles)
	if err != nil {
		return models.Call{}, fmt.Errorf("sample %q: %w", genotype.SampleName, err)
	}

	likelihood := models.NonInformativeLikelihood
	if genotype.HasLikelihood {
		likelihood = genotype.Likelihood
	}

	return models.Call{
		VariantSetId:       tmpl.VariantSetId,
		CallSetId:          tmpl.CallSetId,
		Info:               mergeInfo(record.Info, genotype.Attributes),
		GenotypeLikelihood: likelihood,
		Phased:             genotype.Phased,
		Alleles:            alleles,
	}, nil
}

// mergeInfo overlays sample attributes on the record info.
func mergeInfo(info, attributes map[string]string) map[string]string {
	if len(info) == 0 && len(attributes) == 0 {
		return nil
	}
	merged := make(map[string]string, len(info)+len(attributes))
	for k, v := range info {
		merged[k] = v
	}
	for k, v := range attributes {
		merged[k] = v
	}
	return merged
}
