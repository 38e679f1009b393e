package extraction

import (
	"fmt"

	"ga4gh/loader/models/constants"
	"ga4gh/loader/models/constants/classifier"
	"ga4gh/loader/models/constants/strategy"
	"ga4gh/loader/models/constants/workflow"
)

var extractors = map[constants.Workflow]Extractor{
	// merged calls, no per-sample columns
	workflow.Consensus: {Strategy: strategy.Empty},

	// tumor-only outputs
	workflow.DkfzCopyNumber: {Strategy: strategy.Single},
	workflow.Smufin:         {Strategy: strategy.Single},

	// columns named after the sample, tumor ending in T, tumor first
	workflow.BroadDRanger:        {Strategy: strategy.Dual, Classifier: classifier.Suffix, CandidatePosition: 0},
	workflow.BroadSnowman:        {Strategy: strategy.Dual, Classifier: classifier.Suffix, CandidatePosition: 0},
	workflow.BroadDRangerSnowman: {Strategy: strategy.Dual, Classifier: classifier.Suffix, CandidatePosition: 0},

	// columns named after the aliquot ids
	workflow.BroadMutect: {Strategy: strategy.Dual, Classifier: classifier.AliquotId, CandidatePosition: 0},
	workflow.EmblDelly:   {Strategy: strategy.Dual, Classifier: classifier.AliquotId, CandidatePosition: 0},

	// NORMAL/CONTROL then TUMOR/TUMOUR
	workflow.DkfzSnvCalling:   {Strategy: strategy.Dual, Classifier: classifier.ExactName, CandidatePosition: 1},
	workflow.DkfzIndelCalling: {Strategy: strategy.Dual, Classifier: classifier.ExactName, CandidatePosition: 1},
	workflow.SangerSvcp:       {Strategy: strategy.Dual, Classifier: classifier.ExactName, CandidatePosition: 1},
	workflow.Muse:             {Strategy: strategy.Dual, Classifier: classifier.ExactName, CandidatePosition: 1},
}

func init() {
	for w, x := range extractors {
		x.Workflow = w
		extractors[w] = x
	}
}

// ForWorkflow returns the extractor of w. There is no default: files of an
// unknown workflow must not be loaded.
func ForWorkflow(w constants.Workflow) (Extractor, error) {
	x, ok := extractors[w]
	if !ok {
		return Extractor{}, fmt.Errorf("%q: %w", w, ErrUnknownWorkflow)
	}
	return x, nil
}
