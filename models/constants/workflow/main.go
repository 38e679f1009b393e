package workflow

import (
	"ga4gh/loader/models/constants"
	"path/filepath"
	"strings"
)

const (
	Unknown constants.Workflow = ""

	Consensus           constants.Workflow = "consensus"
	BroadDRanger        constants.Workflow = "broad-dRanger"
	BroadSnowman        constants.Workflow = "broad-snowman"
	BroadDRangerSnowman constants.Workflow = "broad-dRanger_snowman"
	BroadMutect         constants.Workflow = "broad-mutect"
	DkfzSnvCalling      constants.Workflow = "dkfz-snvCalling"
	DkfzIndelCalling    constants.Workflow = "dkfz-indelCalling"
	DkfzCopyNumber      constants.Workflow = "dkfz-copyNumberEstimation"
	EmblDelly           constants.Workflow = "embl-delly"
	SangerSvcp          constants.Workflow = "svcp"
	Muse                constants.Workflow = "MUSE"
	Smufin              constants.Workflow = "smufin"
)

// All lists every workflow the loader knows how to extract calls from
var All = []constants.Workflow{
	Consensus,
	BroadDRanger,
	BroadSnowman,
	BroadDRangerSnowman,
	BroadMutect,
	DkfzSnvCalling,
	DkfzIndelCalling,
	DkfzCopyNumber,
	EmblDelly,
	SangerSvcp,
	Muse,
	Smufin,
}

// CastToWorkflow matches a workflow token (possibly carrying a version
// suffix such as "svcp_1-0-5" or "broad-mutect-v3") against the known
// workflows. The longest matching name wins.
func CastToWorkflow(text string) constants.Workflow {
	lowered := strings.ToLower(strings.TrimSpace(text))
	if lowered == "" {
		return Unknown
	}

	best := Unknown
	for _, w := range All {
		name := strings.ToLower(string(w))
		if !strings.HasPrefix(lowered, name) {
			continue
		}
		// the name must end at a token boundary
		if len(lowered) > len(name) {
			switch lowered[len(name)] {
			case '_', '-', '.':
			default:
				continue
			}
		}
		if len(name) > len(best) {
			best = w
		}
	}
	return best
}

// FromFilename extracts the workflow from a source file name of the form
// <aliquot>.<workflow>[_<version>].<date>.<...>.vcf.gz
func FromFilename(filename string) constants.Workflow {
	tokens := strings.Split(filepath.Base(filename), ".")
	if len(tokens) < 2 {
		return Unknown
	}
	return CastToWorkflow(tokens[1])
}
