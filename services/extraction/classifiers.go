package extraction

import (
	"regexp"

	"ga4gh/loader/models"
	"ga4gh/loader/models/constants"
	"ga4gh/loader/models/constants/classifier"
)

var (
	tumorSampleNames  = []string{"TUMOR", "TUMOUR"}
	tumorSuffixRegexp = regexp.MustCompile(`^.*T$`)
)

// IsTumorSample reports whether c accepts sampleName as the tumor column of
// a file described by meta.
func IsTumorSample(c constants.Classifier, sampleName string, meta models.FileMetadata) bool {
	switch c {
	case classifier.ExactName:
		for _, name := range tumorSampleNames {
			if sampleName == name {
				return true
			}
		}
		return false
	case classifier.Suffix:
		return tumorSuffixRegexp.MatchString(sampleName)
	case classifier.AliquotId:
		return meta.TumorAliquotId != "" && sampleName == meta.TumorAliquotId
	default:
		return false
	}
}
