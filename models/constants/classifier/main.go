package classifier

import (
	"ga4gh/loader/models/constants"
)

const (
	None constants.Classifier = iota

	// sample column named literally TUMOR or TUMOUR
	ExactName
	// sample column name matching ^.*T$
	Suffix
	// sample column named after the tumor aliquot id of the file metadata
	AliquotId
)

func ClassifierToString(c constants.Classifier) string {
	switch c {
	case ExactName:
		return "EXACT_NAME"
	case Suffix:
		return "SUFFIX"
	case AliquotId:
		return "ALIQUOT_ID"
	default:
		return "NONE"
	}
}
