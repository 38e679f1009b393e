package zygosity

import (
	"ga4gh/loader/models/constants"
)

const (
	Unknown constants.Zygosity = iota
	// Diploid or higher
	Heterozygous
	HomozygousReference
	HomozygousAlternate

	// Haploid (deliberately below diploid for sequential id'ing purposes)
	Reference
	Alternate
)

// FromAlleles classifies resolved allele indices
// (0 = reference, >0 = alternate, <0 = unknown)
func FromAlleles(alleles []int32) constants.Zygosity {
	for _, a := range alleles {
		if a < 0 {
			return Unknown
		}
	}

	switch len(alleles) {
	case 1:
		if alleles[0] == 0 {
			return Reference
		}
		return Alternate
	case 2:
		left, right := alleles[0], alleles[1]
		if left != right {
			return Heterozygous
		}
		if left == 0 {
			return HomozygousReference
		}
		return HomozygousAlternate
	default:
		// TODO: handle triploid?
		return Unknown
	}
}

func ZygosityToString(zyg constants.Zygosity) string {
	switch zyg {
	// Haploid
	case Reference:
		return "REFERENCE"
	case Alternate:
		return "ALTERNATE"

	// Diploid or higher
	case Heterozygous:
		return "HETEROZYGOUS"
	case HomozygousReference:
		return "HOMOZYGOUS_REFERENCE"
	case HomozygousAlternate:
		return "HOMOZYGOUS_ALTERNATE"
	default:
		return "UNKNOWN"
	}
}
