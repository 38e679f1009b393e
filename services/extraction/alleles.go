package extraction

import (
	"fmt"

	"ga4gh/loader/models"
)

// UnknownAlleleMarker is the genotype allele written for an uncalled allele
const UnknownAlleleMarker = "."

// ResolveAlleles turns the allele bases chosen by a genotype into allele
// indices: 0 for the reference, 1..N for the Nth alternate allele and
// models.UnknownAllele for an uncalled allele. A base matching neither the
// reference nor any alternate fails with ErrAlleleResolution.
func ResolveAlleles(reference string, alternates []string, alleles []string) ([]int32, error) {
	if len(alleles) == 0 {
		return nil, nil
	}

	resolved := make([]int32, len(alleles))
	for i, allele := range alleles {
		idx, err := resolveAllele(reference, alternates, allele)
		if err != nil {
			return nil, err
		}
		resolved[i] = idx
	}
	return resolved, nil
}

func resolveAllele(reference string, alternates []string, allele string) (int32, error) {
	if allele == UnknownAlleleMarker {
		return models.UnknownAllele, nil
	}
	if allele == reference {
		return 0, nil
	}
	for i, alt := range alternates {
		if allele == alt {
			return int32(i + 1), nil
		}
	}
	return 0, fmt.Errorf("allele %q not in reference %q or alternates %v: %w", allele, reference, alternates, ErrAlleleResolution)
}
