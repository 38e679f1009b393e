package strategy

import (
	"ga4gh/loader/models/constants"
)

// number of genotype columns each strategy expects
const (
	Empty constants.Strategy = iota
	Single
	Dual
)

func ExpectedGenotypeColumns(s constants.Strategy) int {
	switch s {
	case Single:
		return 1
	case Dual:
		return 2
	default:
		return 0
	}
}

func StrategyToString(s constants.Strategy) string {
	switch s {
	case Empty:
		return "EMPTY"
	case Single:
		return "SINGLE"
	case Dual:
		return "DUAL"
	default:
		return "UNKNOWN"
	}
}
