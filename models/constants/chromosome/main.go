package chromosome

import (
	"strconv"
	"strings"
)

// Normalize strips the 'chr' prefix and canonicalizes the mitochondrial
// contig so that reference names agree across workflows
func Normalize(text string) string {
	value := strings.TrimSpace(text)
	if len(value) > 3 && strings.EqualFold(value[:3], "chr") {
		value = value[3:]
	}
	switch strings.ToUpper(value) {
	case "M", "MT":
		return "MT"
	case "X", "Y":
		return strings.ToUpper(value)
	}
	return value
}

func IsValidHumanChromosome(text string) bool {
	value := Normalize(text)

	// Check if number can be represented as an int as is non-zero
	chromNumber, err := strconv.Atoi(value)
	if err == nil {
		return chromNumber > 0 && chromNumber < 23
	}

	switch value {
	case "X", "Y", "MT":
		return true
	}
	return false
}
