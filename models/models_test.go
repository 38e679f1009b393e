package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVariantKeysOfDistinctAlleleLists(t *testing.T) {
	variant := func(alts []string) Variant {
		return Variant{ReferenceName: "1", Start: 99, End: 100, ReferenceBases: "A", AlternateBases: alts}
	}

	lists := [][]string{nil, {""}, {"", ""}, {"T"}, {"T,G"}, {"T", "G"}, {"G", "T"}}
	seen := map[VariantKey][]string{}
	for _, alts := range lists {
		key := variant(alts).Key()
		if other, dup := seen[key]; dup {
			t.Fatalf("%q and %q share a key", alts, other)
		}
		seen[key] = alts
		assert.Equal(t, alts, key.Variant().AlternateBases)
	}

	// no alternates at all is the same variant however it is spelled
	assert.Equal(t, variant(nil).Key(), variant([]string{}).Key())
}

func TestUnpackAlternatesRejectsMalformedInput(t *testing.T) {
	_, ok := UnpackAlternates("G")
	assert.False(t, ok)

	_, ok = UnpackAlternates(string([]byte{0x80}))
	assert.False(t, ok)

	alts, ok := UnpackAlternates("")
	assert.True(t, ok)
	assert.Nil(t, alts)
}
