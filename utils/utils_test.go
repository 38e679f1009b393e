package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringInSlice(t *testing.T) {
	assert.True(t, StringInSlice("pos", []string{"chrom", "pos"}))
	assert.False(t, StringInSlice("sample", []string{"chrom", "pos"}))
	assert.False(t, StringInSlice("pos", nil))
}

func TestGetLeadingStringInBetweenSquareBrackets(t *testing.T) {
	status, body := GetLeadingStringInBetweenSquareBrackets(`[400 Bad Request] {"error":"x"}`)
	assert.Equal(t, "[400 Bad Request]", status)
	assert.Equal(t, `{"error":"x"}`, body)

	status, body = GetLeadingStringInBetweenSquareBrackets(`{"a":[1]}`)
	assert.Empty(t, status)
	assert.Empty(t, body)
}
