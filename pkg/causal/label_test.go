package causal

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/unisdr/delta/pkg/contracts"
)

func TestLabel(t *testing.T) {
	assert.Equal(t, "River flood", Label(contracts.Event{ID: "x", Description: "  River \n flood "}))
	assert.Equal(t, "3f2a9c1d", Label(contracts.Event{ID: "3f2a9c1d-aaaa-bbbb"}))
	assert.Equal(t, "short", Label(contracts.Event{ID: "short"}))

	long := strings.Repeat("é", 100)
	got := Label(contracts.Event{ID: "x", Description: long})
	assert.Equal(t, maxLabelRunes+1, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "…"))
}

func TestLabel_NormalizesNFC(t *testing.T) {
	decomposed := "Cafe\u0301"
	assert.Equal(t, "Caf\u00e9", Label(contracts.Event{ID: "x", Description: decomposed}))
}
