package causal

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/unisdr/delta/pkg/contracts"
)

const (
	maxLabelRunes = 60
	shortIDLen    = 8
)

// Label is the human-readable name of an event in error messages: its
// description, NFC-normalized with whitespace collapsed and truncated, or a
// shortened id when there is no description.
func Label(e contracts.Event) string {
	desc := strings.Join(strings.Fields(norm.NFC.String(e.Description)), " ")
	if desc == "" {
		return shortID(e.ID)
	}
	if utf8.RuneCountInString(desc) <= maxLabelRunes {
		return desc
	}
	runes := []rune(desc)
	return strings.TrimSpace(string(runes[:maxLabelRunes])) + "…"
}

func shortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[:shortIDLen]
}
