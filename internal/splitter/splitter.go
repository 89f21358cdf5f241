// Package splitter segments a raw utterance into ordered instruction
// fragments. The segmentation is purely lexical: sentence-terminating
// punctuation, semicolons, newlines, and the standalone conjunction "and"
// separate fragments. It does not understand nested clauses; a name like
// "Smith and Sons" will be split. That imprecision is accepted in exchange
// for deterministic, dependency-free behavior.
package splitter

import (
	"regexp"
	"strings"
)

// Fragment is one ordered segment of a multi-instruction utterance,
// intended to map to at most one tool call.
type Fragment struct {
	Text       string
	OrderIndex int
}

// separatorPattern matches fragment boundaries. Sentence punctuation only
// counts when trailed by whitespace or end-of-input, so email addresses and
// decimals survive intact.
var separatorPattern = regexp.MustCompile(`[.!?]+(\s+|$)|[;\n]+|\s+\band\b\s+`)

// Split segments an utterance into ordered fragments. Consecutive separators
// collapse; empty fragments are discarded. Split never fails: input with no
// separators yields exactly one fragment holding the trimmed utterance.
func Split(utterance string) []Fragment {
	trimmed := strings.TrimSpace(utterance)
	if trimmed == "" {
		return nil
	}

	var fragments []Fragment
	last := 0
	for _, loc := range separatorPattern.FindAllStringIndex(trimmed, -1) {
		appendFragment(&fragments, trimmed[last:loc[0]])
		last = loc[1]
	}
	appendFragment(&fragments, trimmed[last:])

	if len(fragments) == 0 {
		// Separators only. Fall back to the whole trimmed input so the
		// caller always has something to resolve.
		return []Fragment{{Text: trimmed, OrderIndex: 0}}
	}
	return fragments
}

func appendFragment(fragments *[]Fragment, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	*fragments = append(*fragments, Fragment{
		Text:       text,
		OrderIndex: len(*fragments),
	})
}
