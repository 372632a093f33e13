package mention

import (
	"unicode"
	"unicode/utf8"
)

// TriggerContext describes an unterminated mention span under the caret.
// Start..End is the half-open byte range covering the trigger character and
// the partial query typed after it. Query is the raw substring between the
// trigger (exclusive) and the caret, untrimmed so commits can replace the
// exact range.
type TriggerContext struct {
	Trigger  rune
	Category Category
	Query    string
	Start    int
	End      int
}

// Valid reports whether the context range is consistent with text. Scan can
// not produce an inconsistent range, but callers holding stale contexts
// against newer text go through this before committing.
func (tc TriggerContext) Valid(text string) bool {
	if tc.Start < 0 || tc.End < tc.Start || tc.End > len(text) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(text[tc.Start:])
	return r == tc.Trigger
}

// Scan walks backward from the caret looking for an active mention trigger.
//
// A trigger is only recognized at the start of the text or directly after
// whitespace. The walk stops dead on any whitespace or newline (mentions do
// not span either), and on a trigger character that fails the boundary rule,
// which also covers nested or overlapping triggers. A trigger immediately
// followed by the caret yields a valid context with an empty query, so hosts
// can show default candidates the moment the trigger is typed.
func Scan(text string, caret int, triggers TriggerSet) (TriggerContext, bool) {
	if caret <= 0 || caret > len(text) {
		return TriggerContext{}, false
	}

	pos := caret
	for pos > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:pos])
		if r == utf8.RuneError && size <= 1 {
			return TriggerContext{}, false
		}
		if r == '\n' || unicode.IsSpace(r) {
			return TriggerContext{}, false
		}
		if triggers.IsTrigger(r) {
			start := pos - size
			if !boundaryBefore(text, start) {
				return TriggerContext{}, false
			}
			cat, _ := triggers.Category(r)
			return TriggerContext{
				Trigger:  r,
				Category: cat,
				Query:    text[pos:caret],
				Start:    start,
				End:      caret,
			}, true
		}
		pos -= size
	}
	return TriggerContext{}, false
}

// boundaryBefore reports whether position start is the text start or is
// preceded by whitespace, making a trigger there unambiguous.
func boundaryBefore(text string, start int) bool {
	if start == 0 {
		return true
	}
	prev, _ := utf8.DecodeLastRuneInString(text[:start])
	return unicode.IsSpace(prev)
}
