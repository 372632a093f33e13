package mention

import "unicode/utf8"

// Commit replaces the in-progress trigger+query span with the entity's
// canonical name and records the link. The trigger character stays in the
// text as the mention marker; only the query portion after it is replaced,
// which is what the span matcher expects when it later looks for
// trigger+name units.
//
// Returns the new text and the caret position sitting right after the
// inserted name. Linking is idempotent: committing an entity whose ID is
// already in linked changes only text and caret. A context that does not
// describe a valid range in text is rejected.
func Commit(text string, tc TriggerContext, e Entity, linked *LinkedSet) (string, int, bool) {
	if !tc.Valid(text) {
		return text, 0, false
	}
	keep := tc.Start + utf8.RuneLen(tc.Trigger)
	newText := text[:keep] + e.Name + text[tc.End:]
	newCaret := keep + len(e.Name)
	if linked != nil {
		linked.Add(e)
	}
	return newText, newCaret, true
}
