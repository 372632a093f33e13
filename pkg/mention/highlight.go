package mention

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/microwavekid/mentionserve/internal/utils"
)

// Span is one contiguous run of document text. Spans returned by
// ComputeSpans partition the text exactly: concatenating their Text fields
// reproduces the document with no gaps or overlaps. Entity is the zero
// value unless IsEntity is set.
type Span struct {
	Text     string
	Start    int
	End      int
	IsEntity bool
	Entity   Entity
}

type nameMatch struct {
	start  int
	end    int
	entity Entity
}

// ComputeSpans projects (text, linked entities) into highlight spans.
//
// Every occurrence of trigger+name that is followed by whitespace, a
// newline, or end of text counts as a match. The name comparison is
// case-sensitive. Overlaps resolve first-match-wins: the earliest-starting
// match is kept and anything starting before its end is discarded, so
// entities whose names are substrings of one another still render
// deterministically.
func ComputeSpans(text string, linked []Entity, triggers TriggerSet) []Span {
	if text == "" {
		return nil
	}

	var matches []nameMatch
	for _, e := range linked {
		if e.Name == "" {
			continue
		}
		trig, ok := triggers.TriggerFor(e.Type)
		if !ok {
			continue
		}
		needle := string(trig) + e.Name
		from := 0
		for {
			idx := strings.Index(text[from:], needle)
			if idx < 0 {
				break
			}
			start := from + idx
			end := start + len(needle)
			if terminatedAt(text, end) {
				matches = append(matches, nameMatch{start: start, end: end, entity: e})
			}
			from = start + 1
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].start != matches[j].start {
			return matches[i].start < matches[j].start
		}
		// prefer the longer match at the same offset
		return matches[i].end > matches[j].end
	})

	var spans []Span
	cursor := 0
	lastEnd := 0
	for _, m := range matches {
		if m.start < lastEnd {
			continue
		}
		if m.start > cursor {
			spans = append(spans, Span{Text: text[cursor:m.start], Start: cursor, End: m.start})
		}
		spans = append(spans, Span{
			Text:     text[m.start:m.end],
			Start:    m.start,
			End:      m.end,
			IsEntity: true,
			Entity:   m.entity,
		})
		cursor = m.end
		lastEnd = m.end
	}
	if cursor < len(text) {
		spans = append(spans, Span{Text: text[cursor:], Start: cursor, End: len(text)})
	}
	return spans
}

// terminatedAt reports whether a mention ending at byte offset pos is
// properly delimited: end of text, whitespace, or newline.
func terminatedAt(text string, pos int) bool {
	if pos >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[pos:])
	return r == '\n' || unicode.IsSpace(r)
}

// GhostSuffix returns the characters of name not yet covered by query, when
// query is a case-insensitive strict prefix of name. The suffix is a
// non-destructive preview only; it must never reach the document text or
// any change callback until the suggestion is accepted.
func GhostSuffix(query, name string) string {
	if name == "" {
		return ""
	}
	consumed := 0
	rest := name
	for _, qr := range query {
		nr, size := utf8.DecodeRuneInString(rest)
		if nr == utf8.RuneError && size == 0 {
			return "" // query longer than name
		}
		if !utils.EqualFold(qr, nr) {
			return ""
		}
		consumed += size
		rest = rest[size:]
	}
	if consumed >= len(name) {
		return ""
	}
	return name[consumed:]
}
