package mention

import "testing"

// Tests the backward scan boundary rules:
// trigger at text start or after whitespace, killed by any whitespace,
// newline, or nested trigger between the trigger and the caret.
func TestScan(t *testing.T) {
	triggers := DefaultTriggers()

	testCases := []struct {
		name      string
		text      string
		caret     int
		wantOK    bool
		wantTrig  rune
		wantQuery string
		wantStart int
		wantEnd   int
	}{
		{"trigger after space", "hello @wor", 10, true, '@', "wor", 6, 10},
		{"no boundary before trigger", "hello@wor", 9, false, 0, "", 0, 0},
		{"newline between trigger and caret", "@foo\nbar", 8, false, 0, "", 0, 0},
		{"trigger at text start", "@foo", 4, true, '@', "foo", 0, 4},
		{"bare trigger has empty query", "@", 1, true, '@', "", 0, 1},
		{"bare trigger after space", "hi @", 4, true, '@', "", 3, 4},
		{"empty text", "", 0, false, 0, "", 0, 0},
		{"caret at document start", "hello @wor", 0, false, 0, "", 0, 0},
		{"caret before the trigger", "hi @wor", 2, false, 0, "", 0, 0},
		{"caret past end of text", "@foo", 5, false, 0, "", 0, 0},
		{"deal trigger", "see #Acme", 9, true, '#', "Acme", 4, 9},
		{"account trigger after tab", "x\t+Glo", 6, true, '+', "Glo", 2, 6},
		{"space inside query kills context", "a +Acme Corp", 12, false, 0, "", 0, 0},
		{"caret mid-query", "met @Sarah now", 10, true, '@', "Sarah", 4, 10},
		{"nested trigger without boundary", "x @a#b", 6, false, 0, "", 0, 0},
		{"doubled trigger", "@@foo", 5, false, 0, "", 0, 0},
		{"plain word", "hello", 5, false, 0, "", 0, 0},
		{"trigger on second line", "note\n@wor", 9, true, '@', "wor", 5, 9},
		{"multibyte text before trigger", "héllo @ana", 11, true, '@', "ana", 7, 11},
		{"negative caret", "@foo", -1, false, 0, "", 0, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Scan(tc.text, tc.caret, triggers)
			if ok != tc.wantOK {
				t.Fatalf("Scan(%q, %d) ok = %v, want %v", tc.text, tc.caret, ok, tc.wantOK)
			}
			if !ok {
				return
			}
			if got.Trigger != tc.wantTrig {
				t.Errorf("trigger = %q, want %q", got.Trigger, tc.wantTrig)
			}
			if got.Query != tc.wantQuery {
				t.Errorf("query = %q, want %q", got.Query, tc.wantQuery)
			}
			if got.Start != tc.wantStart || got.End != tc.wantEnd {
				t.Errorf("range = [%d:%d], want [%d:%d]", got.Start, got.End, tc.wantStart, tc.wantEnd)
			}
			if !got.Valid(tc.text) {
				t.Errorf("context failed its own validity check")
			}
		})
	}
}

func TestScanCategoryLock(t *testing.T) {
	triggers := DefaultTriggers()

	tc, ok := Scan("close #Acme", 11, triggers)
	if !ok {
		t.Fatal("expected active context")
	}
	if tc.Category != CategoryDeal {
		t.Errorf("category = %q, want %q", tc.Category, CategoryDeal)
	}
}

func TestTriggerContextValid(t *testing.T) {
	text := "hi @bob"
	valid := TriggerContext{Trigger: '@', Query: "bob", Start: 3, End: 7}
	if !valid.Valid(text) {
		t.Error("expected valid context")
	}

	bad := []TriggerContext{
		{Trigger: '@', Start: -1, End: 3},
		{Trigger: '@', Start: 5, End: 3},
		{Trigger: '@', Start: 3, End: 99},
		{Trigger: '#', Start: 3, End: 7}, // text has @ at Start, not #
	}
	for i, tc := range bad {
		if tc.Valid(text) {
			t.Errorf("case %d: expected invalid context", i)
		}
	}
}
