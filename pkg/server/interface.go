/*
Package server implements msgpack IPC for the mention engine.

The server package provides a minimal interface for entity-mention
autocomplete using msgpack serialization over stdin/stdout.

The protocol is request/response: clients send structured messages via stdin
and receive responses through stdout. Each message carries an ID echoed back
in the response, an op selector, and op-specific fields. Messages are
processed synchronously with timing info included in responses; debouncing
is the client's concern at this boundary, the staleness rules live in the
embeddable session API.

A suggest request carries the full buffer and caret:

	{"id": "req_001", "op": "suggest", "x": "met with @Sar", "c": 14, "l": 8}

The server scans for an active trigger, resolves candidates, and answers
best-match-first with the ghost suffix for the top candidate:

	{"id": "req_001", "ok": true, "tr": "@", "q": "Sar",
	 "cand": [{"id": "…", "n": "Sarah Martinez", "t": "stakeholder", "r": 1}],
	 "g": "ah Martinez", "n": 1, "t": 210}

Commit, unlink, and highlight operate against a linked-entity set keyed by
the client's session id (sid); an empty sid addresses a default session.
Directory management ops expose entity counts and runtime entity insertion:

	{"id": "dir_001", "op": "directory", "action": "get_info"}
	{"id": "dir_002", "op": "directory", "action": "add", "entity": {...}}

Response structures include status information and error details when an op
fails. msgpack keeps messages compact compared to JSON and decodes without
reflection-heavy field name matching on the hot suggest path.
*/
package server

// Request is the envelope for every incoming message. Op selects the
// operation: suggest, commit, unlink, highlight, directory, health.
type Request struct {
	ID       string      `msgpack:"id"`
	Op       string      `msgpack:"op"`
	Session  string      `msgpack:"sid,omitempty"`
	Text     string      `msgpack:"x,omitempty"`
	Caret    int         `msgpack:"c,omitempty"`
	Limit    int         `msgpack:"l,omitempty"`
	EntityID string      `msgpack:"eid,omitempty"`
	Action   string      `msgpack:"action,omitempty"` // for "directory": "get_info", "add", "set_limit"
	Entity   *WireEntity `msgpack:"entity,omitempty"` // for "directory" action "add"
}

// WireEntity is the wire form of an entity.
type WireEntity struct {
	ID         string            `msgpack:"id"`
	Type       string            `msgpack:"t"`
	Name       string            `msgpack:"n"`
	Confidence float64           `msgpack:"cf"`
	Attributes map[string]string `msgpack:"a,omitempty"`
}

// Candidate is one ranked suggestion.
type Candidate struct {
	ID         string  `msgpack:"id"`
	Type       string  `msgpack:"t"`
	Name       string  `msgpack:"n"`
	Confidence float64 `msgpack:"cf"`
	Rank       uint16  `msgpack:"r"`
}

// SuggestResponse answers a suggest op. Active is false when the caret sits
// outside any mention span; candidates are then empty.
type SuggestResponse struct {
	ID         string      `msgpack:"id"`
	Active     bool        `msgpack:"ok"`
	Trigger    string      `msgpack:"tr,omitempty"`
	Query      string      `msgpack:"q,omitempty"`
	Start      int         `msgpack:"s"`
	End        int         `msgpack:"e"`
	Candidates []Candidate `msgpack:"cand"`
	Ghost      string      `msgpack:"g,omitempty"`
	Count      int         `msgpack:"n"`
	TimeTaken  int64       `msgpack:"t"`
}

// CommitResponse answers a commit op with the rewritten buffer.
type CommitResponse struct {
	ID        string       `msgpack:"id"`
	Text      string       `msgpack:"x"`
	Caret     int          `msgpack:"c"`
	Linked    []WireEntity `msgpack:"linked"`
	Count     int          `msgpack:"n"`
	TimeTaken int64        `msgpack:"t"`
}

// UnlinkResponse answers an unlink op. The buffer is never touched by an
// unlink, so only the linked set comes back.
type UnlinkResponse struct {
	ID      string       `msgpack:"id"`
	Removed bool         `msgpack:"removed"`
	Linked  []WireEntity `msgpack:"linked"`
	Count   int          `msgpack:"n"`
}

// WireSpan is one highlight span. EntityID is set only for entity spans.
type WireSpan struct {
	Text     string `msgpack:"x"`
	Start    int    `msgpack:"s"`
	End      int    `msgpack:"e"`
	IsEntity bool   `msgpack:"ent"`
	EntityID string `msgpack:"eid,omitempty"`
}

// HighlightResponse answers a highlight op with the full span partition.
type HighlightResponse struct {
	ID        string     `msgpack:"id"`
	Spans     []WireSpan `msgpack:"spans"`
	Count     int        `msgpack:"n"`
	TimeTaken int64      `msgpack:"t"`
}

// DirectoryResponse answers directory management ops.
type DirectoryResponse struct {
	ID     string         `msgpack:"id"`
	Status string         `msgpack:"status"`
	Error  string         `msgpack:"error,omitempty"`
	Stats  map[string]int `msgpack:"stats,omitempty"`
	Entity *WireEntity    `msgpack:"entity,omitempty"`
}

// StatusResponse reports readiness and health.
type StatusResponse struct {
	ID     string `msgpack:"id,omitempty"`
	Status string `msgpack:"status"`
}

// RequestError holds basic error information for failed requests
type RequestError struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}
