package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/microwavekid/mentionserve/internal/logger"
	"github.com/microwavekid/mentionserve/internal/utils"
	"github.com/microwavekid/mentionserve/pkg/config"
	"github.com/microwavekid/mentionserve/pkg/directory"
	"github.com/microwavekid/mentionserve/pkg/mention"
)

// configReloadInterval is measured in requests, not time; a long-running
// editor session picks up config edits without a restart.
const configReloadInterval = 200

// Server handles the IPC for mention operations. One server carries many
// client sessions; each session is just a linked-entity set, the document
// text always travels with the request.
type Server struct {
	dir        *directory.Directory
	cfg        *config.Config
	configPath string
	triggers   mention.TriggerSet

	decoder *msgpack.Decoder
	encoder *msgpack.Encoder
	log     *log.Logger

	sessions     map[string]*mention.LinkedSet
	requestCount int
}

// NewServer creates a mention server over stdin/stdout for IPC.
func NewServer(dir *directory.Directory, cfg *config.Config, configPath string) *Server {
	return NewServerWithIO(dir, cfg, configPath, os.Stdin, os.Stdout)
}

// NewServerWithIO creates a server over arbitrary streams; tests drive it
// through in-memory pipes.
func NewServerWithIO(dir *directory.Directory, cfg *config.Config, configPath string, r io.Reader, w io.Writer) *Server {
	return &Server{
		dir:        dir,
		cfg:        cfg,
		configPath: configPath,
		triggers:   cfg.TriggerSet(),
		decoder:    msgpack.NewDecoder(r),
		encoder:    msgpack.NewEncoder(w),
		log:        logger.New("ipc"),
		sessions:   make(map[string]*mention.LinkedSet),
	}
}

// Start begins processing requests. Returns nil on clean EOF.
func (s *Server) Start() error {
	s.log.Debug("Starting mention server")
	s.send(StatusResponse{Status: "ready"})

	for {
		var req Request
		if err := s.decoder.Decode(&req); err != nil {
			if err == io.EOF {
				return nil
			}
			s.log.Errorf("Decoding request: %v", err)
			return err
		}
		s.handleRequest(req)
	}
}

func (s *Server) handleRequest(req Request) {
	s.requestCount++
	if s.requestCount%configReloadInterval == 0 {
		s.reloadConfig()
	}

	switch req.Op {
	case "suggest":
		s.handleSuggest(req)
	case "commit":
		s.handleCommit(req)
	case "unlink":
		s.handleUnlink(req)
	case "highlight":
		s.handleHighlight(req)
	case "directory":
		s.handleDirectory(req)
	case "health":
		s.send(StatusResponse{ID: req.ID, Status: "ok"})
	default:
		s.sendError(req.ID, fmt.Sprintf("Unknown op: %s", req.Op), 400)
	}
}

// reloadConfig re-reads the config file so trigger or limit edits apply to
// a long-running server.
func (s *Server) reloadConfig() {
	if s.configPath == "" {
		return
	}
	cfg, err := config.LoadConfig(s.configPath)
	if err != nil {
		s.log.Warnf("Config reload failed: %v", err)
		return
	}
	s.cfg = cfg
	s.triggers = cfg.TriggerSet()
	s.log.Debugf("Reloaded config after %d requests", s.requestCount)
}

func (s *Server) session(id string) *mention.LinkedSet {
	ls, ok := s.sessions[id]
	if !ok {
		ls = mention.NewLinkedSet()
		s.sessions[id] = ls
	}
	return ls
}

func (s *Server) send(response interface{}) {
	if err := s.encoder.Encode(response); err != nil {
		s.log.Errorf("Encoding response: %v", err)
	}
}

func (s *Server) sendError(id, message string, code int) {
	s.log.Debugf("Request %s failed: %s", id, message)
	s.send(RequestError{ID: id, Error: message, Code: code})
}

func (s *Server) handleSuggest(req Request) {
	if req.Caret < 0 || req.Caret > len(req.Text) {
		s.sendError(req.ID, "Caret out of bounds", 400)
		return
	}

	start := time.Now()
	tc, active := mention.Scan(req.Text, req.Caret, s.triggers)
	if active && len(tc.Query) > s.cfg.Engine.MaxQuery {
		// an over-long query is not a mention anymore
		active = false
	}
	if !active {
		s.send(SuggestResponse{ID: req.ID, TimeTaken: time.Since(start).Microseconds()})
		return
	}

	limit := req.Limit
	if limit < 1 || limit > s.cfg.Engine.MaxCandidates {
		limit = s.cfg.Engine.MaxCandidates
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ResolveTimeout())
	defer cancel()
	query := strings.TrimSpace(tc.Query)
	candidates, err := s.dir.Resolve(ctx, query, tc.Category)
	if err != nil {
		// resolver failure degrades to "no suggestions", never an IPC error
		s.log.Errorf("Resolve %q: %v", query, err)
		candidates = nil
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	ranks := utils.CreateRankList(len(candidates))
	wire := make([]Candidate, len(candidates))
	for i, e := range candidates {
		wire[i] = Candidate{
			ID:         e.ID,
			Type:       string(e.Type),
			Name:       e.Name,
			Confidence: e.Confidence,
			Rank:       ranks[i],
		}
	}

	ghost := ""
	if len(candidates) > 0 {
		ghost = mention.GhostSuffix(query, candidates[0].Name)
	}

	s.send(SuggestResponse{
		ID:         req.ID,
		Active:     true,
		Trigger:    string(tc.Trigger),
		Query:      tc.Query,
		Start:      tc.Start,
		End:        tc.End,
		Candidates: wire,
		Ghost:      ghost,
		Count:      len(wire),
		TimeTaken:  time.Since(start).Microseconds(),
	})
}

func (s *Server) handleCommit(req Request) {
	if req.EntityID == "" {
		s.sendError(req.ID, "Missing 'eid' parameter", 400)
		return
	}
	entity, ok := s.dir.Get(req.EntityID)
	if !ok {
		s.sendError(req.ID, fmt.Sprintf("Unknown entity: %s", req.EntityID), 404)
		return
	}

	start := time.Now()
	tc, active := mention.Scan(req.Text, req.Caret, s.triggers)
	if !active {
		s.sendError(req.ID, "No active mention at caret", 400)
		return
	}

	linked := s.session(req.Session)
	newText, newCaret, ok := mention.Commit(req.Text, tc, entity, linked)
	if !ok {
		s.sendError(req.ID, "Commit rejected: inconsistent mention range", 400)
		return
	}
	s.dir.Touch(entity.ID)

	s.send(CommitResponse{
		ID:        req.ID,
		Text:      newText,
		Caret:     newCaret,
		Linked:    wireEntities(linked.Entities()),
		Count:     linked.Len(),
		TimeTaken: time.Since(start).Microseconds(),
	})
}

func (s *Server) handleUnlink(req Request) {
	if req.EntityID == "" {
		s.sendError(req.ID, "Missing 'eid' parameter", 400)
		return
	}
	linked := s.session(req.Session)
	removed := linked.Remove(req.EntityID)
	s.send(UnlinkResponse{
		ID:      req.ID,
		Removed: removed,
		Linked:  wireEntities(linked.Entities()),
		Count:   linked.Len(),
	})
}

func (s *Server) handleHighlight(req Request) {
	start := time.Now()
	linked := s.session(req.Session)
	spans := mention.ComputeSpans(req.Text, linked.Entities(), s.triggers)

	wire := make([]WireSpan, len(spans))
	for i, sp := range spans {
		wire[i] = WireSpan{
			Text:     sp.Text,
			Start:    sp.Start,
			End:      sp.End,
			IsEntity: sp.IsEntity,
			EntityID: sp.Entity.ID,
		}
	}
	s.send(HighlightResponse{
		ID:        req.ID,
		Spans:     wire,
		Count:     len(wire),
		TimeTaken: time.Since(start).Microseconds(),
	})
}

func (s *Server) handleDirectory(req Request) {
	switch req.Action {
	case "get_info":
		s.send(DirectoryResponse{ID: req.ID, Status: "ok", Stats: s.dir.Stats()})
	case "add":
		if req.Entity == nil {
			s.sendError(req.ID, "Missing 'entity' parameter", 400)
			return
		}
		added, err := s.dir.Add(mention.Entity{
			ID:         req.Entity.ID,
			Type:       mention.Category(req.Entity.Type),
			Name:       req.Entity.Name,
			Confidence: req.Entity.Confidence,
			Attributes: req.Entity.Attributes,
		})
		if err != nil {
			s.send(DirectoryResponse{ID: req.ID, Status: "error", Error: err.Error()})
			return
		}
		w := wireEntity(added)
		s.send(DirectoryResponse{ID: req.ID, Status: "ok", Entity: &w})
	case "set_limit":
		if req.Limit < 1 || req.Limit > 64 {
			s.sendError(req.ID, "Limit must be between 1 and 64", 400)
			return
		}
		s.cfg.Engine.MaxCandidates = req.Limit
		if s.configPath != "" {
			if err := config.SaveConfig(s.cfg, s.configPath); err != nil {
				s.log.Warnf("Persisting limit change: %v", err)
			}
		}
		s.send(DirectoryResponse{ID: req.ID, Status: "ok", Stats: s.dir.Stats()})
	default:
		s.sendError(req.ID, fmt.Sprintf("Unknown directory action: %s", req.Action), 400)
	}
}

func wireEntity(e mention.Entity) WireEntity {
	return WireEntity{
		ID:         e.ID,
		Type:       string(e.Type),
		Name:       e.Name,
		Confidence: e.Confidence,
		Attributes: e.Attributes,
	}
}

func wireEntities(entities []mention.Entity) []WireEntity {
	out := make([]WireEntity, len(entities))
	for i, e := range entities {
		out[i] = wireEntity(e)
	}
	return out
}
