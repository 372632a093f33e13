// Package cli handles cmd line input for DBG and testing the mention
// engine: scan a line, show candidates and ghost text, accept or unlink
// mentions, and render the highlighted buffer.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/microwavekid/mentionserve/internal/utils"
	"github.com/microwavekid/mentionserve/pkg/mention"
)

// Toucher is implemented by resolvers that track recently used entities;
// the directory does, plain fixtures may not.
type Toucher interface {
	Touch(id string)
}

// InputHandler processes user input from stdin. Each plain line becomes the
// buffer with the caret at its end; lines starting with ':' are commands
// against the current state.
type InputHandler struct {
	resolver       mention.Resolver
	triggers       mention.TriggerSet
	suggestLimit   int
	showConfidence bool
	noFilter       bool
	resolveTimeout time.Duration

	text       string
	linked     *mention.LinkedSet
	active     bool
	activeCtx  mention.TriggerContext
	candidates []mention.Entity

	styles     map[mention.Category]lipgloss.Style
	ghostStyle lipgloss.Style
}

// NewInputHandler handles initialization of the InputHandler with basic parameters
func NewInputHandler(resolver mention.Resolver, triggers mention.TriggerSet, limit int, showConfidence, noFilter bool, timeout time.Duration) *InputHandler {
	return &InputHandler{
		resolver:       resolver,
		triggers:       triggers,
		suggestLimit:   limit,
		showConfidence: showConfidence,
		noFilter:       noFilter,
		resolveTimeout: timeout,
		linked:         mention.NewLinkedSet(),
		styles: map[mention.Category]lipgloss.Style{
			mention.CategoryStakeholder: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
			mention.CategoryDeal:        lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
			mention.CategoryAccount:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		},
		ghostStyle: lipgloss.NewStyle().Faint(true),
	}
}

// Start begins the interface loop.
// It continuously prompts for input, reads a line from stdin, and passes it
// on for processing. Loop terminates if an error occurs while reading.
func (h *InputHandler) Start() error {
	var marks []string
	for _, r := range h.triggers.Runes() {
		marks = append(marks, string(r))
	}
	log.Print("mentionserve CLI [DBG]")
	log.Printf("type a note line (mentions start with %s), Enter to see suggestions", strings.Join(marks, ", "))
	log.Print("commands: :accept N, :unlink N, :linked, :spans, :clear, :help (Ctrl+C to exit)")
	reader := bufio.NewReader(os.Stdin)

	for {
		log.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ":") {
			h.handleCommand(line)
			continue
		}
		h.handleInput(line)
	}
}

// handleInput treats the line as the buffer with the caret at its end,
// scans for an active mention, and resolves candidates synchronously.
func (h *InputHandler) handleInput(text string) {
	h.text = text
	h.candidates = nil
	h.activeCtx, h.active = mention.Scan(text, len(text), h.triggers)

	h.renderBuffer()

	if !h.active {
		log.Print("no active mention at caret")
		return
	}

	query := strings.TrimSpace(h.activeCtx.Query)
	if !h.noFilter && !utils.IsValidQuery(query) {
		log.Printf("query %q filtered (use -no-filter to bypass)", query)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.resolveTimeout)
	defer cancel()

	start := time.Now()
	candidates, err := h.resolver.Resolve(ctx, query, h.activeCtx.Category)
	elapsed := time.Since(start)
	if err != nil {
		log.Errorf("Resolve failed: %v", err)
		return
	}
	if len(candidates) > h.suggestLimit {
		candidates = candidates[:h.suggestLimit]
	}
	h.candidates = candidates

	if len(candidates) == 0 {
		log.Printf("no candidates for %q (%v)", query, elapsed)
		return
	}

	log.Printf("trigger %q query %q (%v):", string(h.activeCtx.Trigger), query, elapsed)
	for i, e := range candidates {
		line := fmt.Sprintf("  %d. %s [%s]", i+1, e.Name, e.Type)
		if h.showConfidence {
			line += fmt.Sprintf(" (%.2f)", e.Confidence)
		}
		log.Print(line)
	}
	if ghost := mention.GhostSuffix(query, candidates[0].Name); ghost != "" {
		log.Printf("ghost: %s%s", h.activeCtx.Query, h.ghostStyle.Render(ghost))
	}
}

func (h *InputHandler) handleCommand(line string) {
	fields := strings.Fields(line)
	switch fields[0] {
	case ":accept":
		h.cmdAccept(fields[1:])
	case ":unlink":
		h.cmdUnlink(fields[1:])
	case ":linked":
		h.cmdLinked()
	case ":spans":
		h.cmdSpans()
	case ":clear":
		h.text = ""
		h.linked = mention.NewLinkedSet()
		h.candidates = nil
		h.active = false
		log.Print("cleared buffer and linked set")
	case ":help":
		log.Print(":accept N  commit candidate N from the last suggestion list")
		log.Print(":unlink N  unlink entity N from the :linked listing (text untouched)")
		log.Print(":linked    list linked entities")
		log.Print(":spans     dump the span partition of the buffer")
		log.Print(":clear     reset buffer and linked set")
	default:
		log.Errorf("Unknown command: %s", fields[0])
	}
}

func (h *InputHandler) cmdAccept(args []string) {
	if !h.active || len(h.candidates) == 0 {
		log.Error("Nothing to accept: no active mention with candidates")
		return
	}
	idx := 1
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 || n > len(h.candidates) {
			log.Errorf("Candidate index out of range: %v", args[0])
			return
		}
		idx = n
	}
	chosen := h.candidates[idx-1]

	newText, caret, ok := mention.Commit(h.text, h.activeCtx, chosen, h.linked)
	if !ok {
		log.Error("Commit rejected: stale mention range")
		return
	}
	h.text = newText
	h.active = false
	h.candidates = nil
	if t, ok := h.resolver.(Toucher); ok {
		t.Touch(chosen.ID)
	}

	log.Printf("committed %q, caret at %d", chosen.Name, caret)
	h.renderBuffer()
}

func (h *InputHandler) cmdUnlink(args []string) {
	entities := h.linked.Entities()
	if len(args) == 0 || len(entities) == 0 {
		log.Error("Usage: :unlink N (see :linked)")
		return
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > len(entities) {
		log.Errorf("Linked index out of range: %v", args[0])
		return
	}
	e := entities[n-1]
	h.linked.Remove(e.ID)
	log.Printf("unlinked %s, text untouched", e.Name)
	h.renderBuffer()
}

func (h *InputHandler) cmdLinked() {
	entities := h.linked.Entities()
	if len(entities) == 0 {
		log.Print("no linked entities")
		return
	}
	for i, e := range entities {
		log.Printf("  %d. %s [%s] %s", i+1, e.Name, e.Type, e.ID)
	}
}

func (h *InputHandler) cmdSpans() {
	spans := mention.ComputeSpans(h.text, h.linked.Entities(), h.triggers)
	for _, sp := range spans {
		tag := "text"
		if sp.IsEntity {
			tag = string(sp.Entity.Type)
		}
		log.Printf("  [%d:%d] %-12s %q", sp.Start, sp.End, tag, sp.Text)
	}
}

// renderBuffer prints the buffer with linked mentions styled per category.
func (h *InputHandler) renderBuffer() {
	if h.text == "" {
		return
	}
	spans := mention.ComputeSpans(h.text, h.linked.Entities(), h.triggers)
	var b strings.Builder
	for _, sp := range spans {
		if sp.IsEntity {
			if style, ok := h.styles[sp.Entity.Type]; ok {
				b.WriteString(style.Render(sp.Text))
				continue
			}
		}
		b.WriteString(sp.Text)
	}
	log.Print(b.String())
}
