package ai

import (
	"strings"

	"github.com/ytakeda/execpersona/backend/internal/model/chat"
	"github.com/ytakeda/execpersona/backend/internal/model/persona"
)

// PromptContext is the bounded input handed to text generation: a
// persona-grounding system block, a window of recent turns, and the new
// user message.
type PromptContext struct {
	System  string
	History []chat.Turn
	Query   string
}

// AssemblerOptions configure context assembly.
type AssemblerOptions struct {
	// HistoryWindow is the maximum number of history turns included.
	HistoryWindow int
	// CharBudget bounds the total assembled size in runes.
	CharBudget int
}

const (
	defaultHistoryWindow = 10
	defaultCharBudget    = 12000
)

// Assembler builds prompt contexts deterministically from a persona
// snapshot and conversation history.
type Assembler struct {
	historyWindow int
	charBudget    int
}

// NewAssembler returns an Assembler, applying defaults for unset options.
func NewAssembler(opts AssemblerOptions) *Assembler {
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = defaultHistoryWindow
	}
	if opts.CharBudget <= 0 {
		opts.CharBudget = defaultCharBudget
	}
	return &Assembler{historyWindow: opts.HistoryWindow, charBudget: opts.CharBudget}
}

// Build assembles the prompt context. History keeps its most recent
// turns up to the window; when the total would exceed the budget the
// persona background is truncated instead, interviews first, then
// document summaries, then the biography. Name, company and position
// are never dropped.
func (a *Assembler) Build(snap persona.Snapshot, history []chat.Turn, message string) PromptContext {
	if len(history) > a.historyWindow {
		history = history[len(history)-a.historyWindow:]
	}

	bio := snap.Bio
	documents := joinNonEmpty(snap.DocumentSummaries)
	interviews := joinNonEmpty(snap.InterviewExcerpts)

	used := runeLen(a.renderSystem(snap, bio, documents, interviews)) + runeLen(message)
	for _, turn := range history {
		used += runeLen(turn.Content)
	}

	if over := used - a.charBudget; over > 0 {
		for _, seg := range []*string{&interviews, &documents, &bio} {
			if over <= 0 {
				break
			}
			over -= shave(seg, over)
		}
	}

	return PromptContext{
		System:  a.renderSystem(snap, bio, documents, interviews),
		History: history,
		Query:   message,
	}
}

// renderSystem writes the persona-grounding block. Absent fields produce
// no lines at all.
func (a *Assembler) renderSystem(snap persona.Snapshot, bio, documents, interviews string) string {
	var b strings.Builder
	b.WriteString("You are ")
	b.WriteString(snap.Name)
	b.WriteString(", answering as yourself in a live conversation.")
	if snap.Company != "" {
		b.WriteString("\nCompany: ")
		b.WriteString(snap.Company)
	}
	if snap.Position != "" {
		b.WriteString("\nPosition: ")
		b.WriteString(snap.Position)
	}
	if bio != "" {
		b.WriteString("\nBackground: ")
		b.WriteString(bio)
	}
	if documents != "" {
		b.WriteString("\nCompany materials: ")
		b.WriteString(documents)
	}
	if interviews != "" {
		b.WriteString("\nPast interviews: ")
		b.WriteString(interviews)
	}
	b.WriteString("\n\nGuidelines:\n")
	b.WriteString("1. Answer with the authority and experience of a chief executive.\n")
	b.WriteString("2. Be concrete and persuasive when discussing vision or strategy.\n")
	b.WriteString("3. Stay in character; never mention being an AI.\n")
	b.WriteString("4. Keep replies concise and conversational.")
	return b.String()
}

func joinNonEmpty(items []string) string {
	var kept []string
	for _, item := range items {
		if strings.TrimSpace(item) != "" {
			kept = append(kept, item)
		}
	}
	return strings.Join(kept, " ")
}

// shave removes up to want trailing runes from s and reports how many it
// removed.
func shave(s *string, want int) int {
	runes := []rune(*s)
	cut := want
	if cut > len(runes) {
		cut = len(runes)
	}
	*s = strings.TrimSpace(string(runes[:len(runes)-cut]))
	return cut
}

func runeLen(s string) int {
	return len([]rune(s))
}
