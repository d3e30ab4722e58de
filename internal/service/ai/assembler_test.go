package ai_test

import (
	"strings"
	"testing"

	"github.com/ytakeda/execpersona/backend/internal/model/chat"
	"github.com/ytakeda/execpersona/backend/internal/model/persona"
	"github.com/ytakeda/execpersona/backend/internal/service/ai"
)

func fullSnapshot() persona.Snapshot {
	return persona.Snapshot{
		ID:                "ceo-1",
		Name:              "Aya Morikawa",
		Company:           "Morikawa Robotics",
		Position:          "CEO",
		Bio:               strings.Repeat("Built the company from a garage workshop. ", 20),
		DocumentSummaries: []string{strings.Repeat("Shareholder letter highlights. ", 20)},
		InterviewExcerpts: []string{strings.Repeat("We automate to free people. ", 20)},
	}
}

func TestBuildIncludesAllPresentFields(t *testing.T) {
	a := ai.NewAssembler(ai.AssemblerOptions{})
	pc := a.Build(fullSnapshot(), nil, "Hello")

	for _, want := range []string{"Aya Morikawa", "Company: Morikawa Robotics", "Position: CEO", "Background:", "Company materials:", "Past interviews:"} {
		if !strings.Contains(pc.System, want) {
			t.Fatalf("system block missing %q:\n%s", want, pc.System)
		}
	}
	if pc.Query != "Hello" {
		t.Fatalf("unexpected query %q", pc.Query)
	}
}

func TestBuildOmitsAbsentFields(t *testing.T) {
	a := ai.NewAssembler(ai.AssemblerOptions{})
	snap := persona.Snapshot{ID: "ceo-2", Name: "Daniel Okafor", Company: "Brightline", Position: "CEO"}

	pc := a.Build(snap, nil, "Hi")

	for _, absent := range []string{"Background:", "Company materials:", "Past interviews:"} {
		if strings.Contains(pc.System, absent) {
			t.Fatalf("system block has placeholder for absent field %q:\n%s", absent, pc.System)
		}
	}
}

func TestBuildHistoryWindow(t *testing.T) {
	a := ai.NewAssembler(ai.AssemblerOptions{HistoryWindow: 4})

	var history []chat.Turn
	for i := 0; i < 10; i++ {
		history = append(history, chat.Turn{Seq: int64(i + 1), Role: chat.RoleUser, Content: "m"})
	}

	pc := a.Build(fullSnapshot(), history, "Hello")
	if len(pc.History) != 4 {
		t.Fatalf("expected 4 history turns, got %d", len(pc.History))
	}
	if pc.History[0].Seq != 7 {
		t.Fatalf("expected the most recent turns, first seq %d", pc.History[0].Seq)
	}
}

func TestBudgetTruncatesBackgroundBeforeHistory(t *testing.T) {
	a := ai.NewAssembler(ai.AssemblerOptions{HistoryWindow: 10, CharBudget: 900})

	history := []chat.Turn{
		{Seq: 1, Role: chat.RoleUser, Content: strings.Repeat("x", 100)},
		{Seq: 2, Role: chat.RoleAssistant, Content: strings.Repeat("y", 100)},
	}

	snap := fullSnapshot()
	pc := a.Build(snap, history, "Hello")

	// History survives intact; the persona background shrinks.
	if len(pc.History) != 2 {
		t.Fatalf("history dropped: %d turns", len(pc.History))
	}
	// Interviews are truncated first and are large enough here to vanish.
	if strings.Contains(pc.System, "Past interviews:") {
		t.Fatalf("interviews should be truncated away first:\n%s", pc.System)
	}
	// The identity fields are never dropped.
	for _, want := range []string{"Aya Morikawa", "Company: Morikawa Robotics", "Position: CEO"} {
		if !strings.Contains(pc.System, want) {
			t.Fatalf("identity field %q lost under budget pressure", want)
		}
	}
}

func TestBuildDeterministic(t *testing.T) {
	a := ai.NewAssembler(ai.AssemblerOptions{CharBudget: 500})
	snap := fullSnapshot()
	history := []chat.Turn{{Seq: 1, Role: chat.RoleUser, Content: "question"}}

	first := a.Build(snap, history, "Hello")
	second := a.Build(snap, history, "Hello")
	if first.System != second.System || first.Query != second.Query {
		t.Fatal("Build is not deterministic for identical input")
	}
}
