package insight

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/vizbot/vizbot/internal/executor"
	"github.com/vizbot/vizbot/internal/llm"
)

type fakeCompleter struct {
	response string
	err      error
	calls    [][]llm.Message
}

func (f *fakeCompleter) Complete(_ context.Context, messages []llm.Message) (string, error) {
	f.calls = append(f.calls, messages)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleResult() executor.ResultSet {
	return executor.ResultSet{
		Columns: []executor.Column{
			{Name: "room_name", Kind: executor.KindCategorical},
			{Name: "value", Kind: executor.KindNumeric},
			{Name: "start_time", Kind: executor.KindTime},
		},
		Rows: [][]any{
			{"Lobby", 10.0, time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)},
			{"Lobby", 20.0, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)},
			{"Cafeteria", 30.0, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
		},
	}
}

func TestSummarizeSendsColumnStatistics(t *testing.T) {
	completer := &fakeCompleter{response: "  Occupancy peaked in the cafeteria.  "}
	summarizer, err := New(completer, testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	got := summarizer.Summarize(context.Background(), sampleResult(), "how busy were the rooms?")
	if got != "Occupancy peaked in the cafeteria." {
		t.Fatalf("Summarize() = %q", got)
	}
	if len(completer.calls) != 1 {
		t.Fatalf("completion calls = %d, want 1", len(completer.calls))
	}

	prompt := completer.calls[0][1].Content
	for _, fragment := range []string{
		"3 rows",
		"value (numeric): min=10 max=30 mean=20 count=3",
		"room_name (categorical): 2 distinct",
		"Lobby (2)",
		"start_time (time): from 2024-03-01T08:00:00Z",
	} {
		if !strings.Contains(prompt, fragment) {
			t.Fatalf("prompt missing %q:\n%s", fragment, prompt)
		}
	}
}

func TestSummarizeFailureDegradesToEmpty(t *testing.T) {
	completer := &fakeCompleter{err: fmt.Errorf("service unavailable")}
	summarizer, err := New(completer, testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if got := summarizer.Summarize(context.Background(), sampleResult(), "anything"); got != "" {
		t.Fatalf("Summarize() = %q, want empty", got)
	}
}

func TestSummarizeEmptyResultSkipsCompletion(t *testing.T) {
	completer := &fakeCompleter{response: "unused"}
	summarizer, err := New(completer, testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if got := summarizer.Summarize(context.Background(), executor.ResultSet{}, "anything"); got != "" {
		t.Fatalf("Summarize() = %q, want empty", got)
	}
	if len(completer.calls) != 0 {
		t.Fatalf("completion calls = %d, want 0", len(completer.calls))
	}
}
