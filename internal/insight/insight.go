// Package insight produces a short textual summary of a result set via the
// completion service. Summaries are best effort: every failure degrades to an
// empty string so chart display is never blocked.
package insight

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/vizbot/vizbot/internal/executor"
	"github.com/vizbot/vizbot/internal/llm"
	"github.com/vizbot/vizbot/internal/observability"
)

const systemPrompt = "You summarize query results for a building analytics chatbot. " +
	"You receive per-column summary statistics, not raw rows. " +
	"Reply with two or three plain sentences about the most notable values. No markdown."

// topValueCount bounds how many categorical values are named per column.
const topValueCount = 3

type Summarizer struct {
	completer llm.Completer
	logger    *slog.Logger
}

func New(completer llm.Completer, logger *slog.Logger) (*Summarizer, error) {
	if completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{completer: completer, logger: logger}, nil
}

// Summarize returns insight text for the result, or "" when the result is
// empty or the completion call fails.
func (s *Summarizer) Summarize(ctx context.Context, result executor.ResultSet, question string) string {
	if len(result.Rows) == 0 || len(result.Columns) == 0 {
		return ""
	}

	prompt := fmt.Sprintf(
		"Question:\n%s\n\nResult shape: %d rows.\n\nColumn statistics:\n%s",
		strings.TrimSpace(question),
		len(result.Rows),
		describeColumns(result),
	)

	text, err := s.completer.Complete(ctx, []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		observability.IncrementInsightFailure()
		s.logger.WarnContext(ctx, "insight summarization failed", slog.String("error", err.Error()))
		return ""
	}
	return strings.TrimSpace(text)
}

// describeColumns renders one line of summary statistics per column, so the
// prompt stays small no matter how many rows came back.
func describeColumns(result executor.ResultSet) string {
	var sb strings.Builder
	for i, column := range result.Columns {
		switch column.Kind {
		case executor.KindNumeric:
			sb.WriteString(numericLine(column.Name, result.Rows, i))
		case executor.KindTime:
			sb.WriteString(timeLine(column.Name, result.Rows, i))
		default:
			sb.WriteString(categoricalLine(column.Name, result.Rows, i))
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func numericLine(name string, rows [][]any, index int) string {
	var minValue, maxValue, sum float64
	count := 0
	for _, row := range rows {
		value, ok := asFloat(row[index])
		if !ok {
			continue
		}
		if count == 0 || value < minValue {
			minValue = value
		}
		if count == 0 || value > maxValue {
			maxValue = value
		}
		sum += value
		count++
	}
	if count == 0 {
		return fmt.Sprintf("- %s (numeric): no values", name)
	}
	return fmt.Sprintf("- %s (numeric): min=%.4g max=%.4g mean=%.4g count=%d",
		name, minValue, maxValue, sum/float64(count), count)
}

func timeLine(name string, rows [][]any, index int) string {
	var earliest, latest time.Time
	count := 0
	for _, row := range rows {
		value, ok := row[index].(time.Time)
		if !ok {
			continue
		}
		if count == 0 || value.Before(earliest) {
			earliest = value
		}
		if count == 0 || value.After(latest) {
			latest = value
		}
		count++
	}
	if count == 0 {
		return fmt.Sprintf("- %s (time): no values", name)
	}
	return fmt.Sprintf("- %s (time): from %s to %s",
		name, earliest.Format(time.RFC3339), latest.Format(time.RFC3339))
}

func categoricalLine(name string, rows [][]any, index int) string {
	counts := make(map[string]int)
	for _, row := range rows {
		if row[index] == nil {
			continue
		}
		counts[fmt.Sprint(row[index])]++
	}
	if len(counts) == 0 {
		return fmt.Sprintf("- %s (categorical): no values", name)
	}

	values := make([]string, 0, len(counts))
	for value := range counts {
		values = append(values, value)
	}
	sort.Slice(values, func(i, j int) bool {
		if counts[values[i]] != counts[values[j]] {
			return counts[values[i]] > counts[values[j]]
		}
		return values[i] < values[j]
	})
	if len(values) > topValueCount {
		values = values[:topValueCount]
	}

	top := make([]string, 0, len(values))
	for _, value := range values {
		top = append(top, fmt.Sprintf("%s (%d)", value, counts[value]))
	}
	return fmt.Sprintf("- %s (categorical): %d distinct, top: %s",
		name, len(counts), strings.Join(top, ", "))
}

func asFloat(value any) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case int:
		return float64(typed), true
	default:
		return 0, false
	}
}
