package nl2sql

import (
	"fmt"
	"strings"

	"github.com/vizbot/vizbot/internal/llm"
	"github.com/vizbot/vizbot/internal/schema"
)

const systemPrompt = "You convert natural language analytics questions into a single PostgreSQL SELECT query. " +
	"Use only the tables and columns listed in the schema summary. " +
	"Alias every computed expression with AS. " +
	"Return ONLY SQL. No markdown, no explanation."

func buildMessages(req Request, schemaBudget, historyTurns int) []llm.Message {
	messages := make([]llm.Message, 0, 2+2*historyTurns)
	messages = append(messages, llm.Message{Role: "system", Content: systemPrompt})

	history := req.History
	if historyTurns > 0 && len(history) > historyTurns {
		history = history[len(history)-historyTurns:]
	}
	for _, turn := range history {
		messages = append(messages,
			llm.Message{Role: "user", Content: turn.Question},
			llm.Message{Role: "assistant", Content: turn.SQL},
		)
	}

	user := fmt.Sprintf(
		"Schema:\n%s\n\nQuestion:\n%s\n\nRules:\n- Single SELECT statement only.\n- Use only listed tables and columns.\n- Prefer explicit columns over SELECT *.",
		schemaSummary(req.Snapshot, schemaBudget),
		strings.TrimSpace(req.Question),
	)
	messages = append(messages, llm.Message{Role: "user", Content: user})
	return messages
}

func correctivePrompt(reason string) string {
	return fmt.Sprintf(
		"The previous response was rejected: %s.\nReturn a corrected single PostgreSQL SELECT statement. SQL only.",
		reason,
	)
}

// schemaSummary renders one line per table, truncated to a character budget
// so large schemas cannot blow the prompt.
func schemaSummary(snap *schema.Snapshot, budget int) string {
	if snap == nil {
		return ""
	}
	var sb strings.Builder
	for _, table := range snap.Tables() {
		line := renderTableLine(table)
		if budget > 0 && sb.Len()+len(line)+1 > budget {
			sb.WriteString("-- additional tables omitted\n")
			break
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func renderTableLine(table schema.Table) string {
	cols := make([]string, 0, len(table.Columns))
	for _, col := range table.Columns {
		entry := col.Name + " " + col.DataType
		if !col.Nullable {
			entry += " not null"
		}
		cols = append(cols, entry)
	}
	return fmt.Sprintf("%s(%s)", table.Name, strings.Join(cols, ", "))
}

func stripMarkdownSQL(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```sql")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
		return strings.TrimSpace(trimmed)
	}
	return trimmed
}
