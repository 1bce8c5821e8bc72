package observability

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/vizbot/vizbot/internal/config"
)

func jsonConfig() config.Config {
	cfg := config.Config{}
	cfg.Service.Name = "vizbot-test"
	cfg.Profile = config.ProfileTest
	cfg.Observability.LogJSON = true
	return cfg
}

func TestNewLoggerIncludesServiceAttrs(t *testing.T) {
	buf := new(bytes.Buffer)
	logger := NewLogger(jsonConfig(), buf)

	logger.Info("hello")

	line := buf.String()
	if !strings.Contains(line, `"service":"vizbot-test"`) {
		t.Fatalf("log line missing service attr: %s", line)
	}
	if !strings.Contains(line, `"profile":"test"`) {
		t.Fatalf("log line missing profile attr: %s", line)
	}
}

func TestLoggerStampsTraceIDFromContext(t *testing.T) {
	buf := new(bytes.Buffer)
	logger := NewLogger(jsonConfig(), buf)

	ctx := ContextWithTraceID(context.Background(), "trace-9")
	logger.WarnContext(ctx, "insight failed")

	if !strings.Contains(buf.String(), `"trace_id":"trace-9"`) {
		t.Fatalf("log line missing trace id: %s", buf.String())
	}
}

func TestLoggerOmitsTraceIDWithoutContextValue(t *testing.T) {
	buf := new(bytes.Buffer)
	logger := NewLogger(jsonConfig(), buf)

	logger.Info("startup")

	if strings.Contains(buf.String(), "trace_id") {
		t.Fatalf("log line should not carry trace id: %s", buf.String())
	}
}
