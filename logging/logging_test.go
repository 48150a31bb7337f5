package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Format: JSON, Level: slog.LevelInfo, Output: &buf})
	logger.Info("hello", slog.String("service", "storage"))

	out := buf.String()
	assert.Contains(t, out, `"msg":"hello"`)
	assert.Contains(t, out, `"service":"storage"`)
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Format: Text, Level: slog.LevelInfo, Output: &buf})
	logger.Info("hello")

	assert.True(t, strings.Contains(buf.String(), "msg=hello"))
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Format: JSON, Level: slog.LevelInfo, Output: &buf})
	ctx := WithLogger(context.Background(), logger)

	got := FromContext(ctx)
	require.NotNil(t, got)
	got.Info("from context")
	assert.Contains(t, buf.String(), "from context")
}

func TestFromContext_DefaultsWhenAbsent(t *testing.T) {
	got := FromContext(context.Background())
	assert.NotNil(t, got)
}

func TestWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Format: JSON, Level: slog.LevelInfo, Output: &buf})
	annotated := WithRequestID(logger, "req-123")
	annotated.Info("call made")
	assert.Contains(t, buf.String(), `"request_id":"req-123"`)
}
