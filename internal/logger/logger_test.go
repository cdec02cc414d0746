package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupRejectsUnknownLevel(t *testing.T) {
	err := Setup(LogConfig{Level: "loud", Output: "stdout"})
	assert.Error(t, err)
}

func TestNewWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "json", "")
	l.Info().Str("invoice_id", "abc").Msg("Payment applied")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Payment applied", entry["message"])
	assert.Equal(t, "abc", entry["invoice_id"])
	assert.Equal(t, "info", entry["level"])
}

func TestFromContextPrefersRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "json", "").With().Str("request_id", "r-1").Logger()
	ctx := l.WithContext(context.Background())

	FromContext(ctx).Info().Msg("hello")
	assert.Contains(t, buf.String(), `"request_id":"r-1"`)

	assert.NotNil(t, FromContext(context.Background()))
}
