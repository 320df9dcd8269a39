// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/acceptance-predictor/pkg/types"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, types.LogConfig{Level: "info", Format: "json"})
	log.Debug("hidden")
	log.Info("gate transition", "to", "awaiting_payment")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "gate transition", rec["msg"])
	assert.Equal(t, "awaiting_payment", rec["to"])
	assert.NotContains(t, buf.String(), "hidden")
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, types.LogConfig{Level: "debug"}).Debug("tick", "remaining", 3)
	assert.Contains(t, buf.String(), "remaining=3")
}
