package app

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	t.Run("json at info hides debug", func(t *testing.T) {
		var buf bytes.Buffer
		logger := newLogger("info", "json", &buf)
		logger.Debug("Hidden.")
		logger.Info("Shown.", "nodeID", 3)

		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
		assert.Equal(t, "Shown.", rec["msg"])
		assert.Equal(t, "nodegrid", rec["app"])
		assert.EqualValues(t, 3, rec["nodeID"])
	})

	t.Run("text at debug", func(t *testing.T) {
		var buf bytes.Buffer
		newLogger("debug", "text", &buf).Debug("Visible.")
		assert.Contains(t, buf.String(), "msg=Visible.")
		assert.Contains(t, buf.String(), "source=")
	})

	t.Run("unknown level falls back to info", func(t *testing.T) {
		var buf bytes.Buffer
		logger := newLogger("loud", "text", &buf)
		logger.Debug("Hidden.")
		assert.Empty(t, buf.String())
	})
}
