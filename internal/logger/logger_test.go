package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerboseGate(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	defer SetVerbose(false)

	SetVerbose(false)
	Debug("hidden %d", 1)
	assert.Empty(t, buf.String())

	SetVerbose(true)
	assert.True(t, IsVerbose())
	Info("loaded %d vectors", 42)
	Warn("slow model")
	assert.Contains(t, buf.String(), "[INFO] loaded 42 vectors")
	assert.Contains(t, buf.String(), "[WARN] slow model")
}
