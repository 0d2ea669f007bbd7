package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestNew_Levels(t *testing.T) {
	log, done := New("debug", "json")
	defer done()
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))

	log, done = New("nonsense", "console")
	defer done()
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))

	log, done = New("", "")
	defer done()
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
}
