package logger

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFileHook_RoutesByLevel(t *testing.T) {
	var errBuf, infoBuf, debugBuf bytes.Buffer
	hook := &LevelFileHook{
		ErrorWriter: &errBuf,
		InfoWriter:  &infoBuf,
		DebugWriter: &debugBuf,
	}

	l := logrus.New()
	l.SetLevel(logrus.DebugLevel)
	l.SetOutput(&bytes.Buffer{})
	l.AddHook(hook)

	l.Error("boom")
	l.Warn("careful")
	l.Info("hello")
	l.Debug("details")

	assert.Contains(t, errBuf.String(), "boom")
	assert.NotContains(t, errBuf.String(), "hello")
	assert.Contains(t, infoBuf.String(), "careful")
	assert.Contains(t, infoBuf.String(), "hello")
	assert.Contains(t, debugBuf.String(), "details")
	assert.NotContains(t, debugBuf.String(), "boom")
}

func TestLevelFileHook_NilWriterIsSkipped(t *testing.T) {
	hook := &LevelFileHook{}
	entry := logrus.NewEntry(logrus.New())
	entry.Level = logrus.InfoLevel
	entry.Message = "no writer"

	assert.NoError(t, hook.Fire(entry))
}

func TestInitLogger(t *testing.T) {
	prev := Logger
	defer func() { Logger = prev }()

	dir := t.TempDir()
	require.NoError(t, InitLogger("debug", dir))
	require.NotNil(t, Logger)
	assert.Equal(t, logrus.DebugLevel, Logger.GetLevel())

	require.NoError(t, InitLogger("not-a-level", dir))
	assert.Equal(t, logrus.InfoLevel, Logger.GetLevel())
}

func TestHelpers_NoLogger(t *testing.T) {
	prev := Logger
	Logger = nil
	defer func() { Logger = prev }()

	// must not panic before InitLogger
	Info("info", map[string]interface{}{"k": "v"})
	Warn("warn", nil)
	Error("error", nil)
	Debug("debug", nil)
	InfoMsg("info")
	WarnMsg("warn")
	ErrorMsg("error")
	DebugMsg("debug")
}
