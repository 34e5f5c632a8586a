package logger

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidatesLevel(t *testing.T) {
	_, err := New(Config{Level: "loud", Format: "json", Output: "discard"})
	assert.Error(t, err)
}

func TestNewOutputs(t *testing.T) {
	tests := []struct {
		name   string
		output string
	}{
		{name: "stdout", output: "stdout"},
		{name: "stderr", output: "stderr"},
		{name: "discard", output: "discard"},
		{name: "unknown falls back to stdout", output: "syslog"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(Config{Level: "debug", Format: "text", Output: tt.output})
			require.NoError(t, err)
			assert.Equal(t, logrus.DebugLevel, log.GetLevel())
		})
	}
}

func TestFileOutputCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "dash.log")

	log, err := New(Config{Level: "info", Format: "json", Output: "file", File: path})
	require.NoError(t, err)
	log.Info("hello")

	assert.FileExists(t, path)
}

func TestWithFieldDoesNotLeak(t *testing.T) {
	base := NewDiscard()
	child := base.WithField("a", 1)
	grandchild := child.WithFields(logrus.Fields{"b": 2})

	assert.Empty(t, base.Fields())
	assert.Equal(t, logrus.Fields{"a": 1}, child.Fields())
	assert.Equal(t, logrus.Fields{"a": 1, "b": 2}, grandchild.Fields())
}

func TestComponentLoggersEmitFields(t *testing.T) {
	var buf bytes.Buffer
	base := NewDiscard()
	base.SetOutput(&buf)
	base.SetFormatter(&logrus.JSONFormatter{})

	base.PollerLogger("http://localhost:8080/metrics").Info("tick")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "poller", entry["component"])
	assert.Equal(t, "http://localhost:8080/metrics", entry["feed_url"])
	assert.Equal(t, "tick", entry["msg"])
}

func TestComponentLoggerNames(t *testing.T) {
	base := NewDiscard()

	tests := []struct {
		name   string
		logger *Logger
		want   string
	}{
		{name: "decision log", logger: base.DecisionLogLogger("u"), want: "decision_log"},
		{name: "render", logger: base.RenderLogger(), want: "render"},
		{name: "authority", logger: base.AuthorityLogger(), want: "authority"},
		{name: "middleware", logger: base.MiddlewareLogger("jwt_auth"), want: "middleware"},
		{name: "backend", logger: base.BackendLogger("localhost:9001"), want: "backend"},
		{name: "request", logger: base.RequestLogger("id", "GET", "/", "ip"), want: "request_handler"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.logger.Fields()["component"])
		})
	}
}
