package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/backend/internal/config"
)

func TestNew_ProductionUsesJSON(t *testing.T) {
	var buf bytes.Buffer
	cfg := &config.Config{
		Server: config.ServerConfig{Environment: "production"},
		Log:    config.LogConfig{Level: "debug"},
	}

	logger := NewWithOutput(cfg, &buf)
	assert.Equal(t, log.DebugLevel, logger.GetLevel())

	logger.WithField("workspace_id", "ws-1").Info("column reordered")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "column reordered", entry["msg"])
	assert.Equal(t, "ws-1", entry["workspace_id"])
}

func TestNew_DevelopmentUsesText(t *testing.T) {
	var buf bytes.Buffer
	cfg := &config.Config{
		Server: config.ServerConfig{Environment: "development"},
		Log:    config.LogConfig{Level: "info"},
	}

	logger := NewWithOutput(cfg, &buf)
	logger.Info("hello")

	assert.True(t, strings.Contains(buf.String(), "msg=hello"), buf.String())
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	cfg := &config.Config{Log: config.LogConfig{Level: "chatty", Format: "text"}}

	logger := NewWithOutput(cfg, &buf)

	assert.Equal(t, log.InfoLevel, logger.GetLevel())
	assert.Contains(t, buf.String(), "unknown log level")
}
