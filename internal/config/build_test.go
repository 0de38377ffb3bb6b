package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewBuildInfoDefaults(t *testing.T) {
	info := NewBuildInfo()

	assert.Equal(t, "dev", info.Version)
	assert.Equal(t, "none", info.Commit)
	assert.Equal(t, "unknown", info.BuildTime)
}

func TestBuildInfoString(t *testing.T) {
	info := BuildInfo{Version: "1.4.0", Commit: "abc1234", BuildTime: "2026-01-02T03:04:05Z"}
	assert.Equal(t, "1.4.0 (abc1234, 2026-01-02T03:04:05Z)", info.String())
}
