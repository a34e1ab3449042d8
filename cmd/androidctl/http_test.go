package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	v1 "github.com/kandev/androidctl/pkg/api/v1"
)

func TestMergeAgentConfigKeepsDefaultsWhenRequestOmitsFields(t *testing.T) {
	base := v1.AgentConfig{MaxSteps: 100, Language: v1.LanguageEnglish, DeviceID: ""}

	got := mergeAgentConfig(base, startTaskRequest{})

	assert.Equal(t, 100, got.MaxSteps)
	assert.Equal(t, v1.LanguageEnglish, got.Language)
	assert.Empty(t, got.DeviceID)
}

func TestMergeAgentConfigAppliesRequestOverrides(t *testing.T) {
	base := v1.AgentConfig{MaxSteps: 100, Language: v1.LanguageEnglish}

	got := mergeAgentConfig(base, startTaskRequest{
		MaxSteps:  5,
		DeviceID:  "emulator-5554",
		Language:  v1.LanguageChinese,
		Verbose:   true,
		Recording: true,
	})

	assert.Equal(t, 5, got.MaxSteps)
	assert.Equal(t, "emulator-5554", got.DeviceID)
	assert.Equal(t, v1.LanguageChinese, got.Language)
	assert.True(t, got.Verbose)
	assert.True(t, got.Recording)
}

func TestMergeAgentConfigVerboseAndRecordingAlwaysFollowRequest(t *testing.T) {
	base := v1.AgentConfig{MaxSteps: 100, Verbose: true, Recording: true}

	got := mergeAgentConfig(base, startTaskRequest{})

	assert.False(t, got.Verbose)
	assert.False(t, got.Recording)
}
