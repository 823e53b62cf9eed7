package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDefaults(t *testing.T) {
	settings := normalize(map[string]string{
		"default_character": "Aria",
		"ai_endpoint":       "https://api.example.com/v1",
		"base_llm":          "test-model",
	})

	assert.Equal(t, "Aria", settings.DefaultCharacter)
	assert.False(t, settings.BlacklistMode)
	assert.Equal(t, DefaultHistoryLimit, settings.HistoryLimit)
	assert.Equal(t, DefaultPresetName, settings.PresetName)
	assert.InDelta(t, DefaultTemperature, settings.Temperature, 1e-9)
	assert.Nil(t, settings.DMList)
}

func TestNormalizeParsesValues(t *testing.T) {
	settings := normalize(map[string]string{
		"default_character": "Aria",
		"ai_endpoint":       "https://api.example.com/v1",
		"base_llm":          "test-model",
		"blacklist_mode":    "true",
		"history_limit":     "40",
		"temperature":       "1.2",
		"use_prefill":       "true",
		"dm_list":           "sam, robin ,",
	})

	assert.True(t, settings.BlacklistMode)
	assert.Equal(t, 40, settings.HistoryLimit)
	assert.InDelta(t, 1.2, settings.Temperature, 1e-9)
	assert.True(t, settings.UsePrefill)
	assert.Equal(t, []string{"sam", "robin"}, settings.DMList)
}

func TestNormalizeBadNumbersFallBack(t *testing.T) {
	settings := normalize(map[string]string{
		"history_limit": "not-a-number",
		"temperature":   "hot",
	})
	assert.Equal(t, DefaultHistoryLimit, settings.HistoryLimit)
	assert.InDelta(t, DefaultTemperature, settings.Temperature, 1e-9)
}

func TestDMAllowed(t *testing.T) {
	open := Settings{}
	assert.True(t, open.DMAllowed("anyone"))

	restricted := Settings{DMList: []string{"sam"}}
	assert.True(t, restricted.DMAllowed("sam"))
	assert.False(t, restricted.DMAllowed("robin"))
}
