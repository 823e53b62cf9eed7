package prompt

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/troupehq/troupe/internal/character"
	"github.com/troupehq/troupe/internal/dimension"
	"github.com/troupehq/troupe/internal/store"
)

type presetStore struct {
	store.Store
	presets map[string]store.Preset
	created int
}

func newPresetStore() *presetStore {
	return &presetStore{presets: map[string]store.Preset{}}
}

func (s *presetStore) GetPreset(ctx context.Context, name string) (store.Preset, error) {
	p, ok := s.presets[name]
	if !ok {
		return store.Preset{}, store.ErrNotFound
	}
	return p, nil
}

func (s *presetStore) CreatePreset(ctx context.Context, p store.Preset) (store.Preset, error) {
	s.created++
	s.presets[p.Name] = p
	return p, nil
}

func testInput() Input {
	return Input{
		Character: character.Character{
			Name:         "Aria",
			Persona:      "{{char}} is a bard fond of {{user}}.",
			Instructions: "Stay in verse.",
		},
		Dimension:  dimension.Dimension{GlobalNote: "Welcome {{user}}.", Instruction: "Tavern scene."},
		User:       "Mi-ka!",
		History:    "[Reply]Mika: sing for me[End]\n\n",
		PresetName: "default",
	}
}

func TestAssemblePersistsDefaultPresetOnce(t *testing.T) {
	st := newPresetStore()
	a := NewAssembler(slog.Default(), st)

	first, err := a.Assemble(context.Background(), testInput())
	require.NoError(t, err)
	second, err := a.Assemble(context.Background(), testInput())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, st.created)
	assert.Equal(t, DefaultPresetTemplate, st.presets["default"].Template)
}

func TestAssembleResolvesPlaceholdersBeforeTemplate(t *testing.T) {
	a := NewAssembler(slog.Default(), newPresetStore())

	prompt, err := a.Assemble(context.Background(), testInput())
	require.NoError(t, err)

	assert.Contains(t, prompt, "Aria is a bard fond of Mika.")
	assert.Contains(t, prompt, "Welcome Mika.")
	assert.Contains(t, prompt, "[Reply]Mika: sing for me[End]")
	assert.Contains(t, prompt, "[Replying to Mika] Aria:")
	assert.NotContains(t, prompt, "{{char}}")
	assert.NotContains(t, prompt, "{{user}}")
}

func TestAssembleUsesStoredPreset(t *testing.T) {
	st := newPresetStore()
	st.presets["custom"] = store.Preset{Name: "custom", Template: "history only:\n{{.History}}"}
	a := NewAssembler(slog.Default(), st)

	in := testInput()
	in.PresetName = "custom"
	prompt, err := a.Assemble(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, "history only:\n[Reply]Mika: sing for me[End]\n\n", prompt)
	assert.Equal(t, 0, st.created)
}

func TestAssembleEmptyOptionalFieldsRenderEmpty(t *testing.T) {
	a := NewAssembler(slog.Default(), newPresetStore())

	in := testInput()
	in.Dimension = dimension.Dimension{}
	prompt, err := a.Assemble(context.Background(), in)
	require.NoError(t, err)

	assert.NotContains(t, prompt, "<no value>")
	assert.Contains(t, prompt, "[Replying to Mika] Aria:")
}

func TestRenderPluginBlocks(t *testing.T) {
	blocks := RenderPluginBlocks(map[string]map[string]string{
		"time": {"tell_time": "[System Note: Current Time: 2026-08-31 12:00]"},
		"battle": {
			"attack_roll": "[System Note: Attack Roll: Aria rolled a 12/20]",
			"defend_roll": "[System Note: Defend Roll: Aria rolled a 7/20]",
		},
		"empty": {},
	})

	assert.Equal(t,
		"[System Note: Attack Roll: Aria rolled a 12/20]\n"+
			"[System Note: Defend Roll: Aria rolled a 7/20]\n"+
			"[System Note: Current Time: 2026-08-31 12:00]",
		blocks)
}

func TestStopSet(t *testing.T) {
	stops := StopSet("Aria", "Mika")
	assert.Contains(t, stops, "Aria:")
	assert.Contains(t, stops, "Mika:")
	assert.Contains(t, stops, "[End")
	assert.Contains(t, stops, "[System")

	// Same speaker both sides must not duplicate the prefix.
	dup := StopSet("Aria", "Aria")
	count := 0
	for _, s := range dup {
		if s == "Aria:" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestPrefill(t *testing.T) {
	assert.Equal(t, "[Reply] Aria:", Prefill("Aria"))
}
