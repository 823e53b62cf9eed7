package prompt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"text/template"

	"github.com/troupehq/troupe/internal/character"
	"github.com/troupehq/troupe/internal/dimension"
	"github.com/troupehq/troupe/internal/store"
)

// Input carries everything one generation's prompt is built from.
type Input struct {
	Character  character.Character
	Dimension  dimension.Dimension
	User       string // triggering author's display name, unsanitized
	History    string // output of FormatHistory
	Plugins    map[string]map[string]string
	PresetName string
}

// templateContext is what a preset template renders against. Character
// fields arrive with their placeholder tokens already resolved, so the
// outer template never sees {{char}} or {{user}}.
type templateContext struct {
	CharName    string
	User        string
	Character   string
	GlobalNote  string
	Location    string
	Instruction string
	Lore        string
	History     string
	Plugins     string
}

// Assembler renders prompts from stored preset templates.
type Assembler struct {
	store  store.Store
	logger *slog.Logger
}

func NewAssembler(log *slog.Logger, st store.Store) *Assembler {
	return &Assembler{
		store:  st,
		logger: log.With(slog.String("service", "prompt")),
	}
}

// Assemble renders the full generation prompt. The named preset is loaded
// from the store; when it does not exist yet the built-in default template
// is persisted under that name and used from then on.
func (a *Assembler) Assemble(ctx context.Context, in Input) (string, error) {
	preset, err := a.loadPreset(ctx, in.PresetName)
	if err != nil {
		return "", err
	}

	tmpl, err := template.New(preset.Name).Parse(preset.Template)
	if err != nil {
		return "", fmt.Errorf("parse preset %q: %w", preset.Name, err)
	}

	user := SanitizeName(in.User)
	tc := templateContext{
		CharName:    in.Character.Name,
		User:        user,
		Character:   in.Character.PromptBlock(user),
		GlobalNote:  section(character.ResolvePlaceholders(in.Dimension.GlobalNote, in.Character.Name, user)),
		Location:    section(in.Dimension.Location),
		Instruction: section(character.ResolvePlaceholders(in.Dimension.Instruction, in.Character.Name, user)),
		Lore:        section(renderLore(in.Dimension.Lorebook)),
		History:     in.History,
		Plugins:     section(RenderPluginBlocks(in.Plugins)),
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, tc); err != nil {
		return "", fmt.Errorf("render preset %q: %w", preset.Name, err)
	}
	return b.String(), nil
}

func (a *Assembler) loadPreset(ctx context.Context, name string) (store.Preset, error) {
	preset, err := a.store.GetPreset(ctx, name)
	if err == nil {
		return preset, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return store.Preset{}, fmt.Errorf("load preset %q: %w", name, err)
	}

	created, err := a.store.CreatePreset(ctx, store.Preset{
		Name:        name,
		Description: defaultPresetDescription,
		Template:    DefaultPresetTemplate,
	})
	if err != nil {
		return store.Preset{}, fmt.Errorf("persist default preset %q: %w", name, err)
	}
	a.logger.Info("persisted default preset", slog.String("preset", name))
	return created, nil
}

// RenderPluginBlocks flattens plugin outputs into prompt text, one block
// per plugin. Map iteration order is not stable, so blocks and the values
// inside them are sorted by name for reproducible prompts.
func RenderPluginBlocks(outputs map[string]map[string]string) string {
	if len(outputs) == 0 {
		return ""
	}

	names := make([]string, 0, len(outputs))
	for name := range outputs {
		names = append(names, name)
	}
	sort.Strings(names)

	var blocks []string
	for _, name := range names {
		values := outputs[name]
		keys := make([]string, 0, len(values))
		for key := range values {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		var lines []string
		for _, key := range keys {
			if values[key] == "" {
				continue
			}
			lines = append(lines, values[key])
		}
		if len(lines) > 0 {
			blocks = append(blocks, strings.Join(lines, "\n"))
		}
	}
	return strings.Join(blocks, "\n")
}

// section gives non-empty optional fields a trailing separator so empty
// ones vanish without leaving blank lines behind.
func section(text string) string {
	if text == "" {
		return ""
	}
	return text + "\n"
}

func renderLore(lorebook map[string]string) string {
	if len(lorebook) == 0 {
		return ""
	}
	keys := make([]string, 0, len(lorebook))
	for key := range lorebook {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, key := range keys {
		lines = append(lines, key+": "+lorebook[key])
	}
	return strings.Join(lines, "\n")
}
