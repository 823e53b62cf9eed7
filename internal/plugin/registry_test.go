package plugin

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/troupehq/troupe/internal/character"
	"github.com/troupehq/troupe/internal/dimension"
	"github.com/troupehq/troupe/internal/platform"
)

const validExtension = `package main

var Name = "greeter"
var Triggers = []string{"<greet>"}

func Execute(input map[string]string) (map[string]string, error) {
	return map[string]string{"greeting": "hello " + input["author"]}, nil
}
`

const brokenExtension = `package main

var Name = "broken"
`

func testInvocation(content string) Invocation {
	return Invocation{
		Message:   platform.Message{Content: content, Author: platform.Author{Name: "Mika"}},
		Character: character.Character{Name: "Aria"},
	}
}

func TestMatchText(t *testing.T) {
	msg := platform.Message{Content: "roll for me <dice_roll>"}
	c := character.Character{Persona: "a fortune teller <tarot>", Instructions: "stay in character"}
	d := dimension.Dimension{GlobalNote: "<tell_time>", Instruction: "tavern scene"}

	text := MatchText(msg, c, d)
	assert.Contains(t, text, "<dice_roll>")
	assert.Contains(t, text, "<tarot>")
	assert.Contains(t, text, "<tell_time>")
	assert.Contains(t, text, "tavern scene")
}

func TestRunMatchesOncePerPlugin(t *testing.T) {
	calls := 0
	p := Func{
		PluginName:     "multi",
		PluginTriggers: []string{"<a>", "<b>"},
		Run: func(ctx context.Context, inv Invocation) (map[string]string, error) {
			calls++
			return map[string]string{"out": "ok"}, nil
		},
	}
	reg := NewRegistry(slog.Default(), t.TempDir(), p)

	outputs := reg.Run(context.Background(), testInvocation("both <a> and <b> appear"))
	require.Len(t, outputs, 1)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "ok", outputs["multi"]["out"])
}

func TestRunTriggerMatchingIsCaseSensitive(t *testing.T) {
	p := Func{
		PluginName:     "caser",
		PluginTriggers: []string{"<Roll>"},
		Run: func(ctx context.Context, inv Invocation) (map[string]string, error) {
			return map[string]string{"out": "ok"}, nil
		},
	}
	reg := NewRegistry(slog.Default(), t.TempDir(), p)

	assert.Empty(t, reg.Run(context.Background(), testInvocation("please <roll>")))
	assert.Len(t, reg.Run(context.Background(), testInvocation("please <Roll>")), 1)
}

func TestRunConvertsFailureToErrorBlock(t *testing.T) {
	failing := Func{
		PluginName:     "failing",
		PluginTriggers: []string{"<fail>"},
		Run: func(ctx context.Context, inv Invocation) (map[string]string, error) {
			return nil, errors.New("backend unavailable")
		},
	}
	panicking := Func{
		PluginName:     "panicking",
		PluginTriggers: []string{"<fail>"},
		Run: func(ctx context.Context, inv Invocation) (map[string]string, error) {
			panic("nil map write")
		},
	}
	healthy := Func{
		PluginName:     "healthy",
		PluginTriggers: []string{"<fail>"},
		Run: func(ctx context.Context, inv Invocation) (map[string]string, error) {
			return map[string]string{"out": "still here"}, nil
		},
	}
	reg := NewRegistry(slog.Default(), t.TempDir(), failing, panicking, healthy)

	outputs := reg.Run(context.Background(), testInvocation("<fail>"))
	require.Len(t, outputs, 3)
	assert.Equal(t, "backend unavailable", outputs["failing"]["error"])
	assert.Contains(t, outputs["panicking"]["error"], "panicked")
	assert.Equal(t, "still here", outputs["healthy"]["out"])
}

func TestLoaderInterpretsExtension(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "greeter.go"), []byte(validExtension), 0o644))

	loaded, err := NewLoader(slog.Default(), dir).LoadDir()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "greeter", loaded[0].Name())
	assert.Equal(t, []string{"<greet>"}, loaded[0].Triggers())

	out, err := loaded[0].Execute(context.Background(), testInvocation("<greet>"))
	require.NoError(t, err)
	assert.Equal(t, "hello Mika", out["greeting"])
}

func TestLoaderMissingDirIsEmpty(t *testing.T) {
	loaded, err := NewLoader(slog.Default(), filepath.Join(t.TempDir(), "nope")).LoadDir()
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestReloadKeepsPreviousSetOnError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "greeter.go"), []byte(validExtension), 0o644))

	reg := NewRegistry(slog.Default(), dir)
	require.NoError(t, reg.Reload())
	require.Equal(t, []string{"greeter"}, reg.Names())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.go"), []byte(brokenExtension), 0o644))
	err := reg.Reload()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.go")

	// The failed reload must not disturb the active set.
	assert.Equal(t, []string{"greeter"}, reg.Names())
}

func TestReloadRejectsDuplicateNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "greeter.go"), []byte(validExtension), 0o644))

	clash := Func{PluginName: "greeter", PluginTriggers: []string{"<x>"}}
	reg := NewRegistry(slog.Default(), dir, clash)

	err := reg.Reload()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
	assert.Equal(t, []string{"greeter"}, reg.Names())
}
