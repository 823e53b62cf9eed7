package plugin

import (
	"context"

	"github.com/troupehq/troupe/internal/character"
	"github.com/troupehq/troupe/internal/dimension"
	"github.com/troupehq/troupe/internal/platform"
	"github.com/troupehq/troupe/internal/settings"
	"github.com/troupehq/troupe/internal/store"
)

// Invocation carries everything a plugin may read during one execution.
// Plugins are stateless across invocations except for what they read from
// the store.
type Invocation struct {
	Message   platform.Message
	Character character.Character
	Dimension dimension.Dimension
	Settings  settings.Settings
	Store     store.Store
}

// Plugin is a named capability with literal trigger substrings. Execute
// returns named rendered blocks for the prompt. Failures never reach the
// prompt raw; the registry converts errors and panics into an
// {"error": ...} block.
type Plugin interface {
	Name() string
	Triggers() []string
	Execute(ctx context.Context, inv Invocation) (map[string]string, error)
}

// Func adapts a plain function into a Plugin. Built-ins use it.
type Func struct {
	PluginName     string
	PluginTriggers []string
	Run            func(ctx context.Context, inv Invocation) (map[string]string, error)
}

func (f Func) Name() string       { return f.PluginName }
func (f Func) Triggers() []string { return f.PluginTriggers }

func (f Func) Execute(ctx context.Context, inv Invocation) (map[string]string, error) {
	return f.Run(ctx, inv)
}
