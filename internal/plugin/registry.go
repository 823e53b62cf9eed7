package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/troupehq/troupe/internal/character"
	"github.com/troupehq/troupe/internal/dimension"
	"github.com/troupehq/troupe/internal/platform"
)

const defaultExecuteTimeout = 30 * time.Second

// Registry holds the active plugin set: compiled-in built-ins plus
// interpreted extensions from the plugin directory. The extension set is
// replaced wholesale on every successful reload and left untouched on a
// failed one, so callers never observe a partially-updated set.
type Registry struct {
	logger  *slog.Logger
	loader  *Loader
	timeout time.Duration

	mu       sync.RWMutex
	builtins []Plugin
	dynamic  []Plugin
}

func NewRegistry(log *slog.Logger, dir string, builtins ...Plugin) *Registry {
	return &Registry{
		logger:   log.With(slog.String("service", "plugins")),
		loader:   NewLoader(log, dir),
		timeout:  defaultExecuteTimeout,
		builtins: builtins,
	}
}

// Plugins returns a snapshot of the active set, built-ins first.
func (r *Registry) Plugins() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Plugin, 0, len(r.builtins)+len(r.dynamic))
	out = append(out, r.builtins...)
	out = append(out, r.dynamic...)
	return out
}

// Names returns the active plugin names, built-ins first.
func (r *Registry) Names() []string {
	plugins := r.Plugins()
	names := make([]string, 0, len(plugins))
	for _, p := range plugins {
		names = append(names, p.Name())
	}
	return names
}

// Reload re-scans the extension directory and atomically swaps in the new
// set. On any load error the previous set stays active and the error names
// the failing files. Plugins are recognized by their declared name, never
// by type identity, so a reload of the same file replaces its predecessor
// cleanly.
func (r *Registry) Reload() error {
	loaded, err := r.loader.LoadDir()
	if err != nil {
		r.logger.Error("plugin reload failed, keeping previous set", slog.Any("error", err))
		return err
	}

	seen := make(map[string]struct{}, len(r.builtins)+len(loaded))
	for _, p := range r.builtins {
		seen[p.Name()] = struct{}{}
	}
	for _, p := range loaded {
		if _, dup := seen[p.Name()]; dup {
			err := fmt.Errorf("duplicate plugin name %q", p.Name())
			r.logger.Error("plugin reload failed, keeping previous set", slog.Any("error", err))
			return err
		}
		seen[p.Name()] = struct{}{}
	}

	r.mu.Lock()
	r.dynamic = loaded
	r.mu.Unlock()

	r.logger.Info("plugins reloaded", slog.Int("dynamic", len(loaded)), slog.Int("builtin", len(r.builtins)))
	return nil
}

// MatchText builds the trigger-matching text for one generation: message
// content plus character persona/instructions plus the dimension's global
// note and instruction. It is computed once per generation and matched
// with case-sensitive substring tests.
func MatchText(msg platform.Message, c character.Character, d dimension.Dimension) string {
	return strings.Join([]string{
		msg.Content,
		c.Persona,
		c.Instructions,
		d.GlobalNote,
		d.Instruction,
	}, "\n")
}

// Run matches and executes plugins for one generation. Each plugin runs at
// most once even when several of its triggers match; failures and panics
// become {"error": ...} blocks so one broken plugin never aborts assembly
// for the rest.
func (r *Registry) Run(ctx context.Context, inv Invocation) map[string]map[string]string {
	text := MatchText(inv.Message, inv.Character, inv.Dimension)
	outputs := make(map[string]map[string]string)

	for _, p := range r.Plugins() {
		if !matches(text, p.Triggers()) {
			continue
		}
		outputs[p.Name()] = r.execute(ctx, p, inv)
	}
	return outputs
}

func matches(text string, triggers []string) bool {
	for _, trigger := range triggers {
		if trigger != "" && strings.Contains(text, trigger) {
			return true
		}
	}
	return false
}

func (r *Registry) execute(ctx context.Context, p Plugin, inv Invocation) (out map[string]string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("plugin panicked", slog.String("plugin", p.Name()), slog.Any("panic", rec))
			out = map[string]string{"error": fmt.Sprintf("plugin %s panicked: %v", p.Name(), rec)}
		}
	}()

	execCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	result, err := p.Execute(execCtx, inv)
	if err != nil {
		r.logger.Warn("plugin failed", slog.String("plugin", p.Name()), slog.Any("error", err))
		return map[string]string{"error": err.Error()}
	}
	return result
}
