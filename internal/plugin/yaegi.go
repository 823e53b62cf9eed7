package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// An extension file is a plain Go source file interpreted at load time. It
// must declare, at package level:
//
//	var Name string
//	var Triggers []string
//	func Execute(input map[string]string) (map[string]string, error)
//
// The input map carries the message content, author name, character name
// and channel id; the output map is rendered verbatim into the prompt.
type extensionFunc func(input map[string]string) (map[string]string, error)

// Loader interprets extension files from a directory. Each LoadDir call
// uses fresh interpreter state, so edits to a file fully replace its
// previous definition.
type Loader struct {
	logger *slog.Logger
	dir    string
}

func NewLoader(log *slog.Logger, dir string) *Loader {
	return &Loader{
		logger: log.With(slog.String("service", "plugin-loader")),
		dir:    dir,
	}
}

// LoadDir interprets every .go file in the directory and returns the
// resulting plugins. Any file failing to interpret or missing a required
// symbol fails the whole load; the error names each failing file.
func (l *Loader) LoadDir() ([]Plugin, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read plugin dir: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".go") {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	var loaded []Plugin
	var loadErr error
	for _, name := range files {
		p, err := l.loadFile(filepath.Join(l.dir, name))
		if err != nil {
			loadErr = multierror.Append(loadErr, fmt.Errorf("%s: %w", name, err))
			continue
		}
		loaded = append(loaded, p)
	}
	if loadErr != nil {
		return nil, loadErr
	}
	return loaded, nil
}

func (l *Loader) loadFile(path string) (Plugin, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("load stdlib symbols: %w", err)
	}
	if _, err := i.Eval(string(src)); err != nil {
		return nil, fmt.Errorf("interpret: %w", err)
	}

	nameVal, err := i.Eval("Name")
	if err != nil {
		return nil, fmt.Errorf("missing Name: %w", err)
	}
	name, ok := nameVal.Interface().(string)
	if !ok || name == "" {
		return nil, fmt.Errorf("Name must be a non-empty string")
	}

	triggersVal, err := i.Eval("Triggers")
	if err != nil {
		return nil, fmt.Errorf("missing Triggers: %w", err)
	}
	triggers, ok := triggersVal.Interface().([]string)
	if !ok || len(triggers) == 0 {
		return nil, fmt.Errorf("Triggers must be a non-empty []string")
	}

	execVal, err := i.Eval("Execute")
	if err != nil {
		return nil, fmt.Errorf("missing Execute: %w", err)
	}
	exec, ok := execVal.Interface().(func(map[string]string) (map[string]string, error))
	if !ok {
		return nil, fmt.Errorf("Execute must be func(map[string]string) (map[string]string, error)")
	}

	l.logger.Debug("interpreted plugin", slog.String("file", filepath.Base(path)), slog.String("name", name))
	return &interpreted{name: name, triggers: triggers, exec: exec}, nil
}

type interpreted struct {
	name     string
	triggers []string
	exec     extensionFunc
}

func (p *interpreted) Name() string       { return p.name }
func (p *interpreted) Triggers() []string { return p.triggers }

// Execute runs the interpreted function on its own goroutine. Interpreted
// code cannot be cancelled, so on context expiry the call returns an error
// while the goroutine is left to finish and be discarded.
func (p *interpreted) Execute(ctx context.Context, inv Invocation) (map[string]string, error) {
	input := map[string]string{
		"content":   inv.Message.Content,
		"author":    inv.Message.Author.Name,
		"character": inv.Character.Name,
		"channel":   inv.Message.ChannelID,
	}

	type result struct {
		out map[string]string
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := p.exec(input)
		done <- result{out, err}
	}()

	select {
	case res := <-done:
		return res.out, res.err
	case <-ctx.Done():
		return nil, fmt.Errorf("plugin %s timed out: %w", p.name, ctx.Err())
	}
}
