package builtin

import (
	"context"
	"fmt"
	"time"

	"github.com/troupehq/troupe/internal/plugin"
)

// Time reports the current wall-clock time so characters can answer
// "what time is it" without hallucinating one.
func Time() plugin.Plugin {
	return plugin.Func{
		PluginName:     "time",
		PluginTriggers: []string{"<tell_time>"},
		Run: func(ctx context.Context, inv plugin.Invocation) (map[string]string, error) {
			now := time.Now().Format("2006-01-02 15:04")
			return map[string]string{
				"tell_time": fmt.Sprintf("[System Note: Current Time: %s]", now),
			}, nil
		},
	}
}
