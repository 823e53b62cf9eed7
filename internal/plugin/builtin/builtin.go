// Package builtin holds the compiled-in plugins shipped with every
// deployment. They share the same contract as interpreted extensions and
// are registered ahead of them.
package builtin

import "github.com/troupehq/troupe/internal/plugin"

// All returns the full built-in set in registration order.
func All() []plugin.Plugin {
	return []plugin.Plugin{Time(), Dice(), Battle(), Tarot(), Search(), ImageGen()}
}
