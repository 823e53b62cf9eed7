package builtin

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/troupehq/troupe/internal/plugin"
)

// Dice rolls a single d20 attack roll for the active character.
func Dice() plugin.Plugin {
	return plugin.Func{
		PluginName:     "dice",
		PluginTriggers: []string{"<dice_roll>"},
		Run: func(ctx context.Context, inv plugin.Invocation) (map[string]string, error) {
			roll := rand.Intn(20) + 1
			return map[string]string{
				"dice_roll": fmt.Sprintf("[System Note: Attack Roll: %s rolled a %d/20]", inv.Character.Name, roll),
			}, nil
		},
	}
}

// Battle rolls paired attack and defend d20s for combat roleplay.
func Battle() plugin.Plugin {
	return plugin.Func{
		PluginName:     "battle",
		PluginTriggers: []string{"<battle_rp>"},
		Run: func(ctx context.Context, inv plugin.Invocation) (map[string]string, error) {
			name := inv.Character.Name
			attack := rand.Intn(20) + 1
			defend := rand.Intn(20) + 1
			return map[string]string{
				"attack_roll": fmt.Sprintf("[System Note: Attack Roll: %s rolled a %d/20 for their attack action.]", name, attack),
				"defend_roll": fmt.Sprintf("[System Note: Defend Roll: %s rolled a %d/20 for their defend action.]", name, defend),
			}, nil
		},
	}
}
