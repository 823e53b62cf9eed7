package prompt

// DefaultPresetTemplate is persisted on first use when the configured
// preset does not exist yet. Sections render empty when their source field
// is empty, so a minimal deployment still produces a usable prompt.
const DefaultPresetTemplate = `{{.Character}}
{{.GlobalNote}}{{.Lore}}{{.Plugins}}{{.History}}{{.Location}}{{.Instruction}}
[Replying to {{.User}}] {{.CharName}}:`

const defaultPresetDescription = "Built-in default prompt layout."

// Prefill returns the assistant prefill turn used when prefill mode is on.
func Prefill(charName string) string {
	return "[Reply] " + charName + ":"
}

// StopSet builds the generation stop sequences for one exchange: system and
// reply block openers, end-of-turn markers, and both speaker prefixes so
// the model never continues past its own turn.
func StopSet(charName, userName string) []string {
	candidates := []string{
		"[System", "(System",
		"[Reply", "(Reply",
		"System Note",
		"[End", "[/",
		userName + ":",
		charName + ":",
	}
	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c == ":" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
