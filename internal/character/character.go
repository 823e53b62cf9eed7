package character

import (
	"strings"
)

const (
	charPlaceholder = "{{char}}"
	userPlaceholder = "{{user}}"
)

// Character is an AI persona. Records are re-fetched from the store per
// generation so edits take effect on the next message.
type Character struct {
	Name         string   `json:"name"`
	Persona      string   `json:"persona"`
	Examples     []string `json:"examples"`
	Instructions string   `json:"instructions"`
	Avatar       string   `json:"avatar"`
	Info         string   `json:"info"`
	Triggers     []string `json:"triggers"`
}

// ResolvePlaceholders substitutes the {{char}} and {{user}} tokens inside a
// character-authored field. This runs before the outer preset template
// renders, so placeholder tokens inside persona text never leak into the
// final prompt.
func ResolvePlaceholders(text, charName, userName string) string {
	text = strings.ReplaceAll(text, charPlaceholder, charName)
	return strings.ReplaceAll(text, userPlaceholder, userName)
}

// PromptBlock renders the character identity section of a generation
// prompt: a role preamble, the resolved persona, framed example exchanges,
// and the character's standing instructions.
func (c Character) PromptBlock(userName string) string {
	persona := ResolvePlaceholders(c.Persona, c.Name, userName)

	examples := make([]string, 0, len(c.Examples))
	for _, example := range c.Examples {
		line := ResolvePlaceholders(example, c.Name, userName)
		if !strings.HasPrefix(line, "[System") {
			line = "[Reply] " + line + " [End]"
		}
		examples = append(examples, line)
	}

	var b strings.Builder
	b.WriteString("You are ")
	b.WriteString(c.Name)
	b.WriteString(", you embody their character, persona, goals, personality, and bias which is described in detail below:\n")
	b.WriteString("Your persona: ")
	b.WriteString(persona)
	b.WriteString("\n")
	b.WriteString("A history reference to your speaking quirks and behavior:\n")
	b.WriteString(strings.Join(examples, "\n"))
	b.WriteString("\n")
	b.WriteString(ResolvePlaceholders(c.Instructions, c.Name, userName))
	return b.String()
}
