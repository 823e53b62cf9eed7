package trigger

import (
	"strings"

	"github.com/troupehq/troupe/internal/platform"
)

// RoutingConfig is the mutable routing state threaded through resolution
// explicitly, never read from globals, so the rule machine stays testable
// in isolation.
type RoutingConfig struct {
	// BlacklistMode switches the ambient-mention rules: off means channel
	// whitelists are the sole source of eligible characters, on means the
	// whitelist merely filters a global fuzzy name match.
	BlacklistMode    bool
	DefaultCharacter string
	CommentPrefix    string
}

// Decision names the character that should respond and how the reply is
// delivered. DM marks an answer to a direct message; Default asks for the
// same plain author-addressed formatting regardless of where the message
// arrived.
type Decision struct {
	Character string
	DM        bool
	Default   bool
}

// Candidate is one character eligible to respond: its name plus any extra
// trigger words that summon it.
type Candidate struct {
	Name     string
	Triggers []string
}

func (c Candidate) mentioned(content string) bool {
	if containsFold(content, c.Name) {
		return true
	}
	for _, t := range c.Triggers {
		if containsFold(content, t) {
			return true
		}
	}
	return false
}

// Resolve runs the routing rules against one inbound message and returns
// at most one decision. Rules are evaluated in a fixed order and the first
// match wins: an explicit reply always outranks an ambient name mention,
// and DM handling is independent of the whitelist/blacklist mode.
//
// The whitelist is iterated in its stored order and known characters in
// store order (sorted by name), stopping at the first match; when two
// characters are mentioned in one message the earlier entry responds. A
// character is mentioned when its name or any of its trigger words appears
// in the text.
func Resolve(msg platform.Message, whitelist []string, known []Candidate, cfg RoutingConfig) (Decision, bool) {
	commentPrefix := cfg.CommentPrefix
	if commentPrefix == "" {
		commentPrefix = "//"
	}

	// Rule 1: direct messages go to the default character, unless the
	// author is the default character itself.
	if msg.IsDM {
		if msg.Author.Name == cfg.DefaultCharacter {
			return Decision{}, false
		}
		return Decision{Character: cfg.DefaultCharacter, DM: true, Default: true}, true
	}

	// Rule 2: nothing to match against.
	if len(whitelist) == 0 && len(known) == 0 {
		return Decision{}, false
	}

	// Rule 3: a reply to a whitelisted character selects that character.
	if msg.ReplyToID != "" && msg.ReplyToAuthor != "" {
		for _, name := range whitelist {
			if name == msg.ReplyToAuthor {
				return Decision{Character: name}, true
			}
		}
	}

	// Rule 4: persona-originated messages and comments never trigger.
	if msg.Webhook || strings.HasPrefix(msg.Content, commentPrefix) {
		return Decision{}, false
	}

	// Rule 5: whitelist-only mode. The whitelist is authoritative; a
	// whitelisted character mentioned anywhere in the text selects it.
	if !cfg.BlacklistMode && len(whitelist) > 0 {
		byName := make(map[string]Candidate, len(known))
		for _, c := range known {
			byName[c.Name] = c
		}
		for _, name := range whitelist {
			cand, ok := byName[name]
			if !ok {
				cand = Candidate{Name: name}
			}
			if cand.mentioned(msg.Content) {
				return Decision{Character: name}, true
			}
		}
		return Decision{}, false
	}

	// Rule 6: fuzzy global match. With a whitelist present, a matched
	// character outside it claims the message as a deliberate no-op
	// instead of falling through to later candidates.
	if cfg.BlacklistMode || len(whitelist) == 0 {
		for _, cand := range known {
			if cand.Name == "" || !cand.mentioned(msg.Content) {
				continue
			}
			if len(whitelist) == 0 {
				return Decision{Character: cand.Name}, true
			}
			for _, entry := range whitelist {
				if entry == cand.Name {
					return Decision{Character: cand.Name}, true
				}
			}
			return Decision{}, false
		}
	}

	return Decision{}, false
}

func containsFold(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
