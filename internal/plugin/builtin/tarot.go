package builtin

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/troupehq/troupe/internal/plugin"
)

var majorArcana = []string{
	"The Fool", "The Magician", "The High Priestess", "The Empress", "The Emperor",
	"The Hierophant", "The Lovers", "The Chariot", "Strength", "The Hermit",
	"Wheel of Fortune", "Justice", "The Hanged Man", "Death", "Temperance",
	"The Devil", "The Tower", "The Star", "The Moon", "The Sun",
	"Judgement", "The World",
}

var minorArcana = buildMinorArcana()

func buildMinorArcana() []string {
	suits := []string{"Wands", "Cups", "Swords", "Pentacles"}
	ranks := []string{"Ace", "2", "3", "4", "5", "6", "7", "8", "9", "10", "Page", "Knight", "Queen", "King"}
	cards := make([]string, 0, len(suits)*len(ranks))
	for _, suit := range suits {
		for _, rank := range ranks {
			cards = append(cards, rank+" of "+suit)
		}
	}
	return cards
}

type spread struct {
	positions   []string
	description string
	reversed    bool
	deck        string // "all", "major" or "minor"
}

// Spread order matters: the first name found in the request wins.
var spreadOrder = []string{
	"celtic", "relationship", "career", "decision", "week", "self reflection",
	"new moon", "full moon", "pathway", "horseshoe", "mandala", "dream",
	"year", "chakra", "general",
}

var spreads = map[string]spread{
	"general": {
		positions:   []string{"Past", "Present", "Future"},
		description: "This is a 3-card general reading: past influences, current situation, and possible outcome.",
		reversed:    true,
		deck:        "all",
	},
	"celtic": {
		positions: []string{
			"Present Situation", "Challenge", "Past Influences", "Future Possibilities",
			"Conscious Goal", "Subconscious Influence", "Advice", "External Influences",
			"Hopes and Fears", "Outcome",
		},
		description: "This is the Celtic Cross spread, a 10-card layout providing deep insight into a complex situation.",
		reversed:    true,
		deck:        "all",
	},
	"relationship": {
		positions:   []string{"You", "The Other Person", "The Relationship"},
		description: "A 3-card spread exploring dynamics in a relationship.",
		reversed:    true,
		deck:        "all",
	},
	"career": {
		positions:   []string{"Current Job", "Challenges", "Advice"},
		description: "A 3-card career-focused spread identifying work-related insights.",
		reversed:    true,
		deck:        "all",
	},
	"decision": {
		positions:   []string{"Option 1", "Option 2", "Advice on Choice"},
		description: "A 3-card spread to help weigh two options and guide your decision.",
		reversed:    true,
		deck:        "all",
	},
	"week": {
		positions: []string{
			"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday", "Overall Theme",
		},
		description: "An 8-card spread to get a feel for the week ahead and its overarching energy.",
		reversed:    true,
		deck:        "minor",
	},
	"self reflection": {
		positions:   []string{"Mind", "Body", "Spirit"},
		description: "A 3-card spread for a quick check-in with your mental, physical, and spiritual well-being.",
		reversed:    true,
		deck:        "all",
	},
	"new moon": {
		positions:   []string{"What to Release", "What to Cultivate", "Guidance for the Cycle"},
		description: "A 3-card spread to set intentions and align with the energy of the new moon.",
		reversed:    false,
		deck:        "all",
	},
	"full moon": {
		positions:   []string{"What has Culminated", "What to be Grateful For", "What to Let Go Of"},
		description: "A 3-card spread for reflection and release during the full moon.",
		reversed:    true,
		deck:        "all",
	},
	"pathway": {
		positions: []string{
			"Where You Are Now", "Your Destination", "The Steps to Take",
			"Obstacles to Overcome", "Helpful Resources",
		},
		description: "A 5-card spread that outlines the path from your current position to a desired goal.",
		reversed:    true,
		deck:        "all",
	},
	"horseshoe": {
		positions: []string{
			"Past Influences", "Present Situation", "Near Future Development",
			"The Querent's Attitude", "External Environment", "Hopes and Fears", "Final Outcome",
		},
		description: "A 7-card spread offering a more detailed look at a situation than a simple 3-card reading.",
		reversed:    true,
		deck:        "all",
	},
	"mandala": {
		positions: []string{
			"The Self (Inner State)", "Your Relationship with the Physical World",
			"Your Emotional State", "Your Intellectual State", "Your Spiritual State",
			"A Challenge to Integrate", "A Strength to Embrace",
			"Your Connection to the Divine/Universe", "Guidance for a Wholistic Life",
		},
		description: "A 9-card spread that explores various aspects of the self for a holistic overview.",
		reversed:    true,
		deck:        "all",
	},
	"dream": {
		positions: []string{
			"Core Meaning of the Dream", "Subconscious Message",
			"How it Relates to Waking Life", "Action to Take",
		},
		description: "A 4-card spread to uncover the messages and meanings hidden within a dream.",
		reversed:    true,
		deck:        "all",
	},
	"year": {
		positions: []string{
			"January", "February", "March", "April", "May", "June", "July",
			"August", "September", "October", "November", "December",
			"Overall Theme for the Year",
		},
		description: "A 13-card spread, one for each month and an overall theme, to forecast the year ahead.",
		reversed:    false,
		deck:        "major",
	},
	"chakra": {
		positions: []string{
			"Root Chakra (Security, Survival)", "Sacral Chakra (Creativity, Emotion)",
			"Solar Plexus Chakra (Personal Power, Will)", "Heart Chakra (Love, Relationships)",
			"Throat Chakra (Communication, Truth)", "Third Eye Chakra (Intuition, Insight)",
			"Crown Chakra (Spirituality, Connection)",
		},
		description: "A 7-card spread to assess the energy and balance of your major chakras.",
		reversed:    false,
		deck:        "major",
	},
}

// Tarot draws a reading for the spread named in the message, defaulting to
// the general 3-card spread.
func Tarot() plugin.Plugin {
	return plugin.Func{
		PluginName:     "tarot",
		PluginTriggers: []string{"<tarot>"},
		Run: func(ctx context.Context, inv plugin.Invocation) (map[string]string, error) {
			return map[string]string{
				"reading": Reading(inv.Message.Content),
			}, nil
		},
	}
}

// Reading formats a full tarot reading for the request text.
func Reading(request string) string {
	sanitized := strings.ToLower(strings.ReplaceAll(request, "_", " "))
	chosen := "general"
	for _, name := range spreadOrder {
		if strings.Contains(sanitized, name) {
			chosen = name
			break
		}
	}

	s := spreads[chosen]
	cards := draw(len(s.positions), s.reversed, s.deck)

	lines := make([]string, 0, len(s.positions)+2)
	lines = append(lines, s.description, "")
	for i, position := range s.positions {
		lines = append(lines, fmt.Sprintf("%s: %s", position, cards[i]))
	}
	return strings.Join(lines, "\n")
}

func draw(n int, reversedAllowed bool, deckName string) []string {
	var deck []string
	switch deckName {
	case "major":
		deck = majorArcana
	case "minor":
		deck = minorArcana
	default:
		deck = append(append([]string{}, majorArcana...), minorArcana...)
	}

	picks := rand.Perm(len(deck))[:n]
	out := make([]string, 0, n)
	for _, idx := range picks {
		status := "Upright"
		if reversedAllowed && rand.Intn(2) == 1 {
			status = "Reversed"
		}
		out = append(out, fmt.Sprintf("%s (%s)", deck[idx], status))
	}
	return out
}
