package trigger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/troupehq/troupe/internal/platform"
)

func msg(content string) platform.Message {
	return platform.Message{
		ID:        "m1",
		ChannelID: "c1",
		Author:    platform.Author{ID: "u1", Name: "Sam"},
		Content:   content,
	}
}

func cands(names ...string) []Candidate {
	out := make([]Candidate, 0, len(names))
	for _, name := range names {
		out = append(out, Candidate{Name: name})
	}
	return out
}

func TestResolve_DMSelectsDefaultCharacter(t *testing.T) {
	m := msg("hello there")
	m.IsDM = true

	decision, ok := Resolve(m, nil, nil, RoutingConfig{DefaultCharacter: "Aria"})
	assert.True(t, ok)
	assert.Equal(t, Decision{Character: "Aria", DM: true, Default: true}, decision)
}

func TestResolve_DMFromDefaultCharacterIgnored(t *testing.T) {
	m := msg("talking to myself")
	m.IsDM = true
	m.Author.Name = "Aria"

	_, ok := Resolve(m, nil, nil, RoutingConfig{DefaultCharacter: "Aria"})
	assert.False(t, ok)
}

func TestResolve_NoEligibilityData(t *testing.T) {
	_, ok := Resolve(msg("Aria, are you there?"), nil, nil, RoutingConfig{DefaultCharacter: "Aria"})
	assert.False(t, ok)
}

func TestResolve_ReplyOutranksFuzzyMatch(t *testing.T) {
	m := msg("Bram you would not believe what Aria said")
	m.ReplyToID = "m0"
	m.ReplyToAuthor = "Bram"

	decision, ok := Resolve(m, []string{"Aria", "Bram"}, cands("Aria", "Bram"), RoutingConfig{})
	assert.True(t, ok)
	assert.Equal(t, "Bram", decision.Character)
	assert.False(t, decision.DM)
}

func TestResolve_WebhookMessageIgnored(t *testing.T) {
	m := msg("Aria is here")
	m.Webhook = true

	_, ok := Resolve(m, []string{"Aria"}, cands("Aria"), RoutingConfig{})
	assert.False(t, ok)
}

func TestResolve_CommentPrefixIgnored(t *testing.T) {
	_, ok := Resolve(msg("// Aria ignore this"), []string{"Aria"}, cands("Aria"), RoutingConfig{})
	assert.False(t, ok)
}

func TestResolve_WhitelistModeMention(t *testing.T) {
	decision, ok := Resolve(msg("hey aria, what time is it"), []string{"Aria"}, cands("Aria", "Bram"), RoutingConfig{})
	assert.True(t, ok)
	assert.Equal(t, "Aria", decision.Character)
}

func TestResolve_WhitelistModeFirstEntryWins(t *testing.T) {
	decision, ok := Resolve(msg("Bram and Aria, both of you"), []string{"Aria", "Bram"}, nil, RoutingConfig{})
	assert.True(t, ok)
	assert.Equal(t, "Aria", decision.Character)
}

func TestResolve_BlacklistModeFuzzyMatch(t *testing.T) {
	decision, ok := Resolve(msg("Aria is here"), nil, cands("Aria"), RoutingConfig{BlacklistMode: true})
	assert.True(t, ok)
	assert.Equal(t, "Aria", decision.Character)
}

func TestResolve_TriggerWordSelectsWhitelisted(t *testing.T) {
	known := []Candidate{{Name: "Aria", Triggers: []string{"bard", "songbird"}}}

	decision, ok := Resolve(msg("any Songbird around tonight?"), []string{"Aria"}, known, RoutingConfig{})
	assert.True(t, ok)
	assert.Equal(t, "Aria", decision.Character)

	// The name itself still matches alongside the trigger words.
	decision, ok = Resolve(msg("aria?"), []string{"Aria"}, known, RoutingConfig{})
	assert.True(t, ok)
	assert.Equal(t, "Aria", decision.Character)
}

func TestResolve_TriggerWordMatchesGlobally(t *testing.T) {
	known := []Candidate{
		{Name: "Aria", Triggers: []string{"bard"}},
		{Name: "Bram", Triggers: []string{"knight"}},
	}

	decision, ok := Resolve(msg("where is the knight?"), nil, known, RoutingConfig{BlacklistMode: true})
	assert.True(t, ok)
	assert.Equal(t, "Bram", decision.Character)

	_, ok = Resolve(msg("no trigger here"), nil, known, RoutingConfig{BlacklistMode: true})
	assert.False(t, ok)
}

func TestResolve_WhitelistClaimsNonMemberAsNoOp(t *testing.T) {
	// Whitelist mode with whitelist ["Aria"]: a message mentioning only
	// Bram resolves to no character at all.
	_, ok := Resolve(msg("Bram, say something"), []string{"Aria"}, cands("Aria", "Bram"), RoutingConfig{})
	assert.False(t, ok)

	// Blacklist mode: Bram matches globally but is outside the whitelist,
	// so the message is claimed without a response, not passed to Aria.
	_, ok = Resolve(msg("Bram, say something"), []string{"Aria"}, cands("Bram", "Aria"), RoutingConfig{BlacklistMode: true})
	assert.False(t, ok)
}

func TestResolve_DMIndependentOfMode(t *testing.T) {
	m := msg("anything")
	m.IsDM = true

	for _, blacklist := range []bool{false, true} {
		decision, ok := Resolve(m, nil, nil, RoutingConfig{DefaultCharacter: "Aria", BlacklistMode: blacklist})
		assert.True(t, ok)
		assert.True(t, decision.DM)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		msg  platform.Message
		want Kind
	}{
		{"plain", msg("hello"), KindPlain},
		{"comment", msg("// not for you"), KindComment},
		{"search", msg("search> latest go release"), KindSearch},
		{"video", msg("look https://www.youtube.com/watch?v=dQw4w9WgXcQ"), KindVideoLink},
		{"comment wins over search", msg("//search> nope"), KindComment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.msg))
		})
	}

	withImage := msg("what is this")
	withImage.Attachments = []platform.Attachment{{ContentType: "image/png", URL: "https://cdn.example/x.png"}}
	assert.Equal(t, KindAttachment, Classify(withImage))
}

func TestVideoLink(t *testing.T) {
	assert.Equal(t,
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		VideoLink("look https://www.youtube.com/watch?v=dQw4w9WgXcQ now"))
	// A bare link gains a scheme so it can be fetched.
	assert.Equal(t,
		"https://youtu.be/dQw4w9WgXcQ",
		VideoLink("youtu.be/dQw4w9WgXcQ"))
	assert.Equal(t, "", VideoLink("no links here"))
}
