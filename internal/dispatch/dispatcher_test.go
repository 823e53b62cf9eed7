package dispatch

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/troupehq/troupe/internal/pipeline"
	"github.com/troupehq/troupe/internal/platform"
)

type fakeSender struct {
	channel []string
	dm      []string
}

func (s *fakeSender) SendChannel(ctx context.Context, channelID, text string) error {
	s.channel = append(s.channel, text)
	return nil
}

func (s *fakeSender) SendDM(ctx context.Context, userID, text string) error {
	s.dm = append(s.dm, text)
	return nil
}

type fakePersona struct {
	targets   []platform.Target
	texts     []string
	galleries [][]string
	files     [][]string
}

func (p *fakePersona) SendPersona(ctx context.Context, target platform.Target, persona platform.Persona, text string) error {
	p.targets = append(p.targets, target)
	p.texts = append(p.texts, text)
	return nil
}

func (p *fakePersona) SendPersonaGallery(ctx context.Context, target platform.Target, persona platform.Persona, imageURLs []string) error {
	p.galleries = append(p.galleries, imageURLs)
	return nil
}

func (p *fakePersona) SendPersonaFiles(ctx context.Context, target platform.Target, persona platform.Persona, paths []string) error {
	p.files = append(p.files, paths)
	return nil
}

func testItem(result string) pipeline.Item {
	return pipeline.Item{
		Source: platform.Message{
			ID:        "m1",
			ChannelID: "chan-1",
			Author:    platform.Author{ID: "u1", Name: "Mika"},
		},
		Character: "Aria",
		Persona:   platform.Persona{Name: "Aria", AvatarURL: "https://cdn.example/aria.png"},
		Result:    result,
	}
}

func TestChunkRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 1998, 1999, 2000, 3998, 3999, 10000} {
		text := strings.Repeat("x", n)
		chunks := Chunk(text, ChunkSize)

		assert.Equal(t, text, strings.Join(chunks, ""), "length %d", n)
		for i, chunk := range chunks[:max(len(chunks)-1, 0)] {
			assert.Len(t, chunk, ChunkSize, "length %d chunk %d", n, i)
		}
	}
}

func TestChunkKeepsRunesIntact(t *testing.T) {
	// Two-byte runes: a byte-indexed split would cut one in half and leave
	// both neighboring chunks invalid.
	text := strings.Repeat("é", ChunkSize+500)
	chunks := Chunk(text, ChunkSize)

	require.Len(t, chunks, 2)
	assert.Equal(t, text, strings.Join(chunks, ""))
	assert.Equal(t, ChunkSize, utf8.RuneCountInString(chunks[0]))
	assert.Equal(t, 500, utf8.RuneCountInString(chunks[1]))
	for i, chunk := range chunks {
		assert.True(t, utf8.ValidString(chunk), "chunk %d", i)
	}

	mixed := strings.Repeat("a✨", 1500)
	mixedChunks := Chunk(mixed, ChunkSize)
	assert.Equal(t, mixed, strings.Join(mixedChunks, ""))
	for i, chunk := range mixedChunks {
		assert.True(t, utf8.ValidString(chunk), "mixed chunk %d", i)
		if i < len(mixedChunks)-1 {
			assert.Equal(t, ChunkSize, utf8.RuneCountInString(chunk), "mixed chunk %d", i)
		}
	}
}

func TestDispatchPersonaChunks(t *testing.T) {
	sender := &fakeSender{}
	persona := &fakePersona{}
	d := NewDispatcher(slog.Default(), sender, persona)

	long := strings.Repeat("a", ChunkSize+5)
	require.NoError(t, d.Dispatch(context.Background(), testItem(long)))

	require.Len(t, persona.texts, 2)
	assert.Len(t, persona.texts[0], ChunkSize)
	assert.Equal(t, strings.Repeat("a", 5), persona.texts[1])
	assert.Empty(t, sender.channel)
	assert.Empty(t, sender.dm)
	assert.Equal(t, platform.Target{ChannelID: "chan-1"}, persona.targets[0])
}

func TestDispatchErrorGoesPlain(t *testing.T) {
	sender := &fakeSender{}
	persona := &fakePersona{}
	d := NewDispatcher(slog.Default(), sender, persona)

	item := testItem("")
	item.Error = "model overloaded"
	require.NoError(t, d.Dispatch(context.Background(), item))

	require.Len(t, sender.channel, 1)
	assert.Equal(t, "[System Note: model overloaded]", sender.channel[0])
	assert.Empty(t, persona.texts)
}

func TestDispatchDMRoute(t *testing.T) {
	sender := &fakeSender{}
	persona := &fakePersona{}
	d := NewDispatcher(slog.Default(), sender, persona)

	item := testItem("hello")
	item.DM = true
	require.NoError(t, d.Dispatch(context.Background(), item))

	assert.Equal(t, []string{"hello"}, sender.dm)
	assert.Empty(t, persona.texts)
}

func TestDispatchDefaultRouteGoesToAuthorDM(t *testing.T) {
	sender := &fakeSender{}
	persona := &fakePersona{}
	d := NewDispatcher(slog.Default(), sender, persona)

	// Default formatting applies even though the item is not a DM reply.
	item := testItem("hello")
	item.Default = true
	require.NoError(t, d.Dispatch(context.Background(), item))

	assert.Equal(t, []string{"hello"}, sender.dm)
	assert.Empty(t, persona.texts)
	assert.Empty(t, sender.channel)
}

func TestDispatchThreadTargetsParentWebhook(t *testing.T) {
	sender := &fakeSender{}
	persona := &fakePersona{}
	d := NewDispatcher(slog.Default(), sender, persona)

	item := testItem("hi")
	item.Source.IsThread = true
	item.Source.ParentChannelID = "parent-1"
	require.NoError(t, d.Dispatch(context.Background(), item))

	require.Len(t, persona.targets, 1)
	assert.Equal(t, platform.Target{ChannelID: "parent-1", ThreadID: "chan-1"}, persona.targets[0])
}

func TestDispatchNeutralizesBroadMentions(t *testing.T) {
	sender := &fakeSender{}
	persona := &fakePersona{}
	d := NewDispatcher(slog.Default(), sender, persona)

	require.NoError(t, d.Dispatch(context.Background(), testItem("hey @everyone and @here")))

	require.Len(t, persona.texts, 1)
	assert.Equal(t, "hey @​everyone and @​here", persona.texts[0])
}

func TestDispatchStripsOwnSpeakerPrefix(t *testing.T) {
	sender := &fakeSender{}
	persona := &fakePersona{}
	d := NewDispatcher(slog.Default(), sender, persona)

	require.NoError(t, d.Dispatch(context.Background(), testItem("Aria: good evening")))

	require.Len(t, persona.texts, 1)
	assert.Equal(t, "good evening", persona.texts[0])
}

func TestDispatchImageRouting(t *testing.T) {
	sender := &fakeSender{}
	persona := &fakePersona{}
	d := NewDispatcher(slog.Default(), sender, persona)

	item := testItem("look")
	item.Images = []string{
		"https://img.example/a.png",
		"https://img.example/b.png",
		"definitely-not-a-file.png",
	}
	require.NoError(t, d.Dispatch(context.Background(), item))

	require.Len(t, persona.galleries, 1)
	assert.Equal(t, []string{"https://img.example/a.png", "https://img.example/b.png"}, persona.galleries[0])
	// Bad refs degrade to a warning without clawing back the text send.
	require.Len(t, sender.channel, 1)
	assert.Equal(t, imageWarning, sender.channel[0])
	assert.Equal(t, []string{"look"}, persona.texts)
}

func TestSplitImageRefs(t *testing.T) {
	urls, files, bad := splitImageRefs([]string{"https://a.example/x.png", "/nonexistent/path.png", ""})
	assert.Equal(t, []string{"https://a.example/x.png"}, urls)
	assert.Empty(t, files)
	assert.Equal(t, []string{"/nonexistent/path.png"}, bad)
}
