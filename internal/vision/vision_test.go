package vision

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/troupehq/troupe/internal/platform"
	"github.com/troupehq/troupe/internal/settings"
	"github.com/troupehq/troupe/internal/store"
)

type fakeStore struct {
	store.Store
	captions map[string]string
}

func (s *fakeStore) GetCaption(ctx context.Context, messageID string) (string, error) {
	if c, ok := s.captions[messageID]; ok {
		return c, nil
	}
	return "", store.ErrNotFound
}

func (s *fakeStore) SetCaption(ctx context.Context, messageID, caption string) error {
	s.captions[messageID] = caption
	return nil
}

func (s *fakeStore) ListConfigs(ctx context.Context) (map[string]string, error) {
	return map[string]string{}, nil
}

func newTestCaptioner(st *fakeStore) *Captioner {
	log := slog.Default()
	return NewCaptioner(log, st, settings.NewService(log, st))
}

func TestCaptionReturnsCachedImageDescription(t *testing.T) {
	st := &fakeStore{captions: map[string]string{"m1": "a red fox"}}
	c := newTestCaptioner(st)

	msg := platform.Message{
		ID:          "m1",
		Content:     "what is this",
		Attachments: []platform.Attachment{{ContentType: "image/png", URL: "https://cdn.example/x.png"}},
	}
	got, ok := c.Caption(context.Background(), msg)
	require.True(t, ok)
	assert.Equal(t, "a red fox", got)
}

func TestCaptionRoutesVideoLinkThroughCache(t *testing.T) {
	st := &fakeStore{captions: map[string]string{"m2": "Cat Video"}}
	c := newTestCaptioner(st)

	msg := platform.Message{ID: "m2", Content: "watch https://youtu.be/dQw4w9WgXcQ"}
	got, ok := c.Caption(context.Background(), msg)
	require.True(t, ok)
	assert.Equal(t, "Cat Video", got)
}

func TestCaptionNothingToDescribe(t *testing.T) {
	st := &fakeStore{captions: map[string]string{}}
	c := newTestCaptioner(st)

	_, ok := c.Caption(context.Background(), platform.Message{ID: "m3", Content: "plain text"})
	assert.False(t, ok)
}

func TestLinkCaptionFetchesOnceThenCaches(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		fmt.Fprint(w, `<html><head><title>Cat Video</title><meta name="description" content="ten minutes of cats"></head><body></body></html>`)
	}))
	defer srv.Close()

	st := &fakeStore{captions: map[string]string{}}
	c := newTestCaptioner(st)
	msg := platform.Message{ID: "m4", Content: "watch this"}

	got, ok := c.linkCaption(context.Background(), msg, srv.URL)
	require.True(t, ok)
	assert.Equal(t, "Cat Video ten minutes of cats", got)

	// Second resolution comes out of the cache.
	got, ok = c.linkCaption(context.Background(), msg, srv.URL)
	require.True(t, ok)
	assert.Equal(t, "Cat Video ten minutes of cats", got)
	assert.Equal(t, 1, hits)
}

func TestLinkCaptionFetchFailureIsSilent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	st := &fakeStore{captions: map[string]string{}}
	c := newTestCaptioner(st)

	_, ok := c.linkCaption(context.Background(), platform.Message{ID: "m5"}, srv.URL)
	assert.False(t, ok)
	assert.Empty(t, st.captions)
}
