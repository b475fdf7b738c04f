package view

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/testbook/internal/api"
	"github.com/UkralStul/testbook/internal/domain"
	"github.com/UkralStul/testbook/internal/relbus"
	"github.com/UkralStul/testbook/internal/server"
	"github.com/UkralStul/testbook/internal/storage"
	"github.com/UkralStul/testbook/internal/storage/inmemory"
)

// Блокировка на экране профиля убирает посты автора из смонтированной ленты.
func TestViews_BlockFromProfileReloadsFeed(t *testing.T) {
	store := inmemory.New()
	ctx := context.Background()
	for _, name := range []string{"sarahjohnson", "mikechen"} {
		_, err := store.CreateUser(ctx, &storage.User{Username: name, DisplayName: name})
		require.NoError(t, err)
	}
	ts := httptest.NewServer(server.New(store, nil).Router(false))
	t.Cleanup(ts.Close)

	mike := api.New(ts.URL+"/api", "mikechen")
	_, err := mike.CreatePost(ctx, domain.NewPost{Content: "Weekend hike photos"})
	require.NoError(t, err)

	bus := relbus.New(relbus.NewMemoryStore(), nil)
	t.Cleanup(func() { _ = bus.Close() })
	deps := Deps{API: api.New(ts.URL+"/api", "sarahjohnson"), Bus: bus}

	feed := NewFeed(deps, FeedAll)
	t.Cleanup(feed.Close)
	require.NoError(t, feed.Mount(ctx))
	require.Len(t, feed.Posts(), 1)

	profile := NewProfile(deps, "mikechen")
	t.Cleanup(profile.Close)
	require.NoError(t, profile.Load(ctx))
	require.NoError(t, profile.ToggleBlock(ctx))

	assert.Eventually(t, func() bool { return len(feed.Posts()) == 0 }, 2*time.Second, 10*time.Millisecond)
	prof, _ := profile.Profile()
	assert.True(t, prof.IsBlocked)
}
