package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/testbook/internal/api"
	"github.com/UkralStul/testbook/internal/domain"
	"github.com/UkralStul/testbook/internal/storage"
	"github.com/UkralStul/testbook/internal/storage/inmemory"
)

type testEnv struct {
	srv   *Server
	http  *httptest.Server
	store *inmemory.Store
}

// newTestServer поднимает сервер с пользователями sarah, mike и emma.
func newTestServer(t *testing.T) *testEnv {
	store := inmemory.New()
	ctx := context.Background()
	for _, name := range []string{"sarah", "mike", "emma"} {
		_, err := store.CreateUser(ctx, &storage.User{Username: name, DisplayName: strings.ToUpper(name[:1]) + name[1:]})
		require.NoError(t, err)
	}
	srv := New(store, nil)
	ts := httptest.NewServer(srv.Router(false))
	t.Cleanup(ts.Close)
	return &testEnv{srv: srv, http: ts, store: store}
}

func (e *testEnv) client(username string) *api.Client {
	return api.New(e.http.URL+"/api", username)
}

func TestServer_RequiresToken(t *testing.T) {
	env := newTestServer(t)
	ctx := context.Background()

	_, err := env.client("").AllFeed(ctx, api.DefaultPage)
	assert.Equal(t, http.StatusUnauthorized, api.StatusCode(err))

	_, err = env.client("nobody").AllFeed(ctx, api.DefaultPage)
	assert.Equal(t, http.StatusUnauthorized, api.StatusCode(err))
}

func TestServer_CreatePostValidation(t *testing.T) {
	env := newTestServer(t)
	ctx := context.Background()
	sarah := env.client("sarah")

	_, err := sarah.CreatePost(ctx, domain.NewPost{Content: "   "})
	require.Error(t, err)
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Post content cannot be empty", apiErr.Detail)

	img, vid := "/a.jpg", "/b.mp4"
	_, err = sarah.CreatePost(ctx, domain.NewPost{Content: "both", ImageURL: &img, VideoURL: &vid})
	assert.Equal(t, http.StatusBadRequest, api.StatusCode(err))

	p, err := sarah.CreatePost(ctx, domain.NewPost{Content: "Hello", ImageURL: &img})
	require.NoError(t, err)
	assert.Equal(t, "Hello", p.Content)
	assert.Equal(t, "sarah", p.AuthorUsername)
	require.NotNil(t, p.ImageURL)
	assert.Equal(t, img, *p.ImageURL)
	assert.Nil(t, p.Comments)
}

func TestServer_FeedNewestFirstWithoutBlocked(t *testing.T) {
	env := newTestServer(t)
	ctx := context.Background()
	sarah, mike, emma := env.client("sarah"), env.client("mike"), env.client("emma")

	first, err := mike.CreatePost(ctx, domain.NewPost{Content: "from mike"})
	require.NoError(t, err)
	second, err := emma.CreatePost(ctx, domain.NewPost{Content: "from emma"})
	require.NoError(t, err)

	feed, err := sarah.AllFeed(ctx, api.DefaultPage)
	require.NoError(t, err)
	require.Len(t, feed, 2)
	assert.Equal(t, second.ID, feed[0].ID)
	assert.Equal(t, first.ID, feed[1].ID)

	// emma блокирует sarah: посты скрываются в обе стороны.
	require.NoError(t, emma.Block(ctx, "sarah"))
	feed, err = sarah.AllFeed(ctx, api.DefaultPage)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, first.ID, feed[0].ID)

	paged, err := emma.AllFeed(ctx, api.Page{Skip: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, first.ID, paged[0].ID)
}

func TestServer_FollowingFeed(t *testing.T) {
	env := newTestServer(t)
	ctx := context.Background()
	sarah, mike, emma := env.client("sarah"), env.client("mike"), env.client("emma")

	_, err := mike.CreatePost(ctx, domain.NewPost{Content: "from mike"})
	require.NoError(t, err)
	_, err = emma.CreatePost(ctx, domain.NewPost{Content: "from emma"})
	require.NoError(t, err)

	feed, err := sarah.FollowingFeed(ctx, api.DefaultPage)
	require.NoError(t, err)
	assert.NotNil(t, feed)
	assert.Empty(t, feed)

	require.NoError(t, sarah.Follow(ctx, "mike"))
	feed, err = sarah.FollowingFeed(ctx, api.DefaultPage)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, "mike", feed[0].AuthorUsername)
}

func TestServer_Reactions(t *testing.T) {
	env := newTestServer(t)
	ctx := context.Background()
	sarah, mike := env.client("sarah"), env.client("mike")

	p, err := sarah.CreatePost(ctx, domain.NewPost{Content: "react to me"})
	require.NoError(t, err)

	liked, err := mike.AddReaction(ctx, p.ID, domain.ReactionLike)
	require.NoError(t, err)
	assert.Equal(t, 1, liked.ReactionsCount)
	require.NotNil(t, liked.UserReaction)
	assert.Equal(t, domain.ReactionLike, *liked.UserReaction)

	loved, err := mike.AddReaction(ctx, p.ID, domain.ReactionLove)
	require.NoError(t, err)
	assert.Equal(t, 1, loved.ReactionsCount)
	assert.Equal(t, domain.ReactionLove, *loved.UserReaction)

	_, err = mike.AddReaction(ctx, p.ID, domain.ReactionType("meh"))
	assert.Equal(t, http.StatusBadRequest, api.StatusCode(err))

	cleared, err := mike.RemoveReaction(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, cleared.ReactionsCount)
	assert.Nil(t, cleared.UserReaction)

	_, err = mike.RemoveReaction(ctx, p.ID)
	assert.Equal(t, http.StatusNotFound, api.StatusCode(err))
	_, err = mike.AddReaction(ctx, 9999, domain.ReactionLike)
	assert.Equal(t, http.StatusNotFound, api.StatusCode(err))
}

func TestServer_Reposts(t *testing.T) {
	env := newTestServer(t)
	ctx := context.Background()
	sarah, mike := env.client("sarah"), env.client("mike")

	original, err := sarah.CreatePost(ctx, domain.NewPost{Content: "original"})
	require.NoError(t, err)

	wrapper, err := mike.CreateRepost(ctx, domain.NewRepost{OriginalPostID: original.ID})
	require.NoError(t, err)
	assert.True(t, wrapper.IsRepost)
	require.NotNil(t, wrapper.OriginalPostID)
	assert.Equal(t, original.ID, *wrapper.OriginalPostID)
	require.NotNil(t, wrapper.OriginalPost)
	assert.Equal(t, "original", wrapper.OriginalPost.Content)
	assert.Equal(t, 1, wrapper.OriginalPost.RepostsCount)
	assert.True(t, wrapper.HasReposted)

	_, err = mike.CreateRepost(ctx, domain.NewRepost{OriginalPostID: original.ID})
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Already reposted this post", apiErr.Detail)

	viewed, err := mike.GetPost(ctx, original.ID)
	require.NoError(t, err)
	assert.True(t, viewed.HasReposted)
	assert.Equal(t, 1, viewed.RepostsCount)

	require.NoError(t, mike.DeleteRepost(ctx, original.ID))
	err = mike.DeleteRepost(ctx, original.ID)
	assert.Equal(t, http.StatusNotFound, api.StatusCode(err))

	_, err = mike.CreateRepost(ctx, domain.NewRepost{OriginalPostID: 9999})
	assert.Equal(t, http.StatusNotFound, api.StatusCode(err))
}

func TestServer_RepostOfWrapperTargetsOriginal(t *testing.T) {
	env := newTestServer(t)
	ctx := context.Background()
	sarah, mike, emma := env.client("sarah"), env.client("mike"), env.client("emma")

	original, err := sarah.CreatePost(ctx, domain.NewPost{Content: "original"})
	require.NoError(t, err)
	wrapper, err := mike.CreateRepost(ctx, domain.NewRepost{OriginalPostID: original.ID})
	require.NoError(t, err)

	second, err := emma.CreateRepost(ctx, domain.NewRepost{OriginalPostID: wrapper.ID})
	require.NoError(t, err)
	require.NotNil(t, second.OriginalPostID)
	assert.Equal(t, original.ID, *second.OriginalPostID)

	viewed, err := emma.GetPost(ctx, original.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, viewed.RepostsCount)

	require.NoError(t, emma.DeleteRepost(ctx, original.ID))
}

func TestServer_EditAndDeleteOwnership(t *testing.T) {
	env := newTestServer(t)
	ctx := context.Background()
	sarah, mike := env.client("sarah"), env.client("mike")

	img := "/photo.jpg"
	p, err := sarah.CreatePost(ctx, domain.NewPost{Content: "draft", ImageURL: &img})
	require.NoError(t, err)

	_, err = mike.UpdatePost(ctx, p.ID, domain.NewPost{Content: "hijack"})
	assert.Equal(t, http.StatusForbidden, api.StatusCode(err))
	err = mike.DeletePost(ctx, p.ID)
	assert.Equal(t, http.StatusForbidden, api.StatusCode(err))

	edited, err := sarah.UpdatePost(ctx, p.ID, domain.NewPost{Content: "final"})
	require.NoError(t, err)
	assert.Equal(t, "final", edited.Content)
	require.NotNil(t, edited.ImageURL)
	assert.Equal(t, img, *edited.ImageURL)

	require.NoError(t, sarah.DeletePost(ctx, p.ID))
	_, err = sarah.GetPost(ctx, p.ID)
	assert.Equal(t, http.StatusNotFound, api.StatusCode(err))
}

func TestServer_PostDetail(t *testing.T) {
	env := newTestServer(t)
	ctx := context.Background()
	sarah, mike := env.client("sarah"), env.client("mike")

	p, err := sarah.CreatePost(ctx, domain.NewPost{Content: "detail"})
	require.NoError(t, err)

	empty, err := mike.GetPost(ctx, p.ID)
	require.NoError(t, err)
	assert.NotNil(t, empty.Comments)
	assert.Empty(t, empty.Comments)
	assert.NotNil(t, empty.Reactions)

	c, err := mike.AddComment(ctx, p.ID, "first!")
	require.NoError(t, err)
	assert.Equal(t, "mike", c.AuthorUsername)
	_, err = mike.AddReaction(ctx, p.ID, domain.ReactionWow)
	require.NoError(t, err)

	detail, err := sarah.GetPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, detail.CommentsCount)
	require.Len(t, detail.Comments, 1)
	assert.Equal(t, "first!", detail.Comments[0].Content)
	require.Len(t, detail.Reactions, 1)
	assert.Equal(t, "mike", detail.Reactions[0].Username)
	assert.Nil(t, detail.UserReaction)

	require.NoError(t, sarah.Block(ctx, "mike"))
	_, err = mike.GetPost(ctx, p.ID)
	assert.Equal(t, http.StatusForbidden, api.StatusCode(err))
}

func TestServer_Relationships(t *testing.T) {
	env := newTestServer(t)
	ctx := context.Background()
	sarah, mike := env.client("sarah"), env.client("mike")

	assert.Equal(t, http.StatusBadRequest, api.StatusCode(sarah.Follow(ctx, "sarah")))
	assert.Equal(t, http.StatusBadRequest, api.StatusCode(sarah.Block(ctx, "sarah")))
	assert.Equal(t, http.StatusNotFound, api.StatusCode(sarah.Follow(ctx, "ghost")))
	assert.Equal(t, http.StatusBadRequest, api.StatusCode(sarah.Unfollow(ctx, "mike")))

	require.NoError(t, sarah.Follow(ctx, "mike"))
	require.NoError(t, mike.Follow(ctx, "sarah"))
	assert.Equal(t, http.StatusBadRequest, api.StatusCode(sarah.Follow(ctx, "mike")))

	profile, err := sarah.GetProfile(ctx, "mike")
	require.NoError(t, err)
	assert.True(t, profile.IsFollowing)
	assert.Equal(t, 1, profile.FollowersCount)
	assert.Equal(t, 1, profile.FollowingCount)

	followers, err := sarah.Followers(ctx, "sarah")
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, "mike", followers[0].Username)
	assert.True(t, followers[0].IsFollowing)

	require.NoError(t, sarah.Block(ctx, "mike"))
	assert.Equal(t, http.StatusBadRequest, api.StatusCode(sarah.Block(ctx, "mike")))

	profile, err = sarah.GetProfile(ctx, "mike")
	require.NoError(t, err)
	assert.False(t, profile.IsFollowing)
	assert.True(t, profile.IsBlocked)
	assert.Zero(t, profile.FollowersCount)

	following, err := mike.Following(ctx, "mike")
	require.NoError(t, err)
	assert.Empty(t, following)

	posts, err := mike.UserPosts(ctx, "sarah", api.DefaultPage)
	require.NoError(t, err)
	assert.Empty(t, posts)

	require.NoError(t, sarah.Unblock(ctx, "mike"))
	assert.Equal(t, http.StatusBadRequest, api.StatusCode(sarah.Unblock(ctx, "mike")))
}

func TestServer_RelationshipStream(t *testing.T) {
	env := newTestServer(t)
	ctx := context.Background()

	url := "ws" + strings.TrimPrefix(env.http.URL, "http") + "/api/ws/relationships"
	header := http.Header{}
	header.Set("Authorization", "Bearer mike")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return env.srv.Observer().Subscribers("mike") == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, env.client("sarah").Block(ctx, "mike"))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev domain.RelationshipEvent
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "sarah", ev.Actor)
	assert.Equal(t, "mike", ev.Target)
	assert.Equal(t, domain.RelationshipBlock, ev.Kind)
	assert.NotZero(t, ev.Timestamp)
}

func TestRelationshipObserver_UnsubscribesOnCancel(t *testing.T) {
	o := NewRelationshipObserver()
	ctx, cancel := context.WithCancel(context.Background())

	events := o.Subscribe(ctx, "mike")
	o.Notify(domain.RelationshipEvent{Actor: "sarah", Target: "mike", Kind: domain.RelationshipFollow})
	ev := <-events
	assert.Equal(t, domain.RelationshipFollow, ev.Kind)

	// Событие о чужих пользователях не доставляется.
	o.Notify(domain.RelationshipEvent{Actor: "sarah", Target: "emma", Kind: domain.RelationshipBlock})
	select {
	case ev := <-events:
		t.Fatalf("unexpected event %+v", ev)
	default:
	}

	cancel()
	assert.Eventually(t, func() bool { return o.Subscribers("mike") == 0 }, time.Second, 5*time.Millisecond)
}
