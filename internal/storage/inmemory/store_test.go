package inmemory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/testbook/internal/storage"
)

// newTestStore создает хранилище с двумя пользователями и одним постом.
func newTestStore(t *testing.T) (*Store, *storage.User, *storage.User, *storage.Post) {
	store := New()
	ctx := context.Background()
	sarah, err := store.CreateUser(ctx, &storage.User{Username: "sarah", DisplayName: "Sarah Johnson"})
	require.NoError(t, err)
	mike, err := store.CreateUser(ctx, &storage.User{Username: "mike", DisplayName: "Mike Chen"})
	require.NoError(t, err)
	post, err := store.CreatePost(ctx, &storage.Post{AuthorID: sarah.ID, Content: "Hello"})
	require.NoError(t, err)
	return store, sarah, mike, post
}

func TestStore_CreateAndGetPost(t *testing.T) {
	store, sarah, _, post := newTestStore(t)
	ctx := context.Background()

	retrieved, err := store.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello", retrieved.Content)
	assert.Equal(t, sarah.ID, retrieved.AuthorID)
	assert.False(t, retrieved.CreatedAt.IsZero())

	_, err = store.GetPostByID(ctx, 9999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_DuplicateUsername(t *testing.T) {
	store, _, _, _ := newTestStore(t)

	_, err := store.CreateUser(context.Background(), &storage.User{Username: "sarah"})
	assert.ErrorIs(t, err, storage.ErrConflict)
}

func TestStore_ReturnsCopies(t *testing.T) {
	store, _, _, post := newTestStore(t)
	ctx := context.Background()

	post.Content = "changed outside"
	retrieved, err := store.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello", retrieved.Content)
}

func TestStore_ListPostsNewestFirst(t *testing.T) {
	store, sarah, mike, first := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	older, err := store.CreatePost(ctx, &storage.Post{AuthorID: mike.ID, Content: "old", CreatedAt: base.Add(-time.Hour)})
	require.NoError(t, err)
	newer, err := store.CreatePost(ctx, &storage.Post{AuthorID: sarah.ID, Content: "new", CreatedAt: base.Add(time.Hour)})
	require.NoError(t, err)

	posts, err := store.ListPosts(ctx, storage.PostFilter{}, storage.PaginationArgs{})
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, []int64{newer.ID, first.ID, older.ID}, []int64{posts[0].ID, posts[1].ID, posts[2].ID})

	onlyMike, err := store.ListPosts(ctx, storage.PostFilter{AuthorIDs: []int64{mike.ID}}, storage.PaginationArgs{})
	require.NoError(t, err)
	require.Len(t, onlyMike, 1)
	assert.Equal(t, older.ID, onlyMike[0].ID)

	nobody, err := store.ListPosts(ctx, storage.PostFilter{AuthorIDs: []int64{}}, storage.PaginationArgs{})
	require.NoError(t, err)
	assert.Empty(t, nobody)

	withoutSarah, err := store.ListPosts(ctx, storage.PostFilter{ExcludeAuthorIDs: []int64{sarah.ID}}, storage.PaginationArgs{})
	require.NoError(t, err)
	require.Len(t, withoutSarah, 1)
	assert.Equal(t, mike.ID, withoutSarah[0].AuthorID)
}

func TestStore_Pagination(t *testing.T) {
	store, sarah, _, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := store.CreatePost(ctx, &storage.Post{AuthorID: sarah.ID, Content: "more"})
		require.NoError(t, err)
	}

	page1, err := store.ListPosts(ctx, storage.PostFilter{}, storage.PaginationArgs{Skip: 0, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page1, 2)

	page3, err := store.ListPosts(ctx, storage.PostFilter{}, storage.PaginationArgs{Skip: 4, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page3, 1)

	beyond, err := store.ListPosts(ctx, storage.PostFilter{}, storage.PaginationArgs{Skip: 10, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, beyond)
}

func TestStore_DeletePostCascades(t *testing.T) {
	store, sarah, mike, post := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateComment(ctx, &storage.Comment{PostID: post.ID, AuthorID: mike.ID, Content: "nice"})
	require.NoError(t, err)
	_, err = store.UpsertReaction(ctx, &storage.Reaction{PostID: post.ID, UserID: mike.ID, ReactionType: "like"})
	require.NoError(t, err)
	repost, err := store.CreatePost(ctx, &storage.Post{AuthorID: mike.ID, IsRepost: true, OriginalPostID: &post.ID})
	require.NoError(t, err)

	require.NoError(t, store.DeletePost(ctx, post.ID))

	_, err = store.GetPostByID(ctx, repost.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	comments, err := store.GetCommentsByPostIDs(ctx, []int64{post.ID})
	require.NoError(t, err)
	assert.Empty(t, comments[post.ID])
	reactions, err := store.GetReactionsByPostIDs(ctx, []int64{post.ID})
	require.NoError(t, err)
	assert.Empty(t, reactions[post.ID])

	n, err := store.CountPosts(ctx, sarah.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.ErrorIs(t, store.DeletePost(ctx, post.ID), storage.ErrNotFound)
}

func TestStore_DeletePostRemovesNestedReposts(t *testing.T) {
	store, _, mike, post := newTestStore(t)
	ctx := context.Background()

	wrapper, err := store.CreatePost(ctx, &storage.Post{AuthorID: mike.ID, IsRepost: true, OriginalPostID: &post.ID})
	require.NoError(t, err)
	nested, err := store.CreatePost(ctx, &storage.Post{AuthorID: mike.ID, IsRepost: true, OriginalPostID: &wrapper.ID})
	require.NoError(t, err)
	_, err = store.CreateComment(ctx, &storage.Comment{PostID: nested.ID, AuthorID: mike.ID, Content: "deep"})
	require.NoError(t, err)

	require.NoError(t, store.DeletePost(ctx, post.ID))

	_, err = store.GetPostByID(ctx, nested.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	comments, err := store.GetCommentsByPostIDs(ctx, []int64{nested.ID})
	require.NoError(t, err)
	assert.Empty(t, comments[nested.ID])
}

func TestStore_UpsertReactionReplaces(t *testing.T) {
	store, _, mike, post := newTestStore(t)
	ctx := context.Background()

	first, err := store.UpsertReaction(ctx, &storage.Reaction{PostID: post.ID, UserID: mike.ID, ReactionType: "like"})
	require.NoError(t, err)
	second, err := store.UpsertReaction(ctx, &storage.Reaction{PostID: post.ID, UserID: mike.ID, ReactionType: "love"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	reactions, err := store.GetReactionsByPostIDs(ctx, []int64{post.ID})
	require.NoError(t, err)
	require.Len(t, reactions[post.ID], 1)
	assert.Equal(t, "love", reactions[post.ID][0].ReactionType)

	require.NoError(t, store.DeleteReaction(ctx, post.ID, mike.ID))
	assert.ErrorIs(t, store.DeleteReaction(ctx, post.ID, mike.ID), storage.ErrNotFound)
}

func TestStore_FindRepost(t *testing.T) {
	store, _, mike, post := newTestStore(t)
	ctx := context.Background()

	_, err := store.FindRepost(ctx, mike.ID, post.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	repost, err := store.CreatePost(ctx, &storage.Post{AuthorID: mike.ID, IsRepost: true, OriginalPostID: &post.ID})
	require.NoError(t, err)

	found, err := store.FindRepost(ctx, mike.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, repost.ID, found.ID)

	byOriginal, err := store.GetRepostsByOriginalIDs(ctx, []int64{post.ID})
	require.NoError(t, err)
	assert.Len(t, byOriginal[post.ID], 1)
}

func TestStore_BlockRemovesFollowsBothWays(t *testing.T) {
	store, sarah, mike, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddFollow(ctx, sarah.ID, mike.ID))
	require.NoError(t, store.AddFollow(ctx, mike.ID, sarah.ID))
	assert.ErrorIs(t, store.AddFollow(ctx, sarah.ID, mike.ID), storage.ErrConflict)

	require.NoError(t, store.AddBlock(ctx, sarah.ID, mike.ID))
	assert.ErrorIs(t, store.AddBlock(ctx, sarah.ID, mike.ID), storage.ErrConflict)

	rel, err := store.GetRelations(ctx, sarah.ID)
	require.NoError(t, err)
	assert.Empty(t, rel.Following)
	assert.Empty(t, rel.Followers)
	assert.Equal(t, []int64{mike.ID}, rel.Blocking)

	mikeRel, err := store.GetRelations(ctx, mike.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{sarah.ID}, mikeRel.BlockedBy)

	require.NoError(t, store.RemoveBlock(ctx, sarah.ID, mike.ID))
	assert.ErrorIs(t, store.RemoveBlock(ctx, sarah.ID, mike.ID), storage.ErrNotFound)
	assert.ErrorIs(t, store.RemoveFollow(ctx, sarah.ID, mike.ID), storage.ErrNotFound)
}
