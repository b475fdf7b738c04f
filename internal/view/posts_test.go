package view

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/testbook/internal/api"
	"github.com/UkralStul/testbook/internal/domain"
	"github.com/UkralStul/testbook/internal/interaction"
)

func reaction(t domain.ReactionType) *domain.ReactionType { return &t }

func id(v int64) *int64 { return &v }

// newTestFeed монтирует ленту "все посты" с заданными постами.
func newTestFeed(t *testing.T, m *MockAPI, posts ...domain.Post) *Feed {
	m.On("AllFeed", mock.Anything, api.DefaultPage).Return(posts, nil).Once()
	f := NewFeed(Deps{API: m}, FeedAll)
	require.NoError(t, f.Mount(context.Background()))
	t.Cleanup(f.Close)
	return f
}

func postByID(t *testing.T, f *Feed, id int64) domain.Post {
	for _, p := range f.Posts() {
		if p.ID == id {
			return p
		}
	}
	t.Fatalf("post %d not in feed", id)
	return domain.Post{}
}

func TestPostList_LikeLoveLoveScenario(t *testing.T) {
	m := &MockAPI{}
	f := newTestFeed(t, m, domain.Post{ID: 1, Content: "hi"})
	ctx := context.Background()

	m.On("AddReaction", mock.Anything, int64(1), domain.ReactionLike).
		Return(domain.Post{ID: 1, Content: "hi", ReactionsCount: 1, UserReaction: reaction(domain.ReactionLike)}, nil).Once()
	require.NoError(t, f.React(ctx, 1, domain.ReactionLike))
	p := postByID(t, f, 1)
	assert.Equal(t, 1, p.ReactionsCount)
	assert.Equal(t, domain.ReactionLike, *p.UserReaction)

	m.On("AddReaction", mock.Anything, int64(1), domain.ReactionLove).
		Return(domain.Post{ID: 1, Content: "hi", ReactionsCount: 1, UserReaction: reaction(domain.ReactionLove)}, nil).Once()
	require.NoError(t, f.React(ctx, 1, domain.ReactionLove))
	p = postByID(t, f, 1)
	assert.Equal(t, 1, p.ReactionsCount)
	assert.Equal(t, domain.ReactionLove, *p.UserReaction)

	m.On("RemoveReaction", mock.Anything, int64(1)).
		Return(domain.Post{ID: 1, Content: "hi"}, nil).Once()
	require.NoError(t, f.React(ctx, 1, domain.ReactionLove))
	p = postByID(t, f, 1)
	assert.Zero(t, p.ReactionsCount)
	assert.Nil(t, p.UserReaction)

	m.AssertNumberOfCalls(t, "AddReaction", 2)
	m.AssertNumberOfCalls(t, "RemoveReaction", 1)
	m.AssertExpectations(t)
}

func TestPostList_InvalidReactionMakesNoCall(t *testing.T) {
	m := &MockAPI{}
	f := newTestFeed(t, m, domain.Post{ID: 1})

	err := f.React(context.Background(), 1, domain.ReactionType("meh"))
	assert.ErrorIs(t, err, domain.ErrInvalidReaction)
	m.AssertNotCalled(t, "AddReaction", mock.Anything, mock.Anything, mock.Anything)
}

func TestPostList_ReactionFailureKeepsState(t *testing.T) {
	m := &MockAPI{}
	before := domain.Post{ID: 1, ReactionsCount: 3}
	f := newTestFeed(t, m, before)

	m.On("AddReaction", mock.Anything, int64(1), domain.ReactionWow).
		Return(domain.Post{}, &api.Error{StatusCode: 500, Detail: "boom"}).Once()
	err := f.React(context.Background(), 1, domain.ReactionWow)
	require.Error(t, err)

	assert.Equal(t, before, postByID(t, f, 1))
	notice, ok := f.Notice()
	require.True(t, ok)
	assert.Equal(t, "Failed to update reaction", notice.Message)
	assert.False(t, f.Pending(1))

	f.DismissNotice()
	_, ok = f.Notice()
	assert.False(t, ok)
}

func TestPostList_SecondToggleWhilePending(t *testing.T) {
	m := &MockAPI{}
	f := newTestFeed(t, m, domain.Post{ID: 1})
	release := make(chan struct{})

	m.On("AddReaction", mock.Anything, int64(1), domain.ReactionLike).
		Run(func(mock.Arguments) { <-release }).
		Return(domain.Post{ID: 1, ReactionsCount: 1, UserReaction: reaction(domain.ReactionLike)}, nil).Once()

	done := make(chan error, 1)
	go func() { done <- f.React(context.Background(), 1, domain.ReactionLike) }()
	require.Eventually(t, func() bool { return f.Pending(1) }, time.Second, time.Millisecond)

	assert.ErrorIs(t, f.React(context.Background(), 1, domain.ReactionLike), ErrPending)
	assert.ErrorIs(t, f.Repost(context.Background(), 1), ErrPending)

	close(release)
	require.NoError(t, <-done)
	m.AssertNumberOfCalls(t, "AddReaction", 1)
	assert.Equal(t, 1, postByID(t, f, 1).ReactionsCount)
}

func TestPostList_RepostTargetsOriginal(t *testing.T) {
	m := &MockAPI{}
	wrapper := domain.Post{ID: 5, IsRepost: true, OriginalPostID: id(1)}
	f := newTestFeed(t, m, wrapper)
	ctx := context.Background()

	m.On("CreateRepost", mock.Anything, domain.NewRepost{OriginalPostID: 1}).
		Return(domain.Post{ID: 6, IsRepost: true, OriginalPostID: id(1)}, nil).Once()
	require.NoError(t, f.Repost(ctx, 5))
	p := postByID(t, f, 5)
	assert.True(t, p.HasReposted)
	assert.Equal(t, 1, p.RepostsCount)

	m.On("DeleteRepost", mock.Anything, int64(1)).Return(nil).Once()
	require.NoError(t, f.Repost(ctx, 5))
	p = postByID(t, f, 5)
	assert.False(t, p.HasReposted)
	assert.Zero(t, p.RepostsCount)
	m.AssertExpectations(t)
}

func TestPostList_RepostCountNeverNegative(t *testing.T) {
	m := &MockAPI{}
	f := newTestFeed(t, m, domain.Post{ID: 1, HasReposted: true, RepostsCount: 0})

	m.On("DeleteRepost", mock.Anything, int64(1)).Return(nil).Once()
	require.NoError(t, f.Repost(context.Background(), 1))
	assert.Zero(t, postByID(t, f, 1).RepostsCount)
}

func TestPostList_BlankEditMakesNoCall(t *testing.T) {
	m := &MockAPI{}
	f := newTestFeed(t, m, domain.Post{ID: 1, Content: "original text"})

	require.NoError(t, f.StartEdit(1))
	require.NoError(t, f.SetDraft(1, "   "))
	err := f.SaveEdit(context.Background(), 1)
	assert.ErrorIs(t, err, interaction.ErrEmptyContent)

	m.AssertNotCalled(t, "UpdatePost", mock.Anything, mock.Anything, mock.Anything)
	notice, ok := f.Notice()
	require.True(t, ok)
	assert.Equal(t, "Post content cannot be empty", notice.Message)
	assert.Equal(t, "original text", postByID(t, f, 1).Content)

	st := f.State(1)
	assert.Equal(t, interaction.Editing, st.Mode)
	assert.Equal(t, "   ", st.Draft)
}

func TestPostList_EditKeepsMediaAndFinishes(t *testing.T) {
	m := &MockAPI{}
	img := "/photo.jpg"
	f := newTestFeed(t, m, domain.Post{ID: 1, Content: "old", ImageURL: &img})

	m.On("UpdatePost", mock.Anything, int64(1), domain.NewPost{Content: "new", ImageURL: &img}).
		Return(domain.Post{ID: 1, Content: "new", ImageURL: &img}, nil).Once()

	require.NoError(t, f.ToggleMenu(1))
	require.NoError(t, f.StartEdit(1))
	assert.Equal(t, "old", f.State(1).Draft)
	require.NoError(t, f.SetDraft(1, "new"))
	require.NoError(t, f.SaveEdit(context.Background(), 1))

	assert.Equal(t, "new", postByID(t, f, 1).Content)
	assert.Equal(t, interaction.Viewing, f.State(1).Mode)
	assert.ErrorIs(t, f.SaveEdit(context.Background(), 1), interaction.ErrInvalidTransition)
}

func TestPostList_Comment(t *testing.T) {
	m := &MockAPI{}
	f := newTestFeed(t, m, domain.Post{ID: 1, CommentsCount: 2})
	ctx := context.Background()

	_, err := f.Comment(ctx, 1, "  ")
	assert.ErrorIs(t, err, ErrEmptyComment)
	notice, ok := f.Notice()
	require.True(t, ok)
	assert.Equal(t, "Comment cannot be empty", notice.Message)
	f.DismissNotice()

	m.On("AddComment", mock.Anything, int64(1), "nice").
		Return(domain.Comment{ID: 10, Content: "nice"}, nil).Once()
	c, err := f.Comment(ctx, 1, "nice")
	require.NoError(t, err)
	assert.Equal(t, int64(10), c.ID)
	assert.Equal(t, 3, postByID(t, f, 1).CommentsCount)
	m.AssertNumberOfCalls(t, "AddComment", 1)
}

func TestPostList_DeleteThenLateReaction(t *testing.T) {
	m := &MockAPI{}
	f := newTestFeed(t, m, domain.Post{ID: 1}, domain.Post{ID: 2})
	release := make(chan struct{})

	m.On("AddReaction", mock.Anything, int64(1), domain.ReactionLike).
		Run(func(mock.Arguments) { <-release }).
		Return(domain.Post{ID: 1, ReactionsCount: 1}, nil).Once()
	m.On("DeletePost", mock.Anything, int64(1)).Return(nil).Once()

	done := make(chan error, 1)
	go func() { done <- f.React(context.Background(), 1, domain.ReactionLike) }()
	require.Eventually(t, func() bool { return f.Pending(1) }, time.Second, time.Millisecond)

	require.NoError(t, f.RequestDelete(1))
	require.NoError(t, f.Delete(context.Background(), 1))
	close(release)
	require.NoError(t, <-done)

	posts := f.Posts()
	require.Len(t, posts, 1)
	assert.Equal(t, int64(2), posts[0].ID)
	assert.ErrorIs(t, f.React(context.Background(), 1, domain.ReactionLike), ErrUnknownPost)
}

func TestPostList_DeleteFailureResolvesConfirmation(t *testing.T) {
	m := &MockAPI{}
	f := newTestFeed(t, m, domain.Post{ID: 1})

	m.On("DeletePost", mock.Anything, int64(1)).Return(errors.New("network down")).Once()
	require.NoError(t, f.RequestDelete(1))
	assert.Error(t, f.Delete(context.Background(), 1))

	assert.Len(t, f.Posts(), 1)
	assert.Equal(t, interaction.Viewing, f.State(1).Mode)
	notice, ok := f.Notice()
	require.True(t, ok)
	assert.Equal(t, "Failed to delete post", notice.Message)
}

func TestPostList_ResponseAfterCloseIsIgnored(t *testing.T) {
	m := &MockAPI{}
	f := NewFeed(Deps{API: m}, FeedAll)
	m.On("AllFeed", mock.Anything, api.DefaultPage).Return([]domain.Post{{ID: 1}}, nil).Once()
	require.NoError(t, f.Mount(context.Background()))
	release := make(chan struct{})

	m.On("AddReaction", mock.Anything, int64(1), domain.ReactionLike).
		Run(func(mock.Arguments) { <-release }).
		Return(domain.Post{ID: 1, ReactionsCount: 1}, nil).Once()

	done := make(chan error, 1)
	go func() { done <- f.React(context.Background(), 1, domain.ReactionLike) }()
	require.Eventually(t, func() bool { return f.Pending(1) }, time.Second, time.Millisecond)

	f.Close()
	close(release)
	require.NoError(t, <-done)

	assert.Zero(t, f.Posts()[0].ReactionsCount)
	assert.ErrorIs(t, f.React(context.Background(), 1, domain.ReactionLike), ErrClosed)
}
