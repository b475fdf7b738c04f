package view

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/UkralStul/testbook/internal/api"
	"github.com/UkralStul/testbook/internal/domain"
)

// MockAPI - мок API на testify/mock.
type MockAPI struct {
	mock.Mock
}

var _ API = (*MockAPI)(nil)

func (m *MockAPI) CreatePost(ctx context.Context, in domain.NewPost) (domain.Post, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(domain.Post), args.Error(1)
}

func (m *MockAPI) UpdatePost(ctx context.Context, id int64, in domain.NewPost) (domain.Post, error) {
	args := m.Called(ctx, id, in)
	return args.Get(0).(domain.Post), args.Error(1)
}

func (m *MockAPI) DeletePost(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockAPI) GetPost(ctx context.Context, id int64) (domain.Post, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Post), args.Error(1)
}

func (m *MockAPI) CreateRepost(ctx context.Context, in domain.NewRepost) (domain.Post, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(domain.Post), args.Error(1)
}

func (m *MockAPI) DeleteRepost(ctx context.Context, originalPostID int64) error {
	return m.Called(ctx, originalPostID).Error(0)
}

func (m *MockAPI) AddComment(ctx context.Context, postID int64, content string) (domain.Comment, error) {
	args := m.Called(ctx, postID, content)
	return args.Get(0).(domain.Comment), args.Error(1)
}

func (m *MockAPI) AddReaction(ctx context.Context, postID int64, t domain.ReactionType) (domain.Post, error) {
	args := m.Called(ctx, postID, t)
	return args.Get(0).(domain.Post), args.Error(1)
}

func (m *MockAPI) RemoveReaction(ctx context.Context, postID int64) (domain.Post, error) {
	args := m.Called(ctx, postID)
	return args.Get(0).(domain.Post), args.Error(1)
}

func (m *MockAPI) AllFeed(ctx context.Context, page api.Page) ([]domain.Post, error) {
	args := m.Called(ctx, page)
	return args.Get(0).([]domain.Post), args.Error(1)
}

func (m *MockAPI) FollowingFeed(ctx context.Context, page api.Page) ([]domain.Post, error) {
	args := m.Called(ctx, page)
	return args.Get(0).([]domain.Post), args.Error(1)
}

func (m *MockAPI) GetProfile(ctx context.Context, username string) (domain.Profile, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(domain.Profile), args.Error(1)
}

func (m *MockAPI) UserPosts(ctx context.Context, username string, page api.Page) ([]domain.Post, error) {
	args := m.Called(ctx, username, page)
	return args.Get(0).([]domain.Post), args.Error(1)
}

func (m *MockAPI) Followers(ctx context.Context, username string) ([]domain.UserListItem, error) {
	args := m.Called(ctx, username)
	return args.Get(0).([]domain.UserListItem), args.Error(1)
}

func (m *MockAPI) Following(ctx context.Context, username string) ([]domain.UserListItem, error) {
	args := m.Called(ctx, username)
	return args.Get(0).([]domain.UserListItem), args.Error(1)
}

func (m *MockAPI) Follow(ctx context.Context, username string) error {
	return m.Called(ctx, username).Error(0)
}

func (m *MockAPI) Unfollow(ctx context.Context, username string) error {
	return m.Called(ctx, username).Error(0)
}

func (m *MockAPI) Block(ctx context.Context, username string) error {
	return m.Called(ctx, username).Error(0)
}

func (m *MockAPI) Unblock(ctx context.Context, username string) error {
	return m.Called(ctx, username).Error(0)
}
