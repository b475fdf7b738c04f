// Package view - контроллеры экранов: лента, профиль, пост, подписчики и подписки.
//
// Контроллер владеет состоянием своего экрана, ходит в API и делегирует
// всю логику слияния пакетам interaction и reconcile. Мьютекс контроллера
// никогда не удерживается во время сетевого вызова.
package view

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/UkralStul/testbook/internal/api"
	"github.com/UkralStul/testbook/internal/domain"
	"github.com/UkralStul/testbook/internal/logging"
	"github.com/UkralStul/testbook/internal/relbus"
)

var (
	// ErrPending - по этому посту уже выполняется переключение.
	ErrPending = errors.New("another request for this post is in flight")
	// ErrClosed - экран закрыт, действие не выполняется.
	ErrClosed = errors.New("view is closed")
	// ErrUnknownPost - поста нет в состоянии экрана.
	ErrUnknownPost = errors.New("post is not in this view")
	// ErrNotLoaded - экран еще не загружен.
	ErrNotLoaded = errors.New("view is not loaded")
	// ErrEmptyComment возвращается до сетевого вызова.
	ErrEmptyComment = errors.New("Comment cannot be empty")
)

// API - вызовы сервера, которые нужны контроллерам.
type API interface {
	CreatePost(ctx context.Context, in domain.NewPost) (domain.Post, error)
	UpdatePost(ctx context.Context, id int64, in domain.NewPost) (domain.Post, error)
	DeletePost(ctx context.Context, id int64) error
	GetPost(ctx context.Context, id int64) (domain.Post, error)
	CreateRepost(ctx context.Context, in domain.NewRepost) (domain.Post, error)
	DeleteRepost(ctx context.Context, originalPostID int64) error
	AddComment(ctx context.Context, postID int64, content string) (domain.Comment, error)
	AddReaction(ctx context.Context, postID int64, t domain.ReactionType) (domain.Post, error)
	RemoveReaction(ctx context.Context, postID int64) (domain.Post, error)

	AllFeed(ctx context.Context, page api.Page) ([]domain.Post, error)
	FollowingFeed(ctx context.Context, page api.Page) ([]domain.Post, error)

	GetProfile(ctx context.Context, username string) (domain.Profile, error)
	UserPosts(ctx context.Context, username string, page api.Page) ([]domain.Post, error)
	Followers(ctx context.Context, username string) ([]domain.UserListItem, error)
	Following(ctx context.Context, username string) ([]domain.UserListItem, error)
	Follow(ctx context.Context, username string) error
	Unfollow(ctx context.Context, username string) error
	Block(ctx context.Context, username string) error
	Unblock(ctx context.Context, username string) error
}

var _ API = (*api.Client)(nil)

// Deps - явные зависимости контроллеров. Bus может быть nil.
type Deps struct {
	API    API
	Bus    relbus.Bus
	Logger *zap.Logger
	Clock  func() time.Time
}

func (d Deps) withDefaults(name string) Deps {
	d.Logger = logging.OrNop(d.Logger).Named(name)
	if d.Clock == nil {
		d.Clock = time.Now
	}
	return d
}

// Notice - некритичное сообщение об ошибке для баннера.
type Notice struct {
	Message string
	Err     error
	At      time.Time
}

// base - общее для всех экранов: мьютекс, баннер и признак закрытия.
type base struct {
	deps   Deps
	mu     sync.Mutex
	notice *Notice
	closed bool
}

// setNoticeLocked вызывается под mu.
func (b *base) setNoticeLocked(msg string, err error) {
	b.notice = &Notice{Message: msg, Err: err, At: b.deps.Clock()}
	if err != nil {
		b.deps.Logger.Warn(msg, zap.Error(err))
	}
}

// Notice возвращает текущий баннер, если он есть.
func (b *base) Notice() (Notice, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.notice == nil {
		return Notice{}, false
	}
	return *b.notice, true
}

func (b *base) DismissNotice() {
	b.mu.Lock()
	b.notice = nil
	b.mu.Unlock()
}

// Close помечает экран закрытым: ответы, пришедшие позже, не меняют состояние.
func (b *base) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
}

func (b *base) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// broadcast рассылает изменение отношений; ошибки шины уже залогированы ею.
func (b *base) broadcast(ctx context.Context, username string, blocked bool) {
	if b.deps.Bus == nil {
		return
	}
	if err := b.deps.Bus.Broadcast(ctx, domain.RelationshipChange{Username: username, IsBlocked: blocked}); err != nil {
		b.deps.Logger.Debug("relationship broadcast degraded", zap.Error(err))
	}
}
