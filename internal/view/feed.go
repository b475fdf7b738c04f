package view

import (
	"context"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/UkralStul/testbook/internal/api"
	"github.com/UkralStul/testbook/internal/domain"
	"github.com/UkralStul/testbook/internal/interaction"
	"github.com/UkralStul/testbook/internal/reconcile"
)

// FeedType выбирает ленту.
type FeedType string

const (
	FeedAll       FeedType = "all"
	FeedFollowing FeedType = "following"
)

// Feed - лента постов. Перезагружается по событиям шины отношений и при
// возврате фокуса, если отметка в хранилище новее последней загрузки.
type Feed struct {
	postList
	feedType FeedType
	page     api.Page

	loaded   bool
	lastLoad int64 // мс Unix

	onLoad func([]domain.Post)
	cancel context.CancelFunc
	done   chan struct{}
	// reloading выставлен, пока слушатель шины перезагружает ленту.
	reloading atomic.Bool
}

func NewFeed(deps Deps, t FeedType) *Feed {
	if t != FeedFollowing {
		t = FeedAll
	}
	f := &Feed{feedType: t, page: api.DefaultPage}
	f.init(deps.withDefaults("feed"))
	return f
}

// OnLoad задает обработчик успешной загрузки. Вызывается вне мьютекса;
// обработчик может закрыть ленту.
func (f *Feed) OnLoad(fn func([]domain.Post)) {
	f.mu.Lock()
	f.onLoad = fn
	f.mu.Unlock()
}

func (f *Feed) Type() FeedType { return f.feedType }

// Mount подписывает ленту на шину и загружает ее ровно один раз, если она
// еще не загружалась или отношения менялись после последней загрузки.
func (f *Feed) Mount(ctx context.Context) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrClosed
	}
	subscribe := f.cancel == nil && f.deps.Bus != nil
	var listenCtx context.Context
	if subscribe {
		listenCtx, f.cancel = context.WithCancel(context.Background())
		f.done = make(chan struct{})
	}
	f.mu.Unlock()

	if subscribe {
		events, err := f.deps.Bus.Subscribe(listenCtx)
		if err != nil {
			f.deps.Logger.Warn("relationship subscription failed", zap.Error(err))
			close(f.done)
		} else {
			go f.listen(listenCtx, events)
		}
	}
	return f.refreshIfStale(ctx)
}

// Focus повторно сверяет отметку времени из хранилища.
func (f *Feed) Focus(ctx context.Context) error {
	if f.isClosed() {
		return ErrClosed
	}
	return f.refreshIfStale(ctx)
}

func (f *Feed) refreshIfStale(ctx context.Context) error {
	f.mu.Lock()
	loaded, last := f.loaded, f.lastLoad
	f.mu.Unlock()

	if loaded {
		if f.deps.Bus == nil {
			return nil
		}
		// Ошибка чтения означает "изменений не было".
		ts, _ := f.deps.Bus.LastChangeTimestamp(ctx)
		if ts <= last {
			return nil
		}
	}
	return f.Load(ctx)
}

func (f *Feed) listen(ctx context.Context, events <-chan domain.RelationshipChange) {
	defer close(f.done)
	for change := range events {
		f.deps.Logger.Debug("relationship changed, reloading feed",
			zap.String("username", change.Username),
			zap.Bool("is_blocked", change.IsBlocked))
		f.reloading.Store(true)
		err := f.Load(ctx)
		f.reloading.Store(false)
		if err != nil && ctx.Err() == nil {
			f.deps.Logger.Debug("feed reload failed", zap.Error(err))
		}
	}
}

// Load загружает ленту и заменяет список целиком.
func (f *Feed) Load(ctx context.Context) error {
	if f.isClosed() {
		return ErrClosed
	}
	var (
		posts []domain.Post
		err   error
	)
	if f.feedType == FeedFollowing {
		posts, err = f.deps.API.FollowingFeed(ctx, f.page)
	} else {
		posts, err = f.deps.API.AllFeed(ctx, f.page)
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return err
	}
	if err != nil {
		f.setNoticeLocked("Failed to load feed", err)
		f.mu.Unlock()
		return err
	}
	f.posts = posts
	f.loaded = true
	f.lastLoad = f.deps.Clock().UnixMilli()
	f.notice = nil
	onLoad := f.onLoad
	snapshot := append([]domain.Post(nil), posts...)
	f.mu.Unlock()

	if onLoad != nil {
		onLoad(snapshot)
	}
	return nil
}

// CreatePost публикует пост и ставит его в начало ленты.
func (f *Feed) CreatePost(ctx context.Context, in domain.NewPost) (domain.Post, error) {
	err := interaction.ErrEmptyContent
	if strings.TrimSpace(in.Content) != "" {
		err = domain.ValidateMedia(in.ImageURL, in.VideoURL)
	}
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return domain.Post{}, ErrClosed
	}
	if err != nil {
		f.validationNoticeLocked(err)
		f.mu.Unlock()
		return domain.Post{}, err
	}
	f.mu.Unlock()

	post, err := f.deps.API.CreatePost(ctx, in)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return post, err
	}
	if err != nil {
		f.setNoticeLocked("Failed to create post", err)
		return domain.Post{}, err
	}
	f.posts = reconcile.InsertAtHead(f.posts, post)
	return post, nil
}

// Close отписывает ленту; последующие ответы сервера игнорируются.
func (f *Feed) Close() {
	f.mu.Lock()
	f.closed = true
	cancel, done := f.cancel, f.done
	f.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	// Из обработчика OnLoad слушатель ждать нельзя: он и есть вызывающий.
	if !f.reloading.Load() {
		<-done
	}
}
