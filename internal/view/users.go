package view

import (
	"context"

	"github.com/UkralStul/testbook/internal/domain"
)

// userList - список пользователей (подписчики или подписки).
type userList struct {
	base
	username string
	fetch    func(ctx context.Context, username string) ([]domain.UserListItem, error)
	users    []domain.UserListItem
	pending  map[string]bool
	what     string
}

func (l *userList) init(deps Deps, username, what string, fetch func(context.Context, string) ([]domain.UserListItem, error)) {
	l.deps = deps
	l.username = username
	l.fetch = fetch
	l.what = what
	l.pending = make(map[string]bool)
}

// Users возвращает копию списка.
func (l *userList) Users() []domain.UserListItem {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.UserListItem(nil), l.users...)
}

func (l *userList) Load(ctx context.Context) error {
	if l.isClosed() {
		return ErrClosed
	}
	users, err := l.fetch(ctx, l.username)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return err
	}
	if err != nil {
		l.setNoticeLocked("Failed to load "+l.what, err)
		return err
	}
	l.users = users
	return nil
}

// act выполняет действие над пользователем, рассылает изменение и перезагружает список.
func (l *userList) act(ctx context.Context, target string, blocked bool, failMsg string, call func(context.Context, string) error) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	if l.pending[target] {
		l.mu.Unlock()
		return ErrPending
	}
	l.pending[target] = true
	l.mu.Unlock()

	err := call(ctx, target)

	l.mu.Lock()
	delete(l.pending, target)
	closed := l.closed
	if err != nil && !closed {
		l.setNoticeLocked(failMsg, err)
	}
	l.mu.Unlock()
	if err != nil {
		return err
	}

	l.broadcast(ctx, target, blocked)
	if closed {
		return nil
	}
	return l.Load(ctx)
}

// Followers - подписчики пользователя.
type Followers struct {
	userList
}

func NewFollowers(deps Deps, username string) *Followers {
	f := &Followers{}
	deps = deps.withDefaults("followers")
	f.init(deps, username, "followers", deps.API.Followers)
	return f
}

func (f *Followers) Block(ctx context.Context, username string) error {
	return f.act(ctx, username, true, "Failed to block user", f.deps.API.Block)
}

func (f *Followers) Unblock(ctx context.Context, username string) error {
	return f.act(ctx, username, false, "Failed to unblock user", f.deps.API.Unblock)
}

// Following - подписки пользователя.
type Following struct {
	userList
}

func NewFollowing(deps Deps, username string) *Following {
	f := &Following{}
	deps = deps.withDefaults("following")
	f.init(deps, username, "following", deps.API.Following)
	return f
}

// Unfollow отписывается и рассылает {username, isBlocked: false}.
func (f *Following) Unfollow(ctx context.Context, username string) error {
	return f.act(ctx, username, false, "Failed to unfollow user", f.deps.API.Unfollow)
}
