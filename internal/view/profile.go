package view

import (
	"context"

	"go.uber.org/zap"

	"github.com/UkralStul/testbook/internal/api"
	"github.com/UkralStul/testbook/internal/domain"
)

// Profile - профиль пользователя и его посты.
type Profile struct {
	postList
	username   string
	profile    domain.Profile
	loaded     bool
	relPending bool
}

func NewProfile(deps Deps, username string) *Profile {
	p := &Profile{username: username}
	p.init(deps.withDefaults("profile"))
	return p
}

// Profile возвращает загруженный профиль.
func (p *Profile) Profile() (domain.Profile, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.profile, p.loaded
}

// Load загружает профиль и посты. Ошибка постов не мешает показать профиль.
func (p *Profile) Load(ctx context.Context) error {
	if p.isClosed() {
		return ErrClosed
	}
	profile, err := p.deps.API.GetProfile(ctx, p.username)
	if err != nil {
		p.mu.Lock()
		if !p.closed {
			p.setNoticeLocked("Failed to load profile", err)
		}
		p.mu.Unlock()
		return err
	}
	posts, postsErr := p.deps.API.UserPosts(ctx, p.username, api.DefaultPage)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.profile = profile
	p.loaded = true
	if postsErr != nil {
		p.deps.Logger.Warn("failed to load posts", zap.String("username", p.username), zap.Error(postsErr))
		return nil
	}
	p.posts = posts
	return nil
}

// beginRelationship резервирует профиль под изменение отношения.
func (p *Profile) beginRelationship() (domain.Profile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return domain.Profile{}, ErrClosed
	}
	if !p.loaded {
		return domain.Profile{}, ErrNotLoaded
	}
	if p.relPending {
		return domain.Profile{}, ErrPending
	}
	p.relPending = true
	return p.profile, nil
}

// ToggleFollow подписывается или отписывается; счетчик подписчиков меняется на один.
func (p *Profile) ToggleFollow(ctx context.Context) error {
	prof, err := p.beginRelationship()
	if err != nil {
		return err
	}
	if prof.IsFollowing {
		err = p.deps.API.Unfollow(ctx, p.username)
	} else {
		err = p.deps.API.Follow(ctx, p.username)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.relPending = false
	if p.closed {
		return err
	}
	if err != nil {
		p.setNoticeLocked("Failed to update follow status", err)
		return err
	}
	if prof.IsFollowing {
		p.profile.IsFollowing = false
		p.profile.FollowersCount = max(0, p.profile.FollowersCount-1)
	} else {
		p.profile.IsFollowing = true
		p.profile.FollowersCount++
	}
	return nil
}

// ToggleBlock блокирует или разблокирует пользователя и рассылает изменение.
// Блокировка снимает подписку.
func (p *Profile) ToggleBlock(ctx context.Context) error {
	prof, err := p.beginRelationship()
	if err != nil {
		return err
	}
	if prof.IsBlocked {
		err = p.deps.API.Unblock(ctx, p.username)
	} else {
		err = p.deps.API.Block(ctx, p.username)
	}

	p.mu.Lock()
	p.relPending = false
	if p.closed {
		p.mu.Unlock()
		if err == nil {
			p.broadcast(ctx, p.username, !prof.IsBlocked)
		}
		return err
	}
	if err != nil {
		p.setNoticeLocked("Failed to update block status", err)
		p.mu.Unlock()
		return err
	}
	if prof.IsBlocked {
		p.profile.IsBlocked = false
	} else {
		p.profile.IsBlocked = true
		if p.profile.IsFollowing {
			p.profile.IsFollowing = false
			p.profile.FollowersCount = max(0, p.profile.FollowersCount-1)
		}
	}
	p.mu.Unlock()

	p.broadcast(ctx, p.username, !prof.IsBlocked)
	return nil
}
