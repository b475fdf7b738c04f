package view

import (
	"context"
	"strings"

	"github.com/UkralStul/testbook/internal/domain"
	"github.com/UkralStul/testbook/internal/interaction"
	"github.com/UkralStul/testbook/internal/reconcile"
)

// postList - список постов экрана и действия над отдельными постами.
// Встраивается в Feed, Profile и PostDetail.
type postList struct {
	base
	posts   []domain.Post
	pending map[int64]bool
	states  map[int64]interaction.PostState

	// onComment применяет созданный комментарий к посту.
	onComment func(p domain.Post, c domain.Comment) domain.Post
	// onDelete вызывается под mu после удаления поста.
	onDelete func(id int64)
}

func (l *postList) init(deps Deps) {
	l.deps = deps
	l.pending = make(map[int64]bool)
	l.states = make(map[int64]interaction.PostState)
	l.onComment = func(p domain.Post, _ domain.Comment) domain.Post {
		return interaction.AppendComment(p)
	}
}

// Posts возвращает копию текущего списка.
func (l *postList) Posts() []domain.Post {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.Post(nil), l.posts...)
}

// Pending сообщает, выполняется ли переключение по посту.
func (l *postList) Pending(id int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending[id]
}

// lookupLocked находит пост; guard резервирует пост под переключение.
func (l *postList) lookupLocked(id int64, guard bool) (domain.Post, error) {
	if l.closed {
		return domain.Post{}, ErrClosed
	}
	post, ok := reconcile.FindByID(l.posts, id)
	if !ok {
		return domain.Post{}, ErrUnknownPost
	}
	if guard {
		if l.pending[id] {
			return domain.Post{}, ErrPending
		}
		l.pending[id] = true
	}
	return post, nil
}

func (l *postList) validationNoticeLocked(err error) {
	l.notice = &Notice{Message: err.Error(), Err: err, At: l.deps.Clock()}
}

// React переключает реакцию: одна сетевая операция на вызов,
// ответ сервера заменяет локальное состояние поста.
func (l *postList) React(ctx context.Context, id int64, t domain.ReactionType) error {
	if _, err := domain.ParseReactionType(string(t)); err != nil {
		return err
	}
	l.mu.Lock()
	post, err := l.lookupLocked(id, true)
	l.mu.Unlock()
	if err != nil {
		return err
	}

	var server domain.Post
	switch _, call := interaction.ToggleReaction(post, t); call {
	case interaction.ReactionRemove:
		server, err = l.deps.API.RemoveReaction(ctx, id)
	default:
		server, err = l.deps.API.AddReaction(ctx, id, t)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.pending, id)
	if l.closed {
		return err
	}
	if err != nil {
		l.setNoticeLocked("Failed to update reaction", err)
		return err
	}
	l.posts = reconcile.UpdateByID(l.posts, id, func(cur domain.Post) domain.Post {
		return interaction.MergeServerUpdate(cur, server)
	})
	return nil
}

// Repost переключает репост исходного поста.
func (l *postList) Repost(ctx context.Context, id int64) error {
	l.mu.Lock()
	post, err := l.lookupLocked(id, true)
	l.mu.Unlock()
	if err != nil {
		return err
	}

	target := interaction.RepostTarget(post)
	switch _, call := interaction.ToggleRepost(post); call {
	case interaction.RepostDelete:
		err = l.deps.API.DeleteRepost(ctx, target)
	default:
		_, err = l.deps.API.CreateRepost(ctx, domain.NewRepost{OriginalPostID: target})
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.pending, id)
	if l.closed {
		return err
	}
	if err != nil {
		l.setNoticeLocked("Failed to update repost", err)
		return err
	}
	l.posts = reconcile.UpdateByID(l.posts, id, func(cur domain.Post) domain.Post {
		// Перезагрузка могла уже принести новое состояние.
		if cur.HasReposted != post.HasReposted {
			return cur
		}
		next, _ := interaction.ToggleRepost(cur)
		return next
	})
	return nil
}

// Edit сохраняет новый текст поста. Пустой текст отклоняется без сетевого вызова.
func (l *postList) Edit(ctx context.Context, id int64, content string) error {
	l.mu.Lock()
	post, err := l.lookupLocked(id, false)
	if err != nil {
		l.mu.Unlock()
		return err
	}
	req, err := interaction.EditRequest(post, content)
	if err != nil {
		l.validationNoticeLocked(err)
		l.mu.Unlock()
		return err
	}
	l.mu.Unlock()

	server, err := l.deps.API.UpdatePost(ctx, id, req)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return err
	}
	if err != nil {
		l.setNoticeLocked("Failed to update post", err)
		return err
	}
	l.posts = reconcile.UpdateByID(l.posts, id, func(cur domain.Post) domain.Post {
		return interaction.ApplyEdit(cur, server)
	})
	if st := l.states[id]; st.Mode == interaction.Editing {
		if next, err := st.FinishEdit(); err == nil {
			l.states[id] = next
		}
	}
	return nil
}

// Comment добавляет комментарий; счетчик увеличивается ровно на один.
func (l *postList) Comment(ctx context.Context, id int64, content string) (domain.Comment, error) {
	l.mu.Lock()
	_, err := l.lookupLocked(id, false)
	if err == nil && strings.TrimSpace(content) == "" {
		err = ErrEmptyComment
		l.validationNoticeLocked(err)
	}
	l.mu.Unlock()
	if err != nil {
		return domain.Comment{}, err
	}

	c, err := l.deps.API.AddComment(ctx, id, content)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return c, err
	}
	if err != nil {
		l.setNoticeLocked("Failed to add comment", err)
		return domain.Comment{}, err
	}
	l.posts = reconcile.UpdateByID(l.posts, id, func(cur domain.Post) domain.Post {
		return l.onComment(cur, c)
	})
	return c, nil
}

// Delete удаляет пост и убирает его из списка.
func (l *postList) Delete(ctx context.Context, id int64) error {
	l.mu.Lock()
	_, err := l.lookupLocked(id, false)
	l.mu.Unlock()
	if err != nil {
		return err
	}

	err = l.deps.API.DeletePost(ctx, id)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return err
	}
	if err != nil {
		l.setNoticeLocked("Failed to delete post", err)
		if st := l.states[id]; st.Mode == interaction.ConfirmingDelete {
			l.states[id], _ = st.ResolveDelete()
		}
		return err
	}
	l.posts = reconcile.RemoveByID(l.posts, id)
	delete(l.states, id)
	delete(l.pending, id)
	if l.onDelete != nil {
		l.onDelete(id)
	}
	return nil
}

// === UI state ===

// State возвращает режим отображения поста.
func (l *postList) State(id int64) interaction.PostState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.states[id]
}

// transition применяет переход состояния к посту из списка.
func (l *postList) transition(id int64, fn func(st interaction.PostState, p domain.Post) (interaction.PostState, error)) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	post, err := l.lookupLocked(id, false)
	if err != nil {
		return err
	}
	next, err := fn(l.states[id], post)
	if err != nil {
		return err
	}
	l.states[id] = next
	return nil
}

func (l *postList) ToggleMenu(id int64) error {
	return l.transition(id, func(st interaction.PostState, _ domain.Post) (interaction.PostState, error) {
		return st.ToggleMenu()
	})
}

// StartEdit открывает редактор с текущим текстом поста.
func (l *postList) StartEdit(id int64) error {
	return l.transition(id, func(st interaction.PostState, p domain.Post) (interaction.PostState, error) {
		return st.StartEdit(p.Content)
	})
}

func (l *postList) SetDraft(id int64, draft string) error {
	return l.transition(id, func(st interaction.PostState, _ domain.Post) (interaction.PostState, error) {
		return st.SetDraft(draft)
	})
}

func (l *postList) CancelEdit(id int64) error {
	return l.transition(id, func(st interaction.PostState, _ domain.Post) (interaction.PostState, error) {
		return st.CancelEdit()
	})
}

// SaveEdit отправляет черновик. При ошибке редактор остается открытым.
func (l *postList) SaveEdit(ctx context.Context, id int64) error {
	l.mu.Lock()
	st := l.states[id]
	l.mu.Unlock()
	if st.Mode != interaction.Editing {
		return interaction.ErrInvalidTransition
	}
	return l.Edit(ctx, id, st.Draft)
}

func (l *postList) RequestDelete(id int64) error {
	return l.transition(id, func(st interaction.PostState, _ domain.Post) (interaction.PostState, error) {
		return st.RequestDelete()
	})
}

func (l *postList) CancelDelete(id int64) error {
	return l.transition(id, func(st interaction.PostState, _ domain.Post) (interaction.PostState, error) {
		return st.ResolveDelete()
	})
}
