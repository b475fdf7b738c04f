package view

import (
	"context"

	"github.com/UkralStul/testbook/internal/domain"
	"github.com/UkralStul/testbook/internal/interaction"
	"github.com/UkralStul/testbook/internal/reconcile"
)

// PostDetail - страница одного поста со списками комментариев и реакций.
// После удаления поста экран помечается Deleted; переход выполняет вызывающий.
type PostDetail struct {
	postList
	id      int64
	deleted bool
}

func NewPostDetail(deps Deps, id int64) *PostDetail {
	d := &PostDetail{id: id}
	d.init(deps.withDefaults("post_detail"))
	d.onComment = func(p domain.Post, c domain.Comment) domain.Post {
		p = interaction.AppendComment(p)
		p.Comments = append(append([]domain.Comment{}, p.Comments...), c)
		return p
	}
	d.onDelete = func(int64) { d.deleted = true }
	return d
}

// Load загружает пост. Повторная загрузка сливается с текущим состоянием.
func (d *PostDetail) Load(ctx context.Context) error {
	if d.isClosed() {
		return ErrClosed
	}
	post, err := d.deps.API.GetPost(ctx, d.id)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return err
	}
	if err != nil {
		d.setNoticeLocked("Failed to load post", err)
		return err
	}
	if cur, ok := reconcile.FindByID(d.posts, d.id); ok {
		d.posts = []domain.Post{interaction.MergeServerUpdate(cur, post)}
	} else {
		d.posts = []domain.Post{post}
	}
	return nil
}

// Post возвращает пост, если он загружен и не удален.
func (d *PostDetail) Post() (domain.Post, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return reconcile.FindByID(d.posts, d.id)
}

func (d *PostDetail) Deleted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.deleted
}
