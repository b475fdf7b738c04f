package server

import (
	"context"

	"github.com/UkralStul/testbook/internal/dataloader"
	"github.com/UkralStul/testbook/internal/domain"
	"github.com/UkralStul/testbook/internal/storage"
)

// viewer - текущий пользователь и его связи; посты авторов, заблокированных
// в любую сторону, скрываются.
type viewer struct {
	user    *storage.User
	hidden  []int64
	follows []int64
}

func (s *Server) viewerFor(ctx context.Context) (*viewer, error) {
	user := currentUser(ctx)
	rel, err := s.store.GetRelations(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	hidden := append(append([]int64{}, rel.Blocking...), rel.BlockedBy...)
	return &viewer{user: user, hidden: hidden, follows: rel.Following}, nil
}

func (v *viewer) hides(authorID int64) bool {
	return storage.Contains(v.hidden, authorID)
}

// formatPosts собирает ответ API. Все связанные данные грузятся пачками
// через лоадеры запроса: оригиналы репостов, авторы, комментарии, реакции, репосты.
func (s *Server) formatPosts(ctx context.Context, v *viewer, rows []*storage.Post) ([]domain.Post, error) {
	loaders := dataloader.For(ctx)

	var originalIDs []int64
	for _, p := range rows {
		if p.OriginalPostID != nil {
			originalIDs = append(originalIDs, *p.OriginalPostID)
		}
	}
	originals, err := loaders.Posts(ctx, originalIDs)
	if err != nil {
		return nil, err
	}

	postIDs := make([]int64, 0, len(rows)+len(originals))
	authorIDs := make([]int64, 0, len(rows)+len(originals))
	for _, p := range rows {
		postIDs = append(postIDs, p.ID)
		authorIDs = append(authorIDs, p.AuthorID)
	}
	for _, p := range originals {
		postIDs = append(postIDs, p.ID)
		authorIDs = append(authorIDs, p.AuthorID)
	}

	authors, err := loaders.Users(ctx, authorIDs)
	if err != nil {
		return nil, err
	}
	comments, err := loaders.Comments(ctx, postIDs)
	if err != nil {
		return nil, err
	}
	reactions, err := loaders.Reactions(ctx, postIDs)
	if err != nil {
		return nil, err
	}
	reposts, err := loaders.Reposts(ctx, postIDs)
	if err != nil {
		return nil, err
	}

	build := func(p *storage.Post) domain.Post {
		out := domain.Post{
			ID:             p.ID,
			Content:        p.Content,
			ImageURL:       p.ImageURL,
			VideoURL:       p.VideoURL,
			IsRepost:       p.IsRepost,
			OriginalPostID: p.OriginalPostID,
			AuthorID:       p.AuthorID,
			CreatedAt:      p.CreatedAt,
			CommentsCount:  len(comments[p.ID]),
			ReactionsCount: len(reactions[p.ID]),
			RepostsCount:   len(reposts[p.ID]),
		}
		if a, ok := authors[p.AuthorID]; ok {
			out.AuthorUsername = a.Username
			out.AuthorDisplayName = a.DisplayName
			out.AuthorProfilePicture = a.ProfilePicture
		}
		for _, r := range reactions[p.ID] {
			if r.UserID == v.user.ID {
				t := domain.ReactionType(r.ReactionType)
				out.UserReaction = &t
				break
			}
		}
		// Для обертки флаг относится к исходному посту: туда уходит действие репоста.
		target := p.ID
		if p.OriginalPostID != nil {
			target = *p.OriginalPostID
		}
		for _, rp := range reposts[target] {
			if rp.AuthorID == v.user.ID {
				out.HasReposted = true
				break
			}
		}
		return out
	}

	result := make([]domain.Post, 0, len(rows))
	for _, p := range rows {
		out := build(p)
		if p.OriginalPostID != nil {
			if orig, ok := originals[*p.OriginalPostID]; ok && !v.hides(orig.AuthorID) {
				embedded := build(orig)
				out.OriginalPost = &embedded
			}
		}
		result = append(result, out)
	}
	return result, nil
}

func (s *Server) formatPost(ctx context.Context, v *viewer, row *storage.Post) (domain.Post, error) {
	posts, err := s.formatPosts(ctx, v, []*storage.Post{row})
	if err != nil {
		return domain.Post{}, err
	}
	return posts[0], nil
}

// formatDetail добавляет к посту списки комментариев и реакций.
func (s *Server) formatDetail(ctx context.Context, v *viewer, row *storage.Post) (domain.Post, error) {
	post, err := s.formatPost(ctx, v, row)
	if err != nil {
		return domain.Post{}, err
	}
	loaders := dataloader.For(ctx)
	comments, err := loaders.Comments(ctx, []int64{row.ID})
	if err != nil {
		return domain.Post{}, err
	}
	reactions, err := loaders.Reactions(ctx, []int64{row.ID})
	if err != nil {
		return domain.Post{}, err
	}

	var userIDs []int64
	for _, c := range comments[row.ID] {
		userIDs = append(userIDs, c.AuthorID)
	}
	for _, r := range reactions[row.ID] {
		userIDs = append(userIDs, r.UserID)
	}
	users, err := loaders.Users(ctx, userIDs)
	if err != nil {
		return domain.Post{}, err
	}

	post.Comments = make([]domain.Comment, 0, len(comments[row.ID]))
	for _, c := range comments[row.ID] {
		post.Comments = append(post.Comments, formatComment(c, users[c.AuthorID]))
	}
	post.Reactions = make([]domain.ReactionDetail, 0, len(reactions[row.ID]))
	for _, r := range reactions[row.ID] {
		d := domain.ReactionDetail{
			ID:           r.ID,
			ReactionType: domain.ReactionType(r.ReactionType),
			UserID:       r.UserID,
			CreatedAt:    r.CreatedAt,
		}
		if u, ok := users[r.UserID]; ok {
			d.Username = u.Username
			d.DisplayName = u.DisplayName
		}
		post.Reactions = append(post.Reactions, d)
	}
	return post, nil
}

func formatComment(c *storage.Comment, author *storage.User) domain.Comment {
	out := domain.Comment{
		ID:        c.ID,
		PostID:    c.PostID,
		Content:   c.Content,
		AuthorID:  c.AuthorID,
		CreatedAt: c.CreatedAt,
	}
	if author != nil {
		out.AuthorUsername = author.Username
		out.AuthorDisplayName = author.DisplayName
		out.AuthorProfilePicture = author.ProfilePicture
	}
	return out
}

func formatListItem(u *storage.User, v *viewer) domain.UserListItem {
	return domain.UserListItem{
		ID:             u.ID,
		Username:       u.Username,
		DisplayName:    u.DisplayName,
		Bio:            u.Bio,
		ProfilePicture: u.ProfilePicture,
		IsFollowing:    storage.Contains(v.follows, u.ID),
		IsBlocked:      v.hides(u.ID),
	}
}
