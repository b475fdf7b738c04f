// Package interaction содержит чистые правила изменения одного поста:
// реакции, репосты, редактирование, комментарии и слияние с ответом сервера.
package interaction

import (
	"errors"
	"strings"

	"github.com/UkralStul/testbook/internal/domain"
)

// ErrEmptyContent возвращается до сетевого вызова, если текст пустой.
var ErrEmptyContent = errors.New("Post content cannot be empty")

// ReactionCall - сетевой вызов, который нужно сделать для переключения реакции.
type ReactionCall int

const (
	ReactionSet ReactionCall = iota
	ReactionRemove
)

// RepostCall - сетевой вызов для переключения репоста.
type RepostCall int

const (
	RepostCreate RepostCall = iota
	RepostDelete
)

// ToggleReaction вычисляет вызов и ожидаемое состояние поста.
// Повторный выбор той же реакции снимает ее, другая реакция заменяет прежнюю.
// Ответ сервера все равно авторитетен и применяется через MergeServerUpdate.
func ToggleReaction(p domain.Post, requested domain.ReactionType) (domain.Post, ReactionCall) {
	next := p
	if p.UserReaction != nil && *p.UserReaction == requested {
		next.UserReaction = nil
		next.ReactionsCount = floor(p.ReactionsCount - 1)
		return next, ReactionRemove
	}
	if p.UserReaction == nil {
		next.ReactionsCount = p.ReactionsCount + 1
	}
	r := requested
	next.UserReaction = &r
	return next, ReactionSet
}

// RepostTarget возвращает id поста, на который указывает репост-действие.
// Для обертки-репоста это всегда исходный пост.
func RepostTarget(p domain.Post) int64 {
	if p.IsRepost && p.OriginalPostID != nil {
		return *p.OriginalPostID
	}
	return p.ID
}

// ToggleRepost вычисляет вызов и состояние после его успешного выполнения.
func ToggleRepost(p domain.Post) (domain.Post, RepostCall) {
	next := p
	if p.HasReposted {
		next.HasReposted = false
		next.RepostsCount = floor(p.RepostsCount - 1)
		return next, RepostDelete
	}
	next.HasReposted = true
	next.RepostsCount = p.RepostsCount + 1
	return next, RepostCreate
}

// ValidateEdit отклоняет пустой текст или текст из одних пробелов.
func ValidateEdit(content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}
	return nil
}

// EditRequest собирает тело PUT /posts/{id}, сохраняя медиа поста.
func EditRequest(p domain.Post, content string) (domain.NewPost, error) {
	if err := ValidateEdit(content); err != nil {
		return domain.NewPost{}, err
	}
	return domain.NewPost{
		Content:  content,
		ImageURL: p.ImageURL,
		VideoURL: p.VideoURL,
	}, nil
}

// ApplyEdit применяет результат редактирования; поля сервера важнее локальных.
func ApplyEdit(current, server domain.Post) domain.Post {
	return MergeServerUpdate(current, server)
}

// AppendComment увеличивает счетчик комментариев ровно на один.
func AppendComment(p domain.Post) domain.Post {
	p.CommentsCount++
	return p
}

// MergeServerUpdate накладывает ответ сервера на текущее состояние.
// Поля, которых нет в ответе, сохраняют прежние значения.
func MergeServerUpdate(current, server domain.Post) domain.Post {
	if server.ID != current.ID {
		return current
	}
	merged := server
	if server.Comments == nil {
		merged.Comments = current.Comments
	}
	if server.Reactions == nil {
		merged.Reactions = current.Reactions
	}
	if server.OriginalPost == nil && sameOriginal(current, server) {
		merged.OriginalPost = current.OriginalPost
	}
	return merged
}

func sameOriginal(a, b domain.Post) bool {
	return a.OriginalPostID != nil && b.OriginalPostID != nil && *a.OriginalPostID == *b.OriginalPostID
}

func floor(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
