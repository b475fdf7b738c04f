package storage

import (
	"context"
	"errors"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
	ErrBadRequest = errors.New("bad request")
)

// PaginationArgs - аргументы для пагинации лент.
type PaginationArgs struct {
	Skip  int
	Limit int
}

// DefaultLimit - размер страницы по умолчанию.
const DefaultLimit = 50

// PostFilter сужает выборку постов.
// AuthorIDs == nil означает "все авторы", пустой срез - "никто".
type PostFilter struct {
	AuthorIDs        []int64
	ExcludeAuthorIDs []int64
}

// Relations - связи пользователя с другими пользователями.
type Relations struct {
	Following []int64
	Followers []int64
	Blocking  []int64
	BlockedBy []int64
}

// Storage определяет контракт для хранилищ.
type Storage interface {
	CreateUser(ctx context.Context, user *User) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	CreatePost(ctx context.Context, post *Post) (*Post, error)
	GetPostByID(ctx context.Context, id int64) (*Post, error)
	UpdatePost(ctx context.Context, post *Post) (*Post, error)
	// DeletePost удаляет пост вместе с комментариями, реакциями и репостами на него.
	DeletePost(ctx context.Context, id int64) error
	ListPosts(ctx context.Context, filter PostFilter, args PaginationArgs) ([]*Post, error)
	CountPosts(ctx context.Context, authorID int64) (int, error)
	FindRepost(ctx context.Context, authorID, originalPostID int64) (*Post, error)

	CreateComment(ctx context.Context, comment *Comment) (*Comment, error)

	// UpsertReaction заменяет реакцию пользователя на пост, если она уже есть.
	UpsertReaction(ctx context.Context, reaction *Reaction) (*Reaction, error)
	DeleteReaction(ctx context.Context, postID, userID int64) error

	AddFollow(ctx context.Context, followerID, followedID int64) error
	RemoveFollow(ctx context.Context, followerID, followedID int64) error
	// AddBlock также удаляет подписки в обе стороны.
	AddBlock(ctx context.Context, blockerID, blockedID int64) error
	RemoveBlock(ctx context.Context, blockerID, blockedID int64) error
	GetRelations(ctx context.Context, userID int64) (*Relations, error)

	// Методы для Dataloader'ов
	GetUsersByIDs(ctx context.Context, ids []int64) (map[int64]*User, error)
	GetPostsByIDs(ctx context.Context, ids []int64) (map[int64]*Post, error)
	GetCommentsByPostIDs(ctx context.Context, postIDs []int64) (map[int64][]*Comment, error)
	GetReactionsByPostIDs(ctx context.Context, postIDs []int64) (map[int64][]*Reaction, error)
	GetRepostsByOriginalIDs(ctx context.Context, originalIDs []int64) (map[int64][]*Post, error)
}

// Contains сообщает, есть ли id в срезе.
func Contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
