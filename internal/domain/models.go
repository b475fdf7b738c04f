package domain

import (
	"errors"
	"time"
)

var (
	ErrInvalidReaction = errors.New("invalid reaction type")
	ErrMediaConflict   = errors.New("post cannot have both an image and a video")
	ErrInvalidPost     = errors.New("invalid post")
)

// ReactionType - одна из шести взаимоисключающих реакций.
type ReactionType string

const (
	ReactionLike  ReactionType = "like"
	ReactionLove  ReactionType = "love"
	ReactionHaha  ReactionType = "haha"
	ReactionWow   ReactionType = "wow"
	ReactionSad   ReactionType = "sad"
	ReactionAngry ReactionType = "angry"
)

// ReactionTypes перечисляет допустимые реакции в порядке отображения.
var ReactionTypes = []ReactionType{
	ReactionLike, ReactionLove, ReactionHaha, ReactionWow, ReactionSad, ReactionAngry,
}

// ParseReactionType проверяет, что строка входит в закрытый набор реакций.
func ParseReactionType(s string) (ReactionType, error) {
	for _, t := range ReactionTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", ErrInvalidReaction
}

// Post представляет пост или репост в том виде, в котором его отдает API.
//
// Comments и Reactions заполняются только детальным представлением поста.
// nil означает, что поле отсутствовало в ответе; пустой срез - что список пуст.
type Post struct {
	ID                   int64            `json:"id"`
	Content              string           `json:"content"`
	ImageURL             *string          `json:"image_url"`
	VideoURL             *string          `json:"video_url"`
	IsRepost             bool             `json:"is_repost"`
	OriginalPostID       *int64           `json:"original_post_id"`
	OriginalPost         *Post            `json:"original_post"`
	AuthorID             int64            `json:"author_id"`
	AuthorUsername       string           `json:"author_username"`
	AuthorDisplayName    string           `json:"author_display_name"`
	AuthorProfilePicture string           `json:"author_profile_picture"`
	CreatedAt            time.Time        `json:"created_at"`
	CommentsCount        int              `json:"comments_count"`
	ReactionsCount       int              `json:"reactions_count"`
	RepostsCount         int              `json:"reposts_count"`
	UserReaction         *ReactionType    `json:"user_reaction"`
	HasReposted          bool             `json:"has_reposted"`
	Comments             []Comment        `json:"comments"`
	Reactions            []ReactionDetail `json:"reactions"`
}

// Validate проверяет инварианты поста.
func (p Post) Validate() error {
	if err := ValidateMedia(p.ImageURL, p.VideoURL); err != nil {
		return err
	}
	if p.IsRepost && p.OriginalPostID == nil {
		return errors.Join(ErrInvalidPost, errors.New("repost without original_post_id"))
	}
	if p.CommentsCount < 0 || p.ReactionsCount < 0 || p.RepostsCount < 0 {
		return errors.Join(ErrInvalidPost, errors.New("negative counter"))
	}
	return nil
}

// ValidateMedia допускает либо картинку, либо видео, либо ничего.
func ValidateMedia(imageURL, videoURL *string) error {
	if imageURL != nil && *imageURL != "" && videoURL != nil && *videoURL != "" {
		return ErrMediaConflict
	}
	return nil
}

// Comment представляет комментарий к посту.
type Comment struct {
	ID                   int64     `json:"id"`
	PostID               int64     `json:"post_id,omitempty"`
	Content              string    `json:"content"`
	AuthorID             int64     `json:"author_id"`
	AuthorUsername       string    `json:"author_username"`
	AuthorDisplayName    string    `json:"author_display_name"`
	AuthorProfilePicture string    `json:"author_profile_picture"`
	CreatedAt            time.Time `json:"created_at"`
}

// ReactionDetail - строка развернутого списка реакций на странице поста.
type ReactionDetail struct {
	ID           int64        `json:"id"`
	ReactionType ReactionType `json:"reaction_type"`
	UserID       int64        `json:"user_id"`
	Username     string       `json:"username"`
	DisplayName  string       `json:"display_name"`
	CreatedAt    time.Time    `json:"created_at"`
}

// Profile - публичный профиль пользователя с точки зрения текущего пользователя.
type Profile struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	DisplayName    string    `json:"display_name"`
	Bio            string    `json:"bio"`
	ProfilePicture string    `json:"profile_picture"`
	CreatedAt      time.Time `json:"created_at"`
	FollowersCount int       `json:"followers_count"`
	FollowingCount int       `json:"following_count"`
	PostsCount     int       `json:"posts_count"`
	IsFollowing    bool      `json:"is_following"`
	IsBlocked      bool      `json:"is_blocked"`
}

// UserListItem - строка списков подписчиков и подписок.
type UserListItem struct {
	ID             int64  `json:"id"`
	Username       string `json:"username"`
	DisplayName    string `json:"display_name"`
	Bio            string `json:"bio"`
	ProfilePicture string `json:"profile_picture"`
	IsFollowing    bool   `json:"is_following"`
	IsBlocked      bool   `json:"is_blocked"`
}

// RelationshipChange - сигнал о блокировке или отписке.
// Timestamp - момент рассылки в миллисекундах Unix.
type RelationshipChange struct {
	Username  string `json:"username"`
	IsBlocked bool   `json:"isBlocked"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// RelationshipEvent - кадр потока /ws/relationships: кто (Actor) изменил
// отношение к кому (Target).
type RelationshipEvent struct {
	Actor     string           `json:"actor"`
	Target    string           `json:"target"`
	Kind      RelationshipKind `json:"kind"`
	Timestamp int64            `json:"timestamp"`
}

type RelationshipKind string

const (
	RelationshipFollow   RelationshipKind = "follow"
	RelationshipUnfollow RelationshipKind = "unfollow"
	RelationshipBlock    RelationshipKind = "block"
	RelationshipUnblock  RelationshipKind = "unblock"
)

// NewPost - тело запросов создания и редактирования поста.
type NewPost struct {
	Content  string  `json:"content"`
	ImageURL *string `json:"image_url,omitempty"`
	VideoURL *string `json:"video_url,omitempty"`
}

// NewRepost - тело запроса создания репоста.
type NewRepost struct {
	OriginalPostID int64  `json:"original_post_id"`
	Content        string `json:"content"`
}

// NewComment - тело запроса создания комментария.
type NewComment struct {
	Content string `json:"content"`
}

// NewReaction - тело запроса установки реакции.
type NewReaction struct {
	ReactionType ReactionType `json:"reaction_type"`
}

// Message - ответ API без сущности (follow, block и т.п.).
type Message struct {
	Message string `json:"message"`
}
