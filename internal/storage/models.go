package storage

import "time"

// User - учетная запись. Пароли и сессии в dev-бэкенде не хранятся.
type User struct {
	ID             int64  `gorm:"primaryKey"`
	Email          string
	Username       string `gorm:"uniqueIndex;not null"`
	DisplayName    string `gorm:"not null"`
	Bio            string
	ProfilePicture string
	CreatedAt      time.Time
}

// Post - строка таблицы постов. Репост - пост с OriginalPostID.
type Post struct {
	ID             int64  `gorm:"primaryKey"`
	AuthorID       int64  `gorm:"index;not null"`
	Content        string `gorm:"type:text;not null"`
	ImageURL       *string
	VideoURL       *string
	IsRepost       bool
	OriginalPostID *int64 `gorm:"index"`
	CreatedAt      time.Time
}

type Comment struct {
	ID        int64  `gorm:"primaryKey"`
	PostID    int64  `gorm:"index;not null"`
	AuthorID  int64  `gorm:"not null"`
	Content   string `gorm:"type:text;not null"`
	CreatedAt time.Time
}

// Reaction - одна реакция пользователя на пост.
type Reaction struct {
	ID           int64  `gorm:"primaryKey"`
	PostID       int64  `gorm:"uniqueIndex:idx_reaction_post_user;not null"`
	UserID       int64  `gorm:"uniqueIndex:idx_reaction_post_user;not null"`
	ReactionType string `gorm:"not null"`
	CreatedAt    time.Time
}

type Follow struct {
	FollowerID int64 `gorm:"primaryKey;autoIncrement:false"`
	FollowedID int64 `gorm:"primaryKey;autoIncrement:false"`
	CreatedAt  time.Time
}

type Block struct {
	BlockerID int64 `gorm:"primaryKey;autoIncrement:false"`
	BlockedID int64 `gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time
}
