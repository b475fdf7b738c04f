package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/UkralStul/testbook/internal/storage"
)

// Store реализует интерфейс Storage с использованием PostgreSQL.
type Store struct {
	db *gorm.DB
}

var _ storage.Storage = (*Store)(nil)

// New создает новый экземпляр хранилища PostgreSQL.
// debug включает логирование SQL.
func New(dsn string, debug bool) (*Store, error) {
	mode := logger.Warn
	if debug {
		mode = logger.Info
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(mode),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Выполняем миграцию схемы
	if err := db.AutoMigrate(
		&storage.User{}, &storage.Post{}, &storage.Comment{},
		&storage.Reaction{}, &storage.Follow{}, &storage.Block{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// translate приводит ошибки GORM к ошибкам хранилища.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", what, storage.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", what, storage.ErrConflict)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}

// === User Methods ===

func (s *Store) CreateUser(ctx context.Context, user *storage.User) (*storage.User, error) {
	u := *user
	if err := s.db.WithContext(ctx).Create(&u).Error; err != nil {
		return nil, translate(err, "user "+user.Username)
	}
	return &u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*storage.User, error) {
	var u storage.User
	if err := s.db.WithContext(ctx).First(&u, "username = ?", username).Error; err != nil {
		return nil, translate(err, "user "+username)
	}
	return &u, nil
}

// === Post Methods ===

func (s *Store) CreatePost(ctx context.Context, post *storage.Post) (*storage.Post, error) {
	p := *post
	// GORM автоматически заполнит ID и CreatedAt после создания
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return nil, translate(err, "create post")
	}
	return &p, nil
}

func (s *Store) GetPostByID(ctx context.Context, id int64) (*storage.Post, error) {
	var p storage.Post
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("post with id %d", id))
	}
	return &p, nil
}

func (s *Store) UpdatePost(ctx context.Context, post *storage.Post) (*storage.Post, error) {
	var p storage.Post
	// Используем транзакцию для атомарности операции чтения-записи
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, "id = ?", post.ID).Error; err != nil {
			return err
		}
		p.Content = post.Content
		p.ImageURL = post.ImageURL
		p.VideoURL = post.VideoURL
		return tx.Save(&p).Error
	})
	if err != nil {
		return nil, translate(err, fmt.Sprintf("post with id %d", post.ID))
	}
	return &p, nil
}

func (s *Store) DeletePost(ctx context.Context, id int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p storage.Post
		if err := tx.First(&p, "id = ?", id).Error; err != nil {
			return err
		}
		// Репосты репостов удаляются вместе с обернутым постом.
		ids := []int64{id}
		for level := []int64{id}; len(level) > 0; {
			var next []int64
			if err := tx.Model(&storage.Post{}).Where("original_post_id IN ?", level).Pluck("id", &next).Error; err != nil {
				return err
			}
			ids = append(ids, next...)
			level = next
		}
		if err := tx.Where("post_id IN ?", ids).Delete(&storage.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id IN ?", ids).Delete(&storage.Reaction{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Delete(&storage.Post{}).Error
	})
	return translate(err, fmt.Sprintf("post with id %d", id))
}

func (s *Store) ListPosts(ctx context.Context, filter storage.PostFilter, args storage.PaginationArgs) ([]*storage.Post, error) {
	if filter.AuthorIDs != nil && len(filter.AuthorIDs) == 0 {
		return []*storage.Post{}, nil
	}
	limit := args.Limit
	if limit <= 0 {
		limit = storage.DefaultLimit
	}
	query := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit).Offset(args.Skip)
	if filter.AuthorIDs != nil {
		query = query.Where("author_id IN ?", filter.AuthorIDs)
	}
	if len(filter.ExcludeAuthorIDs) > 0 {
		query = query.Where("author_id NOT IN ?", filter.ExcludeAuthorIDs)
	}
	var posts []*storage.Post
	if err := query.Find(&posts).Error; err != nil {
		return nil, translate(err, "list posts")
	}
	return posts, nil
}

func (s *Store) CountPosts(ctx context.Context, authorID int64) (int, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&storage.Post{}).Where("author_id = ?", authorID).Count(&n).Error; err != nil {
		return 0, translate(err, "count posts")
	}
	return int(n), nil
}

func (s *Store) FindRepost(ctx context.Context, authorID, originalPostID int64) (*storage.Post, error) {
	var p storage.Post
	err := s.db.WithContext(ctx).
		Where("author_id = ? AND is_repost = ? AND original_post_id = ?", authorID, true, originalPostID).
		First(&p).Error
	if err != nil {
		return nil, translate(err, fmt.Sprintf("repost of %d by %d", originalPostID, authorID))
	}
	return &p, nil
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *storage.Comment) (*storage.Comment, error) {
	c := *comment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&storage.Post{}).Where("id = ?", c.PostID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Create(&c).Error
	})
	if err != nil {
		return nil, translate(err, fmt.Sprintf("post with id %d", comment.PostID))
	}
	return &c, nil
}

// === Reaction Methods ===

func (s *Store) UpsertReaction(ctx context.Context, reaction *storage.Reaction) (*storage.Reaction, error) {
	var r storage.Reaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&storage.Post{}).Where("id = ?", reaction.PostID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		err := tx.Where("post_id = ? AND user_id = ?", reaction.PostID, reaction.UserID).First(&r).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r = *reaction
			return tx.Create(&r).Error
		}
		if err != nil {
			return err
		}
		r.ReactionType = reaction.ReactionType
		return tx.Save(&r).Error
	})
	if err != nil {
		return nil, translate(err, fmt.Sprintf("reaction on post %d", reaction.PostID))
	}
	return &r, nil
}

func (s *Store) DeleteReaction(ctx context.Context, postID, userID int64) error {
	res := s.db.WithContext(ctx).Where("post_id = ? AND user_id = ?", postID, userID).Delete(&storage.Reaction{})
	if res.Error != nil {
		return translate(res.Error, "delete reaction")
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("reaction on %d by %d: %w", postID, userID, storage.ErrNotFound)
	}
	return nil
}

// === Relationship Methods ===

func (s *Store) AddFollow(ctx context.Context, followerID, followedID int64) error {
	err := s.db.WithContext(ctx).Create(&storage.Follow{FollowerID: followerID, FollowedID: followedID}).Error
	return translate(err, fmt.Sprintf("follow %d->%d", followerID, followedID))
}

func (s *Store) RemoveFollow(ctx context.Context, followerID, followedID int64) error {
	res := s.db.WithContext(ctx).Where("follower_id = ? AND followed_id = ?", followerID, followedID).Delete(&storage.Follow{})
	if res.Error != nil {
		return translate(res.Error, "unfollow")
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("follow %d->%d: %w", followerID, followedID, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) AddBlock(ctx context.Context, blockerID, blockedID int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&storage.Block{BlockerID: blockerID, BlockedID: blockedID}).Error; err != nil {
			return err
		}
		return tx.Where("(follower_id = ? AND followed_id = ?) OR (follower_id = ? AND followed_id = ?)",
			blockerID, blockedID, blockedID, blockerID).Delete(&storage.Follow{}).Error
	})
	return translate(err, fmt.Sprintf("block %d->%d", blockerID, blockedID))
}

func (s *Store) RemoveBlock(ctx context.Context, blockerID, blockedID int64) error {
	res := s.db.WithContext(ctx).Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).Delete(&storage.Block{})
	if res.Error != nil {
		return translate(res.Error, "unblock")
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("block %d->%d: %w", blockerID, blockedID, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) GetRelations(ctx context.Context, userID int64) (*storage.Relations, error) {
	rel := &storage.Relations{}
	db := s.db.WithContext(ctx)
	queries := []struct {
		model  any
		column string
		where  string
		dest   *[]int64
	}{
		{&storage.Follow{}, "followed_id", "follower_id = ?", &rel.Following},
		{&storage.Follow{}, "follower_id", "followed_id = ?", &rel.Followers},
		{&storage.Block{}, "blocked_id", "blocker_id = ?", &rel.Blocking},
		{&storage.Block{}, "blocker_id", "blocked_id = ?", &rel.BlockedBy},
	}
	for _, q := range queries {
		if err := db.Model(q.model).Where(q.where, userID).Order(q.column).Pluck(q.column, q.dest).Error; err != nil {
			return nil, translate(err, "relations")
		}
	}
	return rel, nil
}

// === Dataloader Methods ===

func (s *Store) GetUsersByIDs(ctx context.Context, ids []int64) (map[int64]*storage.User, error) {
	var users []*storage.User
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, translate(err, "users by ids")
	}
	result := make(map[int64]*storage.User, len(users))
	for _, u := range users {
		result[u.ID] = u
	}
	return result, nil
}

func (s *Store) GetPostsByIDs(ctx context.Context, ids []int64) (map[int64]*storage.Post, error) {
	var posts []*storage.Post
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&posts).Error; err != nil {
		return nil, translate(err, "posts by ids")
	}
	result := make(map[int64]*storage.Post, len(posts))
	for _, p := range posts {
		result[p.ID] = p
	}
	return result, nil
}

func (s *Store) GetCommentsByPostIDs(ctx context.Context, postIDs []int64) (map[int64][]*storage.Comment, error) {
	var comments []*storage.Comment
	// Загружаем комментарии для всех переданных постов одним запросом
	err := s.db.WithContext(ctx).
		Where("post_id IN ?", postIDs).
		Order("post_id, id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, translate(err, "comments by post ids")
	}
	result := make(map[int64][]*storage.Comment, len(postIDs))
	for _, c := range comments {
		result[c.PostID] = append(result[c.PostID], c)
	}
	return result, nil
}

func (s *Store) GetReactionsByPostIDs(ctx context.Context, postIDs []int64) (map[int64][]*storage.Reaction, error) {
	var reactions []*storage.Reaction
	err := s.db.WithContext(ctx).
		Where("post_id IN ?", postIDs).
		Order("post_id, id ASC").
		Find(&reactions).Error
	if err != nil {
		return nil, translate(err, "reactions by post ids")
	}
	result := make(map[int64][]*storage.Reaction, len(postIDs))
	for _, r := range reactions {
		result[r.PostID] = append(result[r.PostID], r)
	}
	return result, nil
}

func (s *Store) GetRepostsByOriginalIDs(ctx context.Context, originalIDs []int64) (map[int64][]*storage.Post, error) {
	var posts []*storage.Post
	err := s.db.WithContext(ctx).
		Where("original_post_id IN ?", originalIDs).
		Order("original_post_id, id ASC").
		Find(&posts).Error
	if err != nil {
		return nil, translate(err, "reposts by original ids")
	}
	result := make(map[int64][]*storage.Post, len(originalIDs))
	for _, p := range posts {
		result[*p.OriginalPostID] = append(result[*p.OriginalPostID], p)
	}
	return result, nil
}
