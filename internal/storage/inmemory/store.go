package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/UkralStul/testbook/internal/storage"
)

type edge struct{ from, to int64 }

// Store реализует интерфейс Storage в памяти.
// Наружу отдаются копии, поэтому вызывающий может менять их свободно.
type Store struct {
	mu        sync.RWMutex
	nextID    int64
	users     map[int64]*storage.User
	usernames map[string]int64
	posts     map[int64]*storage.Post
	comments  map[int64]*storage.Comment
	reactions map[int64]*storage.Reaction
	follows   map[edge]time.Time
	blocks    map[edge]time.Time
}

// New создает новый экземпляр in-memory хранилища.
func New() *Store {
	return &Store{
		users:     make(map[int64]*storage.User),
		usernames: make(map[string]int64),
		posts:     make(map[int64]*storage.Post),
		comments:  make(map[int64]*storage.Comment),
		reactions: make(map[int64]*storage.Reaction),
		follows:   make(map[edge]time.Time),
		blocks:    make(map[edge]time.Time),
	}
}

var _ storage.Storage = (*Store)(nil)

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

// === User Methods ===

func (s *Store) CreateUser(ctx context.Context, user *storage.User) (*storage.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.usernames[user.Username]; ok {
		return nil, fmt.Errorf("username %s: %w", user.Username, storage.ErrConflict)
	}
	u := *user
	u.ID = s.id()
	u.CreatedAt = stamp(u.CreatedAt)
	s.users[u.ID] = &u
	s.usernames[u.Username] = u.ID
	out := u
	return &out, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*storage.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usernames[username]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", username, storage.ErrNotFound)
	}
	u := *s.users[id]
	return &u, nil
}

// === Post Methods ===

func (s *Store) CreatePost(ctx context.Context, post *storage.Post) (*storage.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[post.AuthorID]; !ok {
		return nil, fmt.Errorf("author %d: %w", post.AuthorID, storage.ErrNotFound)
	}
	if post.OriginalPostID != nil {
		if _, ok := s.posts[*post.OriginalPostID]; !ok {
			return nil, fmt.Errorf("original post %d: %w", *post.OriginalPostID, storage.ErrNotFound)
		}
	}
	p := *post
	p.ID = s.id()
	p.CreatedAt = stamp(p.CreatedAt)
	s.posts[p.ID] = &p
	out := p
	return &out, nil
}

func (s *Store) GetPostByID(ctx context.Context, id int64) (*storage.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, fmt.Errorf("post with id %d: %w", id, storage.ErrNotFound)
	}
	out := *p
	return &out, nil
}

func (s *Store) UpdatePost(ctx context.Context, post *storage.Post) (*storage.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[post.ID]
	if !ok {
		return nil, fmt.Errorf("post with id %d: %w", post.ID, storage.ErrNotFound)
	}
	p.Content = post.Content
	p.ImageURL = post.ImageURL
	p.VideoURL = post.VideoURL
	out := *p
	return &out, nil
}

func (s *Store) DeletePost(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[id]; !ok {
		return fmt.Errorf("post with id %d: %w", id, storage.ErrNotFound)
	}
	s.deletePostLocked(id)
	return nil
}

func (s *Store) deletePostLocked(id int64) {
	delete(s.posts, id)
	for cid, c := range s.comments {
		if c.PostID == id {
			delete(s.comments, cid)
		}
	}
	for rid, r := range s.reactions {
		if r.PostID == id {
			delete(s.reactions, rid)
		}
	}
	for pid, p := range s.posts {
		if p.OriginalPostID != nil && *p.OriginalPostID == id {
			s.deletePostLocked(pid)
		}
	}
}

func (s *Store) ListPosts(ctx context.Context, filter storage.PostFilter, args storage.PaginationArgs) ([]*storage.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*storage.Post, 0, len(s.posts))
	for _, p := range s.posts {
		if filter.AuthorIDs != nil && !storage.Contains(filter.AuthorIDs, p.AuthorID) {
			continue
		}
		if storage.Contains(filter.ExcludeAuthorIDs, p.AuthorID) {
			continue
		}
		cp := *p
		all = append(all, &cp)
	}

	// Новые сверху; id разрешает совпадение времени.
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	return paginate(all, args), nil
}

func paginate(posts []*storage.Post, args storage.PaginationArgs) []*storage.Post {
	limit := args.Limit
	if limit <= 0 {
		limit = storage.DefaultLimit
	}
	start := args.Skip
	if start < 0 {
		start = 0
	}
	if start >= len(posts) {
		return []*storage.Post{}
	}
	end := start + limit
	if end > len(posts) {
		end = len(posts)
	}
	return posts[start:end]
}

func (s *Store) CountPosts(ctx context.Context, authorID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, p := range s.posts {
		if p.AuthorID == authorID {
			n++
		}
	}
	return n, nil
}

func (s *Store) FindRepost(ctx context.Context, authorID, originalPostID int64) (*storage.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.posts {
		if p.AuthorID == authorID && p.IsRepost && p.OriginalPostID != nil && *p.OriginalPostID == originalPostID {
			out := *p
			return &out, nil
		}
	}
	return nil, fmt.Errorf("repost of %d by %d: %w", originalPostID, authorID, storage.ErrNotFound)
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *storage.Comment) (*storage.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[comment.PostID]; !ok {
		return nil, fmt.Errorf("post with id %d: %w", comment.PostID, storage.ErrNotFound)
	}
	c := *comment
	c.ID = s.id()
	c.CreatedAt = stamp(c.CreatedAt)
	s.comments[c.ID] = &c
	out := c
	return &out, nil
}

// === Reaction Methods ===

func (s *Store) UpsertReaction(ctx context.Context, reaction *storage.Reaction) (*storage.Reaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[reaction.PostID]; !ok {
		return nil, fmt.Errorf("post with id %d: %w", reaction.PostID, storage.ErrNotFound)
	}
	for _, r := range s.reactions {
		if r.PostID == reaction.PostID && r.UserID == reaction.UserID {
			r.ReactionType = reaction.ReactionType
			out := *r
			return &out, nil
		}
	}
	r := *reaction
	r.ID = s.id()
	r.CreatedAt = stamp(r.CreatedAt)
	s.reactions[r.ID] = &r
	out := r
	return &out, nil
}

func (s *Store) DeleteReaction(ctx context.Context, postID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, r := range s.reactions {
		if r.PostID == postID && r.UserID == userID {
			delete(s.reactions, id)
			return nil
		}
	}
	return fmt.Errorf("reaction on %d by %d: %w", postID, userID, storage.ErrNotFound)
}

// === Relationship Methods ===

func (s *Store) AddFollow(ctx context.Context, followerID, followedID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := edge{followerID, followedID}
	if _, ok := s.follows[e]; ok {
		return fmt.Errorf("follow %d->%d: %w", followerID, followedID, storage.ErrConflict)
	}
	s.follows[e] = time.Now().UTC()
	return nil
}

func (s *Store) RemoveFollow(ctx context.Context, followerID, followedID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := edge{followerID, followedID}
	if _, ok := s.follows[e]; !ok {
		return fmt.Errorf("follow %d->%d: %w", followerID, followedID, storage.ErrNotFound)
	}
	delete(s.follows, e)
	return nil
}

func (s *Store) AddBlock(ctx context.Context, blockerID, blockedID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := edge{blockerID, blockedID}
	if _, ok := s.blocks[e]; ok {
		return fmt.Errorf("block %d->%d: %w", blockerID, blockedID, storage.ErrConflict)
	}
	s.blocks[e] = time.Now().UTC()
	delete(s.follows, edge{blockerID, blockedID})
	delete(s.follows, edge{blockedID, blockerID})
	return nil
}

func (s *Store) RemoveBlock(ctx context.Context, blockerID, blockedID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := edge{blockerID, blockedID}
	if _, ok := s.blocks[e]; !ok {
		return fmt.Errorf("block %d->%d: %w", blockerID, blockedID, storage.ErrNotFound)
	}
	delete(s.blocks, e)
	return nil
}

func (s *Store) GetRelations(ctx context.Context, userID int64) (*storage.Relations, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rel := &storage.Relations{}
	for e := range s.follows {
		if e.from == userID {
			rel.Following = append(rel.Following, e.to)
		}
		if e.to == userID {
			rel.Followers = append(rel.Followers, e.from)
		}
	}
	for e := range s.blocks {
		if e.from == userID {
			rel.Blocking = append(rel.Blocking, e.to)
		}
		if e.to == userID {
			rel.BlockedBy = append(rel.BlockedBy, e.from)
		}
	}
	for _, ids := range [][]int64{rel.Following, rel.Followers, rel.Blocking, rel.BlockedBy} {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}
	return rel, nil
}

// === Dataloader Methods ===

func (s *Store) GetUsersByIDs(ctx context.Context, ids []int64) (map[int64]*storage.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make(map[int64]*storage.User, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			cp := *u
			results[id] = &cp
		}
	}
	return results, nil
}

func (s *Store) GetPostsByIDs(ctx context.Context, ids []int64) (map[int64]*storage.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make(map[int64]*storage.Post, len(ids))
	for _, id := range ids {
		if p, ok := s.posts[id]; ok {
			cp := *p
			results[id] = &cp
		}
	}
	return results, nil
}

func (s *Store) GetCommentsByPostIDs(ctx context.Context, postIDs []int64) (map[int64][]*storage.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make(map[int64][]*storage.Comment, len(postIDs))
	for _, c := range s.comments {
		if storage.Contains(postIDs, c.PostID) {
			cp := *c
			results[c.PostID] = append(results[c.PostID], &cp)
		}
	}
	// Dataloader'у нужны отсортированные данные для консистентности
	for _, list := range results {
		sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	}
	return results, nil
}

func (s *Store) GetReactionsByPostIDs(ctx context.Context, postIDs []int64) (map[int64][]*storage.Reaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make(map[int64][]*storage.Reaction, len(postIDs))
	for _, r := range s.reactions {
		if storage.Contains(postIDs, r.PostID) {
			cp := *r
			results[r.PostID] = append(results[r.PostID], &cp)
		}
	}
	for _, list := range results {
		sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	}
	return results, nil
}

func (s *Store) GetRepostsByOriginalIDs(ctx context.Context, originalIDs []int64) (map[int64][]*storage.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make(map[int64][]*storage.Post, len(originalIDs))
	for _, p := range s.posts {
		if p.OriginalPostID != nil && storage.Contains(originalIDs, *p.OriginalPostID) {
			cp := *p
			results[*p.OriginalPostID] = append(results[*p.OriginalPostID], &cp)
		}
	}
	for _, list := range results {
		sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	}
	return results, nil
}
