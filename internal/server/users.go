package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/UkralStul/testbook/internal/dataloader"
	"github.com/UkralStul/testbook/internal/domain"
	"github.com/UkralStul/testbook/internal/storage"
)

// targetUser загружает пользователя из пути; при ошибке ответ уже записан.
func (s *Server) targetUser(w http.ResponseWriter, r *http.Request) (*storage.User, bool) {
	user, err := s.store.GetUserByUsername(r.Context(), chi.URLParam(r, "username"))
	if errors.Is(err, storage.ErrNotFound) {
		writeDetail(w, http.StatusNotFound, "User not found")
		return nil, false
	}
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}
	return user, true
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := s.targetUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	v, err := s.viewerFor(ctx)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rel, err := s.store.GetRelations(ctx, user.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	posts, err := s.store.CountPosts(ctx, user.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.Profile{
		ID:             user.ID,
		Username:       user.Username,
		DisplayName:    user.DisplayName,
		Bio:            user.Bio,
		ProfilePicture: user.ProfilePicture,
		CreatedAt:      user.CreatedAt,
		FollowersCount: len(rel.Followers),
		FollowingCount: len(rel.Following),
		PostsCount:     posts,
		IsFollowing:    storage.Contains(v.follows, user.ID),
		IsBlocked:      v.hides(user.ID),
	})
}

func (s *Server) userPosts(w http.ResponseWriter, r *http.Request) {
	user, ok := s.targetUser(w, r)
	if !ok {
		return
	}
	args, ok := page(r)
	if !ok {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid pagination")
		return
	}
	ctx := r.Context()
	v, err := s.viewerFor(ctx)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if v.hides(user.ID) {
		writeJSON(w, http.StatusOK, []domain.Post{})
		return
	}
	rows, err := s.store.ListPosts(ctx, storage.PostFilter{AuthorIDs: []int64{user.ID}}, args)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	posts, err := s.formatPosts(ctx, v, rows)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (s *Server) followers(w http.ResponseWriter, r *http.Request) {
	s.userList(w, r, func(rel *storage.Relations) []int64 { return rel.Followers })
}

func (s *Server) following(w http.ResponseWriter, r *http.Request) {
	s.userList(w, r, func(rel *storage.Relations) []int64 { return rel.Following })
}

func (s *Server) userList(w http.ResponseWriter, r *http.Request, pick func(*storage.Relations) []int64) {
	user, ok := s.targetUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	v, err := s.viewerFor(ctx)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rel, err := s.store.GetRelations(ctx, user.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ids := pick(rel)
	users, err := dataloader.For(ctx).Users(ctx, ids)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	items := make([]domain.UserListItem, 0, len(ids))
	for _, id := range ids {
		if u, ok := users[id]; ok {
			items = append(items, formatListItem(u, v))
		}
	}
	writeJSON(w, http.StatusOK, items)
}

// relationshipAction описывает одну из четырех операций над отношением.
type relationshipAction struct {
	kind      domain.RelationshipKind
	self      string
	duplicate string
	apply     func(s *Server, r *http.Request, actorID, targetID int64) error
	message   string
}

var (
	followAction = relationshipAction{
		kind:      domain.RelationshipFollow,
		self:      "Cannot follow yourself",
		duplicate: "Already following this user",
		apply: func(s *Server, r *http.Request, a, t int64) error {
			return s.store.AddFollow(r.Context(), a, t)
		},
		message: "Successfully followed user",
	}
	unfollowAction = relationshipAction{
		kind:      domain.RelationshipUnfollow,
		duplicate: "Not following this user",
		apply: func(s *Server, r *http.Request, a, t int64) error {
			return s.store.RemoveFollow(r.Context(), a, t)
		},
		message: "Successfully unfollowed user",
	}
	blockAction = relationshipAction{
		kind:      domain.RelationshipBlock,
		self:      "Cannot block yourself",
		duplicate: "Already blocking this user",
		apply: func(s *Server, r *http.Request, a, t int64) error {
			return s.store.AddBlock(r.Context(), a, t)
		},
		message: "Successfully blocked user",
	}
	unblockAction = relationshipAction{
		kind:      domain.RelationshipUnblock,
		duplicate: "Not blocking this user",
		apply: func(s *Server, r *http.Request, a, t int64) error {
			return s.store.RemoveBlock(r.Context(), a, t)
		},
		message: "Successfully unblocked user",
	}
)

func (s *Server) follow(w http.ResponseWriter, r *http.Request) { s.relationship(w, r, followAction) }
func (s *Server) unfollow(w http.ResponseWriter, r *http.Request) { s.relationship(w, r, unfollowAction) }
func (s *Server) block(w http.ResponseWriter, r *http.Request) { s.relationship(w, r, blockAction) }
func (s *Server) unblock(w http.ResponseWriter, r *http.Request) { s.relationship(w, r, unblockAction) }

// relationship применяет действие и рассылает событие подписчикам обеих сторон.
func (s *Server) relationship(w http.ResponseWriter, r *http.Request, action relationshipAction) {
	target, ok := s.targetUser(w, r)
	if !ok {
		return
	}
	actor := currentUser(r.Context())
	if actor.ID == target.ID && action.self != "" {
		writeDetail(w, http.StatusBadRequest, action.self)
		return
	}

	err := action.apply(s, r, actor.ID, target.ID)
	if errors.Is(err, storage.ErrConflict) || errors.Is(err, storage.ErrNotFound) {
		writeDetail(w, http.StatusBadRequest, action.duplicate)
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.observer.Notify(domain.RelationshipEvent{
		Actor:     actor.Username,
		Target:    target.Username,
		Kind:      action.kind,
		Timestamp: s.now().UnixMilli(),
	})
	writeJSON(w, http.StatusOK, domain.Message{Message: action.message})
}
