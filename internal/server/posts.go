package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/UkralStul/testbook/internal/domain"
	"github.com/UkralStul/testbook/internal/storage"
)

func (s *Server) createPost(w http.ResponseWriter, r *http.Request) {
	var in domain.NewPost
	if err := decodeBody(r, &in); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	if strings.TrimSpace(in.Content) == "" {
		writeDetail(w, http.StatusBadRequest, "Post content cannot be empty")
		return
	}
	if err := domain.ValidateMedia(in.ImageURL, in.VideoURL); err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	user := currentUser(ctx)
	row, err := s.store.CreatePost(ctx, &storage.Post{
		AuthorID: user.ID,
		Content:  in.Content,
		ImageURL: in.ImageURL,
		VideoURL: in.VideoURL,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondPost(w, r, http.StatusCreated, row)
}

// ownPost загружает пост и проверяет, что его автор - текущий пользователь.
func (s *Server) ownPost(w http.ResponseWriter, r *http.Request, verb string) (*storage.Post, bool) {
	id, ok := pathID(r, "postID")
	if !ok {
		writeDetail(w, http.StatusNotFound, "Post not found")
		return nil, false
	}
	row, err := s.store.GetPostByID(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeDetail(w, http.StatusNotFound, "Post not found")
		return nil, false
	}
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}
	if row.AuthorID != currentUser(r.Context()).ID {
		writeDetail(w, http.StatusForbidden, "Not authorized to "+verb+" this post")
		return nil, false
	}
	return row, true
}

func (s *Server) updatePost(w http.ResponseWriter, r *http.Request) {
	row, ok := s.ownPost(w, r, "update")
	if !ok {
		return
	}
	var in domain.NewPost
	if err := decodeBody(r, &in); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	if strings.TrimSpace(in.Content) == "" {
		writeDetail(w, http.StatusBadRequest, "Post content cannot be empty")
		return
	}

	// Отсутствующее медиа в запросе оставляет прежнее.
	row.Content = in.Content
	if in.ImageURL != nil {
		row.ImageURL = in.ImageURL
	}
	if in.VideoURL != nil {
		row.VideoURL = in.VideoURL
	}
	if err := domain.ValidateMedia(row.ImageURL, row.VideoURL); err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := s.store.UpdatePost(r.Context(), row)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondPost(w, r, http.StatusOK, updated)
}

func (s *Server) deletePost(w http.ResponseWriter, r *http.Request) {
	row, ok := s.ownPost(w, r, "delete")
	if !ok {
		return
	}
	if err := s.store.DeletePost(r.Context(), row.ID); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getPost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "postID")
	if !ok {
		writeDetail(w, http.StatusNotFound, "Post not found")
		return
	}
	ctx := r.Context()
	row, err := s.store.GetPostByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		writeDetail(w, http.StatusNotFound, "Post not found")
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	v, err := s.viewerFor(ctx)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if v.hides(row.AuthorID) {
		writeDetail(w, http.StatusForbidden, "Cannot view this post")
		return
	}
	post, err := s.formatDetail(ctx, v, row)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) createRepost(w http.ResponseWriter, r *http.Request) {
	var in domain.NewRepost
	if err := decodeBody(r, &in); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	ctx := r.Context()
	user := currentUser(ctx)

	target, err := s.store.GetPostByID(ctx, in.OriginalPostID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeDetail(w, http.StatusNotFound, "Original post not found")
			return
		}
		s.fail(w, r, err)
		return
	}
	// Репост обертки относится к исходному посту.
	if target.IsRepost && target.OriginalPostID != nil {
		in.OriginalPostID = *target.OriginalPostID
	}
	_, err = s.store.FindRepost(ctx, user.ID, in.OriginalPostID)
	switch {
	case err == nil:
		writeDetail(w, http.StatusBadRequest, "Already reposted this post")
		return
	case !errors.Is(err, storage.ErrNotFound):
		s.fail(w, r, err)
		return
	}

	originalID := in.OriginalPostID
	row, err := s.store.CreatePost(ctx, &storage.Post{
		AuthorID:       user.ID,
		Content:        in.Content,
		IsRepost:       true,
		OriginalPostID: &originalID,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondPost(w, r, http.StatusOK, row)
}

func (s *Server) deleteRepost(w http.ResponseWriter, r *http.Request) {
	originalID, ok := pathID(r, "postID")
	if !ok {
		writeDetail(w, http.StatusNotFound, "Repost not found")
		return
	}
	ctx := r.Context()
	repost, err := s.store.FindRepost(ctx, currentUser(ctx).ID, originalID)
	if errors.Is(err, storage.ErrNotFound) {
		writeDetail(w, http.StatusNotFound, "Repost not found")
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.store.DeletePost(ctx, repost.ID); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) addComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "postID")
	if !ok {
		writeDetail(w, http.StatusNotFound, "Post not found")
		return
	}
	var in domain.NewComment
	if err := decodeBody(r, &in); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	if strings.TrimSpace(in.Content) == "" {
		writeDetail(w, http.StatusBadRequest, "Comment content cannot be empty")
		return
	}
	ctx := r.Context()
	user := currentUser(ctx)
	c, err := s.store.CreateComment(ctx, &storage.Comment{PostID: id, AuthorID: user.ID, Content: in.Content})
	if errors.Is(err, storage.ErrNotFound) {
		writeDetail(w, http.StatusNotFound, "Post not found")
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, formatComment(c, user))
}

func (s *Server) addReaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "postID")
	if !ok {
		writeDetail(w, http.StatusNotFound, "Post not found")
		return
	}
	var in struct {
		ReactionType string `json:"reaction_type"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	t, err := domain.ParseReactionType(in.ReactionType)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid reaction type")
		return
	}
	ctx := r.Context()
	_, err = s.store.UpsertReaction(ctx, &storage.Reaction{PostID: id, UserID: currentUser(ctx).ID, ReactionType: string(t)})
	if errors.Is(err, storage.ErrNotFound) {
		writeDetail(w, http.StatusNotFound, "Post not found")
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondPostByID(w, r, http.StatusCreated, id)
}

func (s *Server) removeReaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "postID")
	if !ok {
		writeDetail(w, http.StatusNotFound, "Post not found")
		return
	}
	ctx := r.Context()
	if _, err := s.store.GetPostByID(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeDetail(w, http.StatusNotFound, "Post not found")
			return
		}
		s.fail(w, r, err)
		return
	}
	err := s.store.DeleteReaction(ctx, id, currentUser(ctx).ID)
	if errors.Is(err, storage.ErrNotFound) {
		writeDetail(w, http.StatusNotFound, "Reaction not found")
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondPostByID(w, r, http.StatusOK, id)
}

func (s *Server) respondPostByID(w http.ResponseWriter, r *http.Request, status int, id int64) {
	row, err := s.store.GetPostByID(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondPost(w, r, status, row)
}

func (s *Server) respondPost(w http.ResponseWriter, r *http.Request, status int, row *storage.Post) {
	ctx := r.Context()
	v, err := s.viewerFor(ctx)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	post, err := s.formatPost(ctx, v, row)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, status, post)
}
