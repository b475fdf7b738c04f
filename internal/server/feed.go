package server

import (
	"net/http"

	"github.com/UkralStul/testbook/internal/storage"
)

func (s *Server) allFeed(w http.ResponseWriter, r *http.Request) {
	s.feed(w, r, false)
}

func (s *Server) followingFeed(w http.ResponseWriter, r *http.Request) {
	s.feed(w, r, true)
}

// feed отдает ленту от новых к старым без авторов, заблокированных в любую сторону.
// Лента подписок пуста, если пользователь ни на кого не подписан.
func (s *Server) feed(w http.ResponseWriter, r *http.Request, followingOnly bool) {
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
	filter := storage.PostFilter{ExcludeAuthorIDs: v.hidden}
	if followingOnly {
		filter.AuthorIDs = append([]int64{}, v.follows...)
	}
	rows, err := s.store.ListPosts(ctx, filter, args)
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
