// Package server - dev-бэкенд Testbook: REST API поверх storage.Storage
// и поток изменений отношений по websocket.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/UkralStul/testbook/internal/dataloader"
	"github.com/UkralStul/testbook/internal/logging"
	"github.com/UkralStul/testbook/internal/storage"
)

// Server содержит зависимости обработчиков.
type Server struct {
	store    storage.Storage
	observer *RelationshipObserver
	logger   *zap.Logger
	upgrader websocket.Upgrader
	now      func() time.Time
}

func New(store storage.Storage, logger *zap.Logger) *Server {
	return &Server{
		store:    store,
		observer: NewRelationshipObserver(),
		logger:   logging.OrNop(logger).Named("server"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		now: time.Now,
	}
}

// Observer отдает наблюдателя отношений (для тестов и встраивания).
func (s *Server) Observer() *RelationshipObserver { return s.observer }

// Router собирает маршруты под префиксом /api.
// requestLog включает middleware.Logger.
func (s *Server) Router(requestLog bool) http.Handler {
	router := chi.NewRouter()
	if requestLog {
		router.Use(middleware.Logger)
	}
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	router.Route("/api", func(r chi.Router) {
		r.Use(s.authenticate)
		r.Use(dataloader.Middleware(s.store))

		r.Route("/posts", func(r chi.Router) {
			r.Post("/", s.createPost)
			r.Post("/repost", s.createRepost)
			r.Delete("/repost/{postID}", s.deleteRepost)
			r.Get("/{postID}", s.getPost)
			r.Put("/{postID}", s.updatePost)
			r.Delete("/{postID}", s.deletePost)
			r.Post("/{postID}/comments", s.addComment)
			r.Post("/{postID}/reactions", s.addReaction)
			r.Delete("/{postID}/reactions", s.removeReaction)
		})

		r.Get("/feed/all", s.allFeed)
		r.Get("/feed/following", s.followingFeed)

		r.Route("/users/{username}", func(r chi.Router) {
			r.Get("/", s.getProfile)
			r.Get("/posts", s.userPosts)
			r.Get("/followers", s.followers)
			r.Get("/following", s.following)
			r.Post("/follow", s.follow)
			r.Delete("/follow", s.unfollow)
			r.Post("/block", s.block)
			r.Delete("/block", s.unblock)
		})

		r.Get("/ws/relationships", s.relationshipStream)
	})
	return router
}
