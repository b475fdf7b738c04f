package dataloader

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/graph-gophers/dataloader"
	"github.com/hashicorp/go-multierror"

	"github.com/UkralStul/testbook/internal/storage"
)

type contextKey string

const key = contextKey("dataloaders")

// Loaders содержит все дата-лоадеры приложения.
// Живут в пределах одного запроса, поэтому кэш не устаревает между запросами.
type Loaders struct {
	UserByID            *dataloader.Loader
	PostByID            *dataloader.Loader
	CommentsByPostID    *dataloader.Loader
	ReactionsByPostID   *dataloader.Loader
	RepostsByOriginalID *dataloader.Loader
}

// New создает набор лоадеров поверх хранилища.
func New(store storage.Storage) *Loaders {
	return &Loaders{
		UserByID:            newLoader(store.GetUsersByIDs),
		PostByID:            newLoader(store.GetPostsByIDs),
		CommentsByPostID:    newLoader(store.GetCommentsByPostIDs),
		ReactionsByPostID:   newLoader(store.GetReactionsByPostIDs),
		RepostsByOriginalID: newLoader(store.GetRepostsByOriginalIDs),
	}
}

// Middleware для внедрения лоадеров в контекст запроса.
func Middleware(store storage.Storage) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), key, New(store))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// For извлекает лоадеры из контекста.
func For(ctx context.Context) *Loaders {
	return ctx.Value(key).(*Loaders)
}

// WithLoaders кладет готовые лоадеры в контекст (для кода вне HTTP-запроса).
func WithLoaders(ctx context.Context, l *Loaders) context.Context {
	return context.WithValue(ctx, key, l)
}

// newLoader оборачивает batch-метод хранилища: один вызов на пачку ключей.
func newLoader[V any](fetch func(context.Context, []int64) (map[int64]V, error)) *dataloader.Loader {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		results := make([]*dataloader.Result, len(keys))
		ids := make([]int64, len(keys))
		for i, k := range keys {
			id, err := strconv.ParseInt(k.String(), 10, 64)
			if err != nil {
				for j := range results {
					results[j] = &dataloader.Result{Error: fmt.Errorf("bad key %q: %w", k.String(), err)}
				}
				return results
			}
			ids[i] = id
		}

		// Вызываем метод хранилища, который делает ОДИН запрос к БД
		found, err := fetch(ctx, ids)
		if err != nil {
			// В случае ошибки, возвращаем ее для всех ключей
			for i := range results {
				results[i] = &dataloader.Result{Error: err}
			}
			return results
		}

		// Формируем результат в том же порядке, что и ключи
		for i, id := range ids {
			results[i] = &dataloader.Result{Data: found[id]}
		}
		return results
	}
	return dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(time.Millisecond))
}

func keysOf(ids []int64) dataloader.Keys {
	keys := make(dataloader.Keys, len(ids))
	for i, id := range ids {
		keys[i] = dataloader.StringKey(strconv.FormatInt(id, 10))
	}
	return keys
}

// loadMany загружает значения пачкой; отсутствующие ключи в результат не попадают.
func loadMany[V any](ctx context.Context, l *dataloader.Loader, ids []int64) (map[int64]V, error) {
	out := make(map[int64]V, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	data, errs := l.LoadMany(ctx, keysOf(ids))()
	var result *multierror.Error
	for _, err := range errs {
		if err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	for i, id := range ids {
		v, ok := data[i].(V)
		if !ok {
			continue
		}
		out[id] = v
	}
	return out, nil
}

func (l *Loaders) Users(ctx context.Context, ids []int64) (map[int64]*storage.User, error) {
	users, err := loadMany[*storage.User](ctx, l.UserByID, ids)
	if err != nil {
		return nil, err
	}
	for id, u := range users {
		if u == nil {
			delete(users, id)
		}
	}
	return users, nil
}

func (l *Loaders) Posts(ctx context.Context, ids []int64) (map[int64]*storage.Post, error) {
	posts, err := loadMany[*storage.Post](ctx, l.PostByID, ids)
	if err != nil {
		return nil, err
	}
	for id, p := range posts {
		if p == nil {
			delete(posts, id)
		}
	}
	return posts, nil
}

func (l *Loaders) Comments(ctx context.Context, postIDs []int64) (map[int64][]*storage.Comment, error) {
	return loadMany[[]*storage.Comment](ctx, l.CommentsByPostID, postIDs)
}

func (l *Loaders) Reactions(ctx context.Context, postIDs []int64) (map[int64][]*storage.Reaction, error) {
	return loadMany[[]*storage.Reaction](ctx, l.ReactionsByPostID, postIDs)
}

func (l *Loaders) Reposts(ctx context.Context, originalIDs []int64) (map[int64][]*storage.Post, error) {
	return loadMany[[]*storage.Post](ctx, l.RepostsByOriginalID, originalIDs)
}
