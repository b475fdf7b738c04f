package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/UkralStul/testbook/internal/domain"
)

// RelationshipObserver хранит каналы подписчиков на события отношений.
type RelationshipObserver struct {
	mu sync.RWMutex
	//          map[username] map[subscriberID] channel
	subs map[string]map[string]chan domain.RelationshipEvent
}

// NewRelationshipObserver - конструктор наблюдателя.
func NewRelationshipObserver() *RelationshipObserver {
	return &RelationshipObserver{
		subs: make(map[string]map[string]chan domain.RelationshipEvent),
	}
}

// Subscribe регистрирует подписчика на события, где username - одна из сторон.
// Подписка снимается при отмене ctx.
func (o *RelationshipObserver) Subscribe(ctx context.Context, username string) <-chan domain.RelationshipEvent {
	subID := uuid.NewString()
	ch := make(chan domain.RelationshipEvent, 8)

	o.mu.Lock()
	if o.subs[username] == nil {
		o.subs[username] = make(map[string]chan domain.RelationshipEvent)
	}
	o.subs[username][subID] = ch
	o.mu.Unlock()

	// Горутина для очистки при отключении клиента
	go func() {
		<-ctx.Done()
		o.mu.Lock()
		if userSubs, ok := o.subs[username]; ok {
			delete(userSubs, subID)
			if len(userSubs) == 0 {
				delete(o.subs, username)
			}
		}
		o.mu.Unlock()
	}()
	return ch
}

// Notify рассылает событие подписчикам актора и цели, не блокируясь на медленных.
func (o *RelationshipObserver) Notify(ev domain.RelationshipEvent) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, name := range []string{ev.Actor, ev.Target} {
		for _, ch := range o.subs[name] {
			select {
			case ch <- ev:
			default:
			}
		}
	}
}

// Subscribers возвращает число активных подписок пользователя.
func (o *RelationshipObserver) Subscribers(username string) int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.subs[username])
}

// relationshipStream отдает события текущего пользователя кадрами JSON.
func (s *Server) relationshipStream(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	events := s.observer.Subscribe(ctx, user.Username)

	// Читаем входящие только чтобы заметить закрытие соединения клиентом.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(10 * time.Second)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			if err := conn.WriteJSON(ev); err != nil {
				s.logger.Debug("relationship stream write failed", zap.Error(err))
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
				return
			}
		}
	}
}
