package relbus

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/UkralStul/testbook/internal/domain"
	"github.com/UkralStul/testbook/internal/logging"
)

// Relay слушает поток /ws/relationships сервера и пересылает в локальную
// шину изменения, инициированные другими пользователями (например, нас
// заблокировали). Собственные действия уже разосланы локально и пропускаются.
type Relay struct {
	url      string
	token    string
	username string
	bus      Bus
	dialer   *websocket.Dialer
	logger   *zap.Logger

	// newBackOff создает политику переподключения; подменяется в тестах.
	newBackOff func() backoff.BackOff
}

func NewRelay(url, token, username string, bus Bus, logger *zap.Logger) *Relay {
	return &Relay{
		url:      url,
		token:    token,
		username: username,
		bus:      bus,
		dialer:   websocket.DefaultDialer,
		logger:   logging.OrNop(logger).Named("relay"),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxInterval = 30 * time.Second
			b.MaxElapsedTime = 0
			return b
		},
	}
}

// Run держит соединение до отмены ctx, переподключаясь с экспоненциальной паузой.
func (r *Relay) Run(ctx context.Context) error {
	policy := backoff.WithContext(r.newBackOff(), ctx)
	err := backoff.RetryNotify(func() error {
		err := r.session(ctx, policy.Reset)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}, policy, func(err error, wait time.Duration) {
		r.logger.Warn("relationship stream disconnected", zap.Error(err), zap.Duration("retry_in", wait))
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// session обслуживает одно соединение. onConnected сбрасывает паузу.
func (r *Relay) session(ctx context.Context, onConnected func()) error {
	header := http.Header{}
	if r.token != "" {
		header.Set("Authorization", "Bearer "+r.token)
	}
	conn, _, err := r.dialer.DialContext(ctx, r.url, header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", r.url, err)
	}
	defer conn.Close()
	onConnected()
	r.logger.Info("relationship stream connected", zap.String("url", r.url))

	// Закрываем соединение при отмене, чтобы разблокировать ReadJSON.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var ev domain.RelationshipEvent
		if err := conn.ReadJSON(&ev); err != nil {
			return fmt.Errorf("read event: %w", err)
		}
		change, ok := r.toChange(ev)
		if !ok {
			continue
		}
		// Ошибки шины уже залогированы внутри Broadcast.
		_ = r.bus.Broadcast(ctx, change)
	}
}

// toChange переводит событие сервера в изменение с точки зрения этого клиента.
func (r *Relay) toChange(ev domain.RelationshipEvent) (domain.RelationshipChange, bool) {
	if ev.Actor == r.username || ev.Target != r.username {
		return domain.RelationshipChange{}, false
	}
	switch ev.Kind {
	case domain.RelationshipBlock:
		return domain.RelationshipChange{Username: ev.Actor, IsBlocked: true}, true
	case domain.RelationshipUnblock, domain.RelationshipUnfollow:
		return domain.RelationshipChange{Username: ev.Actor, IsBlocked: false}, true
	default:
		return domain.RelationshipChange{}, false
	}
}
