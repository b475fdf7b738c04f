// Package relbus рассылает изменения блокировок и подписок между
// представлениями, у которых нет общего состояния в памяти.
//
// Событие записывается двумя путями: отметка времени в долговременном
// хранилище (для представлений, которые сейчас не смонтированы) и сообщение
// в pub/sub процесса (для смонтированных). Оба пути работают по принципу
// "как получится": ошибки логируются и не роняют приложение.
package relbus

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/UkralStul/testbook/internal/domain"
	"github.com/UkralStul/testbook/internal/logging"
)

const (
	// StorageKey - ключ отметки времени последнего изменения.
	StorageKey = "testbook:last-block-change"
	// Topic - тип события внутри процесса.
	Topic = "testbook:block-status-changed"
)

// Bus - контракт шины для представлений; в тестах подменяется фейком.
type Bus interface {
	Broadcast(ctx context.Context, change domain.RelationshipChange) error
	Subscribe(ctx context.Context) (<-chan domain.RelationshipChange, error)
	LastChangeTimestamp(ctx context.Context) (int64, error)
}

// PubSubBus - реализация Bus поверх gochannel из watermill.
type PubSubBus struct {
	store  TimestampStore
	pubsub *gochannel.GoChannel
	logger *zap.Logger
	now    func() time.Time

	// stampMu упорядочивает чтение-запись отметки внутри процесса.
	stampMu sync.Mutex
}

var _ Bus = (*PubSubBus)(nil)

type Option func(*PubSubBus)

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(b *PubSubBus) { b.now = now }
}

func New(store TimestampStore, logger *zap.Logger, opts ...Option) *PubSubBus {
	logger = logging.OrNop(logger).Named("relbus")
	b := &PubSubBus{
		store: store,
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 16,
		}, logging.NewWatermillAdapter(logger)),
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Broadcast записывает отметку времени и публикует событие.
// Ошибка одного шага не отменяет другой; обе собираются в результат.
func (b *PubSubBus) Broadcast(ctx context.Context, change domain.RelationshipChange) error {
	var result *multierror.Error

	ts, err := b.stamp(ctx)
	if err != nil {
		b.logger.Warn("failed to record relationship change timestamp", zap.Error(err))
		result = multierror.Append(result, fmt.Errorf("record timestamp: %w", err))
	}
	change.Timestamp = ts

	payload, err := json.Marshal(change)
	if err != nil {
		return multierror.Append(result, fmt.Errorf("marshal change: %w", err)).ErrorOrNil()
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := b.pubsub.Publish(Topic, msg); err != nil {
		b.logger.Warn("failed to publish relationship change", zap.Error(err))
		result = multierror.Append(result, fmt.Errorf("publish: %w", err))
	}

	b.logger.Debug("relationship change broadcast",
		zap.String("username", change.Username),
		zap.Bool("is_blocked", change.IsBlocked),
		zap.Int64("timestamp", ts))
	return result.ErrorOrNil()
}

// stamp записывает отметку строго больше предыдущей.
// Если запись не удалась, возвращается вычисленное время и ошибка.
func (b *PubSubBus) stamp(ctx context.Context) (int64, error) {
	b.stampMu.Lock()
	defer b.stampMu.Unlock()

	now := b.now().UnixMilli()
	last, err := b.readTimestamp(ctx)
	if err != nil {
		// Нечитаемое значение перезаписываем.
		b.logger.Warn("ignoring stored relationship timestamp", zap.Error(err))
		last = 0
	}
	if now <= last {
		now = last + 1
	}
	if err := b.store.Set(ctx, StorageKey, strconv.FormatInt(now, 10)); err != nil {
		return now, err
	}
	return now, nil
}

// Subscribe возвращает канал событий; он закрывается при отмене ctx.
func (b *PubSubBus) Subscribe(ctx context.Context) (<-chan domain.RelationshipChange, error) {
	messages, err := b.pubsub.Subscribe(ctx, Topic)
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	out := make(chan domain.RelationshipChange, 1)
	go func() {
		defer close(out)
		for msg := range messages {
			var change domain.RelationshipChange
			err := json.Unmarshal(msg.Payload, &change)
			msg.Ack()
			if err != nil {
				b.logger.Warn("dropping malformed relationship change", zap.Error(err))
				continue
			}
			select {
			case out <- change:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// LastChangeTimestamp читает отметку. При ошибке чтения возвращает 0,
// то есть "изменений не было", и саму ошибку для логов вызывающего.
func (b *PubSubBus) LastChangeTimestamp(ctx context.Context) (int64, error) {
	ts, err := b.readTimestamp(ctx)
	if err != nil {
		b.logger.Warn("failed to read relationship change timestamp", zap.Error(err))
		return 0, err
	}
	return ts, nil
}

func (b *PubSubBus) readTimestamp(ctx context.Context) (int64, error) {
	raw, err := b.store.Get(ctx, StorageKey)
	if err != nil {
		return 0, err
	}
	if raw == "" {
		return 0, nil
	}
	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse stored timestamp %q: %w", raw, err)
	}
	return ts, nil
}

func (b *PubSubBus) Close() error {
	return b.pubsub.Close()
}
