package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/adepetun22/shopapp/internal/domain"
)

const (
	outboxStatePending = "pending"
	outboxStateSent    = "sent"
	outboxStateFailed  = "failed"

	defaultPullLimit = 100
)

// outboxEntry — сообщение outbox вместе со служебными полями доставки.
type outboxEntry struct {
	message    domain.OutboxMessage
	state      string
	attempts   int
	enqueuedAt time.Time
	updatedAt  time.Time
}

// outboxRepo — in-memory вариант transactional outbox для разработки
// и тестов без PostgreSQL.
type outboxRepo struct {
	mu      sync.RWMutex
	entries map[string]*outboxEntry
}

// NewOutboxRepository создаёт in-memory реализацию outbox.
func NewOutboxRepository() domain.OutboxRepository {
	return &outboxRepo{entries: make(map[string]*outboxEntry)}
}

// Enqueue ставит событие в очередь на публикацию. Пустой ID заменяется
// сгенерированным UUID.
func (r *outboxRepo) Enqueue(msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	now := time.Now().UTC()

	r.mu.Lock()
	r.entries[msg.ID] = &outboxEntry{
		message:    msg,
		state:      outboxStatePending,
		enqueuedAt: now,
		updatedAt:  now,
	}
	r.mu.Unlock()

	return msg, nil
}

// pendingEntries собирает необработанные записи в порядке постановки.
// Вызывается под блокировкой чтения.
func (r *outboxRepo) pendingEntries() []*outboxEntry {
	out := make([]*outboxEntry, 0, len(r.entries))
	for _, e := range r.entries {
		if e.state == outboxStatePending {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].enqueuedAt.Equal(out[j].enqueuedAt) {
			return out[i].enqueuedAt.Before(out[j].enqueuedAt)
		}
		return out[i].message.ID < out[j].message.ID
	})
	return out
}

// PullPending возвращает до limit неопубликованных сообщений, старые первыми.
func (r *outboxRepo) PullPending(limit int) ([]domain.OutboxMessage, error) {
	if limit <= 0 {
		limit = defaultPullLimit
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	pending := r.pendingEntries()
	if len(pending) > limit {
		pending = pending[:limit]
	}

	batch := make([]domain.OutboxMessage, 0, len(pending))
	for _, e := range pending {
		batch = append(batch, e.message)
	}
	return batch, nil
}

// Stats возвращает размер backlog и возраст самой старой pending-записи.
func (r *outboxRepo) Stats() (domain.OutboxStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stats domain.OutboxStats
	for _, e := range r.entries {
		if e.state != outboxStatePending {
			continue
		}
		stats.PendingCount++
		if stats.OldestPendingAt.IsZero() || e.enqueuedAt.Before(stats.OldestPendingAt) {
			stats.OldestPendingAt = e.enqueuedAt
		}
	}
	return stats, nil
}

// MarkSent помечает событие опубликованным.
func (r *outboxRepo) MarkSent(id string) error {
	return r.transition(id, outboxStateSent)
}

// MarkFailed помечает событие как исчерпавшее попытки публикации.
func (r *outboxRepo) MarkFailed(id string) error {
	return r.transition(id, outboxStateFailed)
}

func (r *outboxRepo) transition(id, state string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok {
		return domain.ErrOutboxPublish
	}
	entry.state = state
	entry.attempts++
	entry.updatedAt = time.Now().UTC()
	return nil
}

var _ domain.OutboxRepository = (*outboxRepo)(nil)
