package memory

import (
	"sort"
	"sync"

	"github.com/adepetun22/shopapp/internal/domain"
)

// orderRepo держит заказы в памяти. Снаружи отдаются только копии,
// чтобы вызывающий код не мог мутировать хранимое состояние.
type orderRepo struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
}

// NewOrderRepository возвращает in-memory репозиторий заказов для
// локальной разработки и тестов.
func NewOrderRepository() domain.OrderRepository {
	return &orderRepo{orders: make(map[string]domain.Order)}
}

// Create сохраняет новый заказ. Повторный ID считается конфликтом версий.
func (r *orderRepo) Create(order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.ID]; exists {
		return domain.ErrOrderVersionConflict
	}
	r.orders[order.ID] = copyOrder(order)
	return nil
}

// Get возвращает заказ или ErrOrderNotFound.
func (r *orderRepo) Get(id string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return copyOrder(order), nil
}

// ListByUser возвращает заказы пользователя, новые первыми.
// limit > 0 ограничивает выборку.
func (r *orderRepo) ListByUser(userID string, limit int) ([]domain.Order, error) {
	r.mu.RLock()
	matched := make([]domain.Order, 0, len(r.orders))
	for _, order := range r.orders {
		if order.UserID == userID {
			matched = append(matched, copyOrder(order))
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// Save перезаписывает метаданные заказа с optimistic locking по Version.
// Items неизменяемы: сохранённый снимок остаётся тем, что был при Create.
func (r *orderRepo) Save(order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.orders[order.ID]
	switch {
	case !ok:
		return domain.ErrOrderNotFound
	case stored.Version != order.Version:
		return domain.ErrOrderVersionConflict
	}

	order.Items = stored.Items
	order.Version++
	r.orders[order.ID] = copyOrder(order)
	return nil
}

// Delete удаляет заказ.
func (r *orderRepo) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[id]; !ok {
		return domain.ErrOrderNotFound
	}
	delete(r.orders, id)
	return nil
}

func copyOrder(src domain.Order) domain.Order {
	dst := src
	dst.Items = append([]domain.OrderItem(nil), src.Items...)
	return dst
}

var _ domain.OrderRepository = (*orderRepo)(nil)
