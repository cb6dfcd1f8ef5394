package memory

import (
	"sort"
	"sync"

	"github.com/adepetun22/shopapp/internal/domain"
)

// reviewRepositoryInMemory — in-memory хранилище отзывов.
// Ключ дубликатов — пара (productID, userID).
type reviewRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string][]domain.Review // productID → reviews
}

// NewReviewRepository возвращает in-memory хранилище отзывов.
func NewReviewRepository() domain.ReviewRepository {
	return &reviewRepositoryInMemory{
		items: make(map[string][]domain.Review),
	}
}

// Add сохраняет отзыв; ErrAlreadyReviewed при дубликате (product, user).
func (r *reviewRepositoryInMemory) Add(review domain.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items[review.ProductID] {
		if existing.UserID == review.UserID {
			return domain.ErrAlreadyReviewed
		}
	}
	r.items[review.ProductID] = append(r.items[review.ProductID], review)
	return nil
}

// ListByProduct возвращает отзывы продукта в порядке добавления.
func (r *reviewRepositoryInMemory) ListByProduct(productID string) ([]domain.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reviews := r.items[productID]
	result := append([]domain.Review(nil), reviews...)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// HasReview сообщает, оставлял ли пользователь отзыв на продукт.
func (r *reviewRepositoryInMemory) HasReview(productID, userID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, review := range r.items[productID] {
		if review.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

var _ domain.ReviewRepository = (*reviewRepositoryInMemory)(nil)
