package memory

import (
	"sort"
	"strings"
	"sync"

	"github.com/adepetun22/shopapp/internal/domain"
)

// productRepositoryInMemory — простая in-memory реализация ProductRepository.
type productRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Product
}

// NewProductRepository возвращает in-memory каталог для локальной разработки и тестов.
func NewProductRepository() domain.ProductRepository {
	return &productRepositoryInMemory{
		items: make(map[string]domain.Product),
	}
}

// Create сохраняет новый продукт, если ID ещё не занят.
func (r *productRepositoryInMemory) Create(product domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[product.ID]; exists {
		return domain.ErrOrderVersionConflict
	}
	r.items[product.ID] = product
	return nil
}

// Get возвращает продукт или ErrProductNotFound, если его нет.
func (r *productRepositoryInMemory) Get(id string) (domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.items[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

// List применяет фильтр, сортировку и пагинацию поверх всего каталога.
func (r *productRepositoryInMemory) List(filter domain.ProductFilter) ([]domain.Product, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]domain.Product, 0, len(r.items))
	for _, product := range r.items {
		if matchesFilter(product, filter) {
			matched = append(matched, product)
		}
	}

	sortProducts(matched, filter.Sort)

	total := len(matched)
	limit := filter.Limit
	if limit <= 0 {
		limit = domain.DefaultPageLimit
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit
	if offset >= total {
		return []domain.Product{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

// Update перезаписывает продукт целиком.
func (r *productRepositoryInMemory) Update(product domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[product.ID]; !ok {
		return domain.ErrProductNotFound
	}
	r.items[product.ID] = product
	return nil
}

// Delete удаляет продукт; удаление отсутствующего — ErrProductNotFound.
func (r *productRepositoryInMemory) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.ErrProductNotFound
	}
	delete(r.items, id)
	return nil
}

// Categories возвращает отсортированный список уникальных категорий.
func (r *productRepositoryInMemory) Categories() ([]string, error) {
	return r.distinct(func(p domain.Product) string { return p.Category })
}

// Brands возвращает отсортированный список уникальных брендов без пустых.
func (r *productRepositoryInMemory) Brands() ([]string, error) {
	return r.distinct(func(p domain.Product) string { return p.Brand })
}

func (r *productRepositoryInMemory) distinct(field func(domain.Product) string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, product := range r.items {
		if v := field(product); v != "" {
			seen[v] = struct{}{}
		}
	}
	result := make([]string, 0, len(seen))
	for v := range seen {
		result = append(result, v)
	}
	sort.Strings(result)
	return result, nil
}

// DecrementStock атомарно уменьшает сток при условии stock >= qty.
// Условие и запись выполняются под одним мьютексом, поэтому два
// конкурентных checkout не могут продать один и тот же остаток.
func (r *productRepositoryInMemory) DecrementStock(id string, qty int) error {
	if qty <= 0 {
		return domain.ErrQuantityInvalid
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.items[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	if product.Stock < qty {
		return domain.NewInsufficientStock(product.Name)
	}
	product.Stock -= qty
	r.items[id] = product
	return nil
}

// IncrementStock возвращает сток обратно (компенсация).
func (r *productRepositoryInMemory) IncrementStock(id string, qty int) error {
	if qty <= 0 {
		return domain.ErrQuantityInvalid
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.items[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	product.Stock += qty
	r.items[id] = product
	return nil
}

// SetRating обновляет агрегированную оценку продукта.
func (r *productRepositoryInMemory) SetRating(id string, rating domain.Rating) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.items[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	product.Rating = rating
	r.items[id] = product
	return nil
}

func matchesFilter(p domain.Product, f domain.ProductFilter) bool {
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.Brand != "" && p.Brand != f.Brand {
		return false
	}
	if f.MinPrice > 0 && p.Price < f.MinPrice {
		return false
	}
	if f.MaxPrice > 0 && p.Price > f.MaxPrice {
		return false
	}
	if f.Featured && !p.IsFeatured {
		return false
	}
	if f.OnSale && !p.IsOnSale {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(p.Name), needle) &&
			!strings.Contains(strings.ToLower(p.Description), needle) {
			return false
		}
	}
	return true
}

func sortProducts(products []domain.Product, order domain.ProductSort) {
	sort.Slice(products, func(i, j int) bool {
		a, b := products[i], products[j]
		switch order {
		case domain.SortPriceAsc:
			if a.Price != b.Price {
				return a.Price < b.Price
			}
		case domain.SortPriceDesc:
			if a.Price != b.Price {
				return a.Price > b.Price
			}
		case domain.SortRating:
			if a.Rating.Average != b.Rating.Average {
				return a.Rating.Average > b.Rating.Average
			}
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		}
		return a.ID > b.ID
	})
}

var _ domain.ProductRepository = (*productRepositoryInMemory)(nil)
