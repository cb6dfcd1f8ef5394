package domain

// ProductSort — порядок сортировки каталога.
type ProductSort string

const (
	SortNewest    ProductSort = "newest"
	SortPriceAsc  ProductSort = "price-asc"
	SortPriceDesc ProductSort = "price-desc"
	SortRating    ProductSort = "rating"
)

// DefaultPageLimit — размер страницы каталога по умолчанию.
const DefaultPageLimit = 12

// ProductFilter описывает выборку каталога: фильтры, сортировку и пагинацию.
type ProductFilter struct {
	Category string
	Brand    string
	MinPrice float64
	MaxPrice float64
	// Search ищет подстроку в имени и описании без учёта регистра.
	Search   string
	Featured bool
	OnSale   bool
	Sort     ProductSort
	// Page нумеруется с 1; Limit <= 0 трактуется как значение по умолчанию.
	Page  int
	Limit int
}

// ProductRepository описывает требования к хранилищу каталога.
type ProductRepository interface {
	// Create сохраняет новый продукт.
	Create(product Product) error
	// Get возвращает продукт по идентификатору или ErrProductNotFound.
	Get(id string) (Product, error)
	// List возвращает страницу каталога и общее число записей под фильтром.
	List(filter ProductFilter) ([]Product, int, error)
	// Update перезаписывает продукт целиком.
	Update(product Product) error
	// Delete удаляет продукт.
	Delete(id string) error
	// Categories возвращает уникальные категории каталога.
	Categories() ([]string, error)
	// Brands возвращает уникальные бренды каталога (без пустых).
	Brands() ([]string, error)
	// DecrementStock атомарно уменьшает сток при условии stock >= qty.
	// Возвращает ErrInsufficientStock, если условие не выполняется:
	// это примитив "decrement-if-available" для фазы commit в checkout.
	DecrementStock(id string, qty int) error
	// IncrementStock возвращает сток обратно (компенсация неудачного commit).
	IncrementStock(id string, qty int) error
	// SetRating обновляет агрегированную оценку продукта.
	SetRating(id string, rating Rating) error
}

// ReviewRepository хранит отзывы по продуктам.
type ReviewRepository interface {
	// Add сохраняет отзыв; ErrAlreadyReviewed при дубликате (product, user).
	Add(review Review) error
	// ListByProduct возвращает отзывы продукта в порядке добавления.
	ListByProduct(productID string) ([]Review, error)
	// HasReview сообщает, оставлял ли пользователь отзыв на продукт.
	HasReview(productID, userID string) (bool, error)
}

// UserRepository описывает хранилище пользователей (и их корзин).
type UserRepository interface {
	// Create сохраняет нового пользователя; ErrEmailTaken при занятом email.
	Create(user User) error
	// Get возвращает пользователя по идентификатору или ErrUserNotFound.
	Get(id string) (User, error)
	// GetByEmail возвращает пользователя по email или ErrUserNotFound.
	GetByEmail(email string) (User, error)
	// Save перезаписывает пользователя целиком.
	Save(user User) error
	// SaveCart сохраняет корзину пользователя, не трогая остальные поля.
	SaveCart(userID string, cart Cart) error
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ. Возвращает ошибку, если ID уже занят.
	Create(order Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound.
	Get(id string) (Order, error)
	// ListByUser возвращает заказы пользователя, новые первыми;
	// limit > 0 ограничивает выборку.
	ListByUser(userID string, limit int) ([]Order, error)
	// Save применяет обновления к заказу с учётом optimistic locking.
	// Items заказа неизменяемы и реализациями не перезаписываются.
	Save(order Order) error
	// Delete удаляет заказ.
	Delete(id string) error
}
