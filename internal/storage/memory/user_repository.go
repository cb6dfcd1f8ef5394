package memory

import (
	"strings"
	"sync"

	"github.com/adepetun22/shopapp/internal/domain"
)

// userRepositoryInMemory — in-memory реализация UserRepository.
// Email сравнивается без учёта регистра.
type userRepositoryInMemory struct {
	mu      sync.RWMutex
	items   map[string]domain.User
	byEmail map[string]string // lowercase email → user id
}

// NewUserRepository возвращает in-memory хранилище пользователей.
func NewUserRepository() domain.UserRepository {
	return &userRepositoryInMemory{
		items:   make(map[string]domain.User),
		byEmail: make(map[string]string),
	}
}

// Create сохраняет нового пользователя; ErrEmailTaken при занятом email.
func (r *userRepositoryInMemory) Create(user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := strings.ToLower(user.Email)
	if _, taken := r.byEmail[email]; taken {
		return domain.ErrEmailTaken
	}
	r.items[user.ID] = cloneUser(user)
	r.byEmail[email] = user.ID
	return nil
}

// Get возвращает пользователя или ErrUserNotFound.
func (r *userRepositoryInMemory) Get(id string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.items[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return cloneUser(user), nil
}

// GetByEmail возвращает пользователя по email или ErrUserNotFound.
func (r *userRepositoryInMemory) GetByEmail(email string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return cloneUser(r.items[id]), nil
}

// Save перезаписывает пользователя целиком.
func (r *userRepositoryInMemory) Save(user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[user.ID]
	if !ok {
		return domain.ErrUserNotFound
	}
	if !strings.EqualFold(current.Email, user.Email) {
		delete(r.byEmail, strings.ToLower(current.Email))
		r.byEmail[strings.ToLower(user.Email)] = user.ID
	}
	r.items[user.ID] = cloneUser(user)
	return nil
}

// SaveCart сохраняет корзину, не трогая остальные поля пользователя.
func (r *userRepositoryInMemory) SaveCart(userID string, cart domain.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.items[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	user.Cart = cart.Clone()
	r.items[userID] = user
	return nil
}

// cloneUser копирует пользователя вместе с корзиной, чтобы избежать
// непредсказуемых мутаций извне.
func cloneUser(src domain.User) domain.User {
	dst := src
	dst.Cart = src.Cart.Clone()
	return dst
}

var _ domain.UserRepository = (*userRepositoryInMemory)(nil)
