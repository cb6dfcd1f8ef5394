package postgres

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/adepetun22/shopapp/internal/domain"
)

type userRepository struct {
	db *sql.DB
}

// NewUserRepository создаёт PostgreSQL-реализацию UserRepository.
// Корзина хранится JSONB-полем на строке пользователя: корзина — часть
// агрегата, отдельной таблицы у неё нет.
func NewUserRepository(store *Store) domain.UserRepository {
	return &userRepository{db: store.DB()}
}

const userColumns = `
	id, first_name, last_name, email, phone, password_hash, role, cart, created_at, updated_at`

func (r *userRepository) Create(user domain.User) error {
	ctx, cancel := opContext()
	defer cancel()

	cart, err := marshalCart(user.Cart)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		user.ID, user.FirstName, user.LastName, user.Email, user.Phone,
		user.PasswordHash, string(user.Role), cart, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *userRepository) Get(id string) (domain.User, error) {
	return r.getBy(`id = $1`, id)
}

func (r *userRepository) GetByEmail(email string) (domain.User, error) {
	return r.getBy(`LOWER(email) = LOWER($1)`, email)
}

func (r *userRepository) getBy(cond string, arg any) (domain.User, error) {
	ctx, cancel := opContext()
	defer cancel()

	var (
		user domain.User
		role string
		cart []byte
	)
	err := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+cond, arg).Scan(
		&user.ID, &user.FirstName, &user.LastName, &user.Email, &user.Phone,
		&user.PasswordHash, &role, &cart, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("select user: %w", err)
	}
	user.Role = domain.Role(role)
	if err := json.Unmarshal(cart, &user.Cart); err != nil {
		return domain.User{}, fmt.Errorf("decode user cart: %w", err)
	}
	return user, nil
}

func (r *userRepository) Save(user domain.User) error {
	ctx, cancel := opContext()
	defer cancel()

	cart, err := marshalCart(user.Cart)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET first_name = $1, last_name = $2, email = $3, phone = $4,
		    password_hash = $5, role = $6, cart = $7, updated_at = $8
		WHERE id = $9
	`,
		user.FirstName, user.LastName, user.Email, user.Phone,
		user.PasswordHash, string(user.Role), cart, user.UpdatedAt, user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("update user: %w", err)
	}
	return requireAffected(res, domain.ErrUserNotFound)
}

func (r *userRepository) SaveCart(userID string, cart domain.Cart) error {
	ctx, cancel := opContext()
	defer cancel()

	data, err := marshalCart(cart)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET cart = $1, updated_at = $2 WHERE id = $3
	`, data, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("save user cart: %w", err)
	}
	return requireAffected(res, domain.ErrUserNotFound)
}

func marshalCart(cart domain.Cart) ([]byte, error) {
	if cart == nil {
		cart = domain.Cart{}
	}
	data, err := json.Marshal(cart)
	if err != nil {
		return nil, fmt.Errorf("encode user cart: %w", err)
	}
	return data, nil
}

var _ domain.UserRepository = (*userRepository)(nil)
