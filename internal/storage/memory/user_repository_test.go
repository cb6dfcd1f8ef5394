package memory_test

import (
	"errors"
	"testing"

	"github.com/adepetun22/shopapp/internal/domain"
	"github.com/adepetun22/shopapp/internal/storage/memory"
)

func newUser(id, email string) domain.User {
	return domain.User{
		ID:           id,
		FirstName:    "John",
		LastName:     "Doe",
		Email:        email,
		PasswordHash: "$2a$10$hash",
		Role:         domain.RoleCustomer,
	}
}

func TestUserRepository_CreateGet(t *testing.T) {
	repo := memory.NewUserRepository()
	user := newUser("user-1", "john@example.com")

	if err := repo.Create(user); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	stored, err := repo.Get(user.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.Email != user.Email {
		t.Fatalf("email = %s, want %s", stored.Email, user.Email)
	}

	if _, err := repo.Get("missing"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserRepository_EmailTaken(t *testing.T) {
	repo := memory.NewUserRepository()
	if err := repo.Create(newUser("user-1", "john@example.com")); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Email занят независимо от регистра
	err := repo.Create(newUser("user-2", "John@Example.COM"))
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestUserRepository_GetByEmailCaseInsensitive(t *testing.T) {
	repo := memory.NewUserRepository()
	if err := repo.Create(newUser("user-1", "john@example.com")); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	stored, err := repo.GetByEmail("JOHN@example.COM")
	if err != nil {
		t.Fatalf("get by email failed: %v", err)
	}
	if stored.ID != "user-1" {
		t.Fatalf("id = %s, want user-1", stored.ID)
	}

	if _, err := repo.GetByEmail("nobody@example.com"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserRepository_SaveReindexesEmail(t *testing.T) {
	repo := memory.NewUserRepository()
	user := newUser("user-1", "john@example.com")
	if err := repo.Create(user); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	user.Email = "john.doe@example.com"
	if err := repo.Save(user); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if _, err := repo.GetByEmail("john@example.com"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("old email must be released, got %v", err)
	}
	stored, err := repo.GetByEmail("john.doe@example.com")
	if err != nil {
		t.Fatalf("get by new email failed: %v", err)
	}
	if stored.ID != "user-1" {
		t.Fatalf("id = %s, want user-1", stored.ID)
	}
}

func TestUserRepository_SaveCart(t *testing.T) {
	repo := memory.NewUserRepository()
	if err := repo.Create(newUser("user-1", "john@example.com")); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	cart := domain.Cart{
		{ProductID: "p1", Name: "T-Shirt", Price: 29.99, Quantity: 2, Size: "M"},
	}
	if err := repo.SaveCart("user-1", cart); err != nil {
		t.Fatalf("save cart failed: %v", err)
	}

	stored, err := repo.Get("user-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(stored.Cart) != 1 || stored.Cart[0].Quantity != 2 {
		t.Fatalf("cart not saved: %+v", stored.Cart)
	}
	// Остальные поля не тронуты
	if stored.Email != "john@example.com" {
		t.Fatalf("email changed by SaveCart: %s", stored.Email)
	}

	// Мутация исходного слайса не влияет на хранилище
	cart[0].Quantity = 99
	stored, _ = repo.Get("user-1")
	if stored.Cart[0].Quantity != 2 {
		t.Fatalf("repository shares cart slice with caller")
	}

	if err := repo.SaveCart("missing", cart); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
