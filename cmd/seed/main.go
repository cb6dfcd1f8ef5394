package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/adepetun22/shopapp/internal/domain"
	"github.com/adepetun22/shopapp/internal/storage/postgres"
)

const defaultTimeout = 30 * time.Second

// demoUser — демонстрационная учётная запись для наполнения базы.
type demoUser struct {
	firstName string
	lastName  string
	email     string
	password  string
	role      domain.Role
}

func demoUsers() []demoUser {
	return []demoUser{
		{firstName: "Admin", lastName: "User", email: "admin@shopapp.com", password: "admin123", role: domain.RoleAdmin},
		{firstName: "John", lastName: "Doe", email: "john@example.com", password: "user123", role: domain.RoleCustomer},
	}
}

// demoProducts возвращает стартовый каталог магазина.
func demoProducts() []domain.Product {
	return []domain.Product{
		{
			Name:          "Premium Cotton T-Shirt",
			Description:   "High-quality cotton t-shirt with a comfortable fit. Perfect for everyday wear.",
			Price:         29.99,
			OriginalPrice: 39.99,
			Category:      "Clothing",
			Subcategory:   "T-Shirts",
			Brand:         "Zara",
			Images:        []domain.ProductImage{{URL: "https://via.placeholder.com/400", Alt: "T-Shirt"}},
			Colors:        []domain.ProductColor{{Name: "White", Hex: "#FFFFFF"}, {Name: "Black", Hex: "#000000"}},
			Features:      []string{"100% Cotton", "Machine Washable", "Breathable"},
			Stock:         200,
			Rating:        domain.Rating{Average: 4.5, Count: 120},
			IsFeatured:    true,
			IsOnSale:      true,
		},
		{
			Name:        "Designer Jeans",
			Description: "Classic fit designer jeans with premium denim quality.",
			Price:       79.99,
			Category:    "Clothing",
			Subcategory: "Jeans",
			Brand:       "Calvin Klein",
			Images:      []domain.ProductImage{{URL: "https://via.placeholder.com/400", Alt: "Jeans"}},
			Colors:      []domain.ProductColor{{Name: "Blue", Hex: "#0000FF"}},
			Features:    []string{"Premium Denim", "Classic Fit", "Durable"},
			Stock:       105,
			Rating:      domain.Rating{Average: 4.7, Count: 85},
			IsFeatured:  true,
		},
		{
			Name:          "Leather Handbag",
			Description:   "Genuine leather handbag with multiple compartments. Elegant and functional.",
			Price:         199.99,
			OriginalPrice: 249.99,
			Category:      "Accessories",
			Subcategory:   "Bags",
			Brand:         "Gucci",
			Images:        []domain.ProductImage{{URL: "https://via.placeholder.com/400", Alt: "Handbag"}},
			Colors:        []domain.ProductColor{{Name: "Brown", Hex: "#8B4513"}, {Name: "Black", Hex: "#000000"}},
			Features:      []string{"Genuine Leather", "Multiple Compartments", "Adjustable Strap"},
			Stock:         25,
			Rating:        domain.Rating{Average: 4.8, Count: 45},
			IsFeatured:    true,
			IsOnSale:      true,
		},
		{
			Name:        "Running Sneakers",
			Description: "Lightweight running sneakers with excellent cushioning and support.",
			Price:       129.99,
			Category:    "Footwear",
			Subcategory: "Sneakers",
			Brand:       "Nike",
			Images:      []domain.ProductImage{{URL: "https://via.placeholder.com/400", Alt: "Sneakers"}},
			Colors:      []domain.ProductColor{{Name: "White", Hex: "#FFFFFF"}, {Name: "Black", Hex: "#000000"}},
			Features:    []string{"Lightweight", "Cushioned Sole", "Breathable Mesh"},
			Stock:       65,
			Rating:      domain.Rating{Average: 4.6, Count: 200},
			IsFeatured:  true,
		},
		{
			Name:        "Silk Scarf",
			Description: "Luxurious silk scarf with elegant print. Perfect accessory for any outfit.",
			Price:       49.99,
			Category:    "Accessories",
			Subcategory: "Scarves",
			Brand:       "Versace",
			Images:      []domain.ProductImage{{URL: "https://via.placeholder.com/400", Alt: "Scarf"}},
			Colors:      []domain.ProductColor{{Name: "Red", Hex: "#FF0000"}, {Name: "Blue", Hex: "#0000FF"}},
			Features:    []string{"100% Silk", "Hand Rolled Edges", "Dry Clean Only"},
			Stock:       40,
			Rating:      domain.Rating{Average: 4.4, Count: 30},
		},
		{
			Name:          "Classic Watch",
			Description:   "Timeless design watch with leather strap. Swiss movement.",
			Price:         299.99,
			OriginalPrice: 399.99,
			Category:      "Accessories",
			Subcategory:   "Watches",
			Brand:         "Calvin Klein",
			Images:        []domain.ProductImage{{URL: "https://via.placeholder.com/400", Alt: "Watch"}},
			Colors:        []domain.ProductColor{{Name: "Silver", Hex: "#C0C0C0"}, {Name: "Gold", Hex: "#FFD700"}},
			Features:      []string{"Swiss Movement", "Leather Strap", "Water Resistant"},
			Stock:         15,
			Rating:        domain.Rating{Average: 4.9, Count: 60},
			IsFeatured:    true,
			IsOnSale:      true,
		},
		{
			Name:        "Summer Dress",
			Description: "Light and breezy summer dress perfect for warm days.",
			Price:       59.99,
			Category:    "Clothing",
			Subcategory: "Dresses",
			Brand:       "Zara",
			Images:      []domain.ProductImage{{URL: "https://via.placeholder.com/400", Alt: "Dress"}},
			Colors:      []domain.ProductColor{{Name: "Floral", Hex: "#FF69B4"}, {Name: "Blue", Hex: "#87CEEB"}},
			Features:    []string{"Light Fabric", "Breathable", "Machine Washable"},
			Stock:       90,
			Rating:      domain.Rating{Average: 4.3, Count: 75},
		},
		{
			Name:        "Wireless Headphones",
			Description: "Premium noise-canceling wireless headphones with excellent sound quality.",
			Price:       249.99,
			Category:    "Electronics",
			Subcategory: "Audio",
			Brand:       "Sony",
			Images:      []domain.ProductImage{{URL: "https://via.placeholder.com/400", Alt: "Headphones"}},
			Colors:      []domain.ProductColor{{Name: "Black", Hex: "#000000"}, {Name: "Silver", Hex: "#C0C0C0"}},
			Features:    []string{"Noise Cancellation", "30hr Battery", "Bluetooth 5.0"},
			Stock:       35,
			Rating:      domain.Rating{Average: 4.8, Count: 150},
			IsFeatured:  true,
		},
	}
}

// seed наполняет хранилище демонстрационными пользователями и каталогом.
// Повторный запуск безопасен: существующие пользователи пропускаются.
func seed(users domain.UserRepository, products domain.ProductRepository, now time.Time) (int, int, error) {
	createdUsers := 0
	for _, du := range demoUsers() {
		if _, err := users.GetByEmail(du.email); err == nil {
			continue
		} else if !errors.Is(err, domain.ErrUserNotFound) {
			return createdUsers, 0, fmt.Errorf("lookup user %s: %w", du.email, err)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(du.password), bcrypt.DefaultCost)
		if err != nil {
			return createdUsers, 0, fmt.Errorf("hash password for %s: %w", du.email, err)
		}
		user := domain.User{
			ID:           uuid.NewString(),
			FirstName:    du.firstName,
			LastName:     du.lastName,
			Email:        du.email,
			PasswordHash: string(hash),
			Role:         du.role,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := users.Create(user); err != nil {
			return createdUsers, 0, fmt.Errorf("create user %s: %w", du.email, err)
		}
		createdUsers++
	}

	existing, _, err := products.List(domain.ProductFilter{Limit: 1})
	if err != nil {
		return createdUsers, 0, fmt.Errorf("list products: %w", err)
	}
	if len(existing) > 0 {
		return createdUsers, 0, nil
	}

	createdProducts := 0
	for _, p := range demoProducts() {
		p.ID = uuid.NewString()
		p.CreatedAt = now
		p.UpdatedAt = now
		if err := products.Create(p); err != nil {
			return createdUsers, createdProducts, fmt.Errorf("create product %q: %w", p.Name, err)
		}
		createdProducts++
	}
	return createdUsers, createdProducts, nil
}

func main() {
	var (
		dsn     string
		migrate bool
	)
	flag.StringVar(&dsn, "dsn", "", "PostgreSQL DSN (fallback: SHOP_POSTGRES_DSN)")
	flag.BoolVar(&migrate, "migrate", true, "apply schema migrations before seeding")
	flag.Parse()

	if strings.TrimSpace(dsn) == "" {
		dsn = strings.TrimSpace(os.Getenv("SHOP_POSTGRES_DSN"))
	}
	if dsn == "" {
		fail("SHOP_POSTGRES_DSN (or -dsn) is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		fail("open postgres store: %v", err)
	}
	defer store.Close()

	if migrate {
		if err := store.EnsureSchema(ctx); err != nil {
			fail("ensure schema: %v", err)
		}
	}

	users, products, err := seed(
		postgres.NewUserRepository(store),
		postgres.NewProductRepository(store),
		time.Now().UTC(),
	)
	if err != nil {
		fail("seed failed: %v", err)
	}
	fmt.Printf("seed ok: users=%d products=%d\n", users, products)
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
