package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/adepetun22/shopapp/internal/domain"
)

// Service реализует операции каталога товаров.
type Service struct {
	products domain.ProductRepository
	logger   *log.Entry
	now      func() time.Time
}

// NewService создаёт сервис каталога.
func NewService(products domain.ProductRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "catalog")
	}
	return &Service{
		products: products,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ListResult содержит страницу товаров и метаданные пагинации.
type ListResult struct {
	Products []domain.Product
	Total    int
	Page     int
	Pages    int
	Limit    int
}

// List возвращает страницу каталога по фильтру.
func (s *Service) List(filter domain.ProductFilter) (ListResult, error) {
	products, total, err := s.products.List(filter)
	if err != nil {
		return ListResult{}, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = domain.DefaultPageLimit
	}
	pages := (total + limit - 1) / limit
	if pages < 1 {
		pages = 1
	}

	return ListResult{
		Products: products,
		Total:    total,
		Page:     page,
		Pages:    pages,
		Limit:    limit,
	}, nil
}

// Get возвращает товар по ID.
func (s *Service) Get(productID string) (domain.Product, error) {
	return s.products.Get(productID)
}

// Featured возвращает товары с флагом featured.
func (s *Service) Featured(limit int) ([]domain.Product, error) {
	products, _, err := s.products.List(domain.ProductFilter{
		Featured: true,
		Limit:    limit,
		Sort:     domain.SortNewest,
	})
	return products, err
}

// OnSale возвращает товары со скидкой.
func (s *Service) OnSale(limit int) ([]domain.Product, error) {
	products, _, err := s.products.List(domain.ProductFilter{
		OnSale: true,
		Limit:  limit,
		Sort:   domain.SortNewest,
	})
	return products, err
}

// Categories возвращает список категорий каталога.
func (s *Service) Categories() ([]string, error) {
	return s.products.Categories()
}

// Brands возвращает список брендов каталога.
func (s *Service) Brands() ([]string, error) {
	return s.products.Brands()
}

// Create добавляет товар в каталог (admin-операция).
func (s *Service) Create(product domain.Product) (domain.Product, error) {
	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	product.Name = strings.TrimSpace(product.Name)

	now := s.now()
	product.CreatedAt = now
	product.UpdatedAt = now

	if err := product.ValidateInvariants(); err != nil {
		return domain.Product{}, err
	}
	if err := s.products.Create(product); err != nil {
		return domain.Product{}, err
	}

	s.logger.WithFields(log.Fields{
		"product_id": product.ID,
		"name":       product.Name,
	}).Info("product created")

	return product, nil
}

// Update заменяет данные товара (admin-операция).
func (s *Service) Update(product domain.Product) (domain.Product, error) {
	current, err := s.products.Get(product.ID)
	if err != nil {
		return domain.Product{}, err
	}

	product.Name = strings.TrimSpace(product.Name)
	product.Rating = current.Rating
	product.CreatedAt = current.CreatedAt
	product.UpdatedAt = s.now()

	if err := product.ValidateInvariants(); err != nil {
		return domain.Product{}, err
	}
	if err := s.products.Update(product); err != nil {
		return domain.Product{}, err
	}

	return product, nil
}

// Delete удаляет товар из каталога (admin-операция).
func (s *Service) Delete(productID string) error {
	if err := s.products.Delete(productID); err != nil {
		return err
	}
	s.logger.WithField("product_id", productID).Info("product deleted")
	return nil
}
