package domain

import (
	"errors"
	"time"
)

// ProductImage — картинка продукта с alt-текстом.
type ProductImage struct {
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

// ProductColor — доступный цвет продукта.
type ProductColor struct {
	Name string `json:"name"`
	Hex  string `json:"hex,omitempty"`
}

// Rating — агрегированная оценка продукта. Average пересчитывается как
// среднее арифметическое всех отзывов при каждой записи отзыва; O(n) по
// числу отзывов — осознанное ограничение для малых каталогов.
type Rating struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// Product — товар каталога. С точки зрения корзины и заказов продукт
// read-mostly: сервис читает его для валидации и снимков, а сток меняет
// только через атомарные примитивы репозитория.
type Product struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Price         float64        `json:"price"`
	OriginalPrice float64        `json:"originalPrice,omitempty"`
	Category      string         `json:"category"`
	Subcategory   string         `json:"subcategory,omitempty"`
	Brand         string         `json:"brand,omitempty"`
	Images        []ProductImage `json:"images"`
	Colors        []ProductColor `json:"colors,omitempty"`
	Features      []string       `json:"features,omitempty"`
	Stock         int            `json:"stock"`
	Rating        Rating         `json:"rating"`
	IsFeatured    bool           `json:"isFeatured"`
	IsOnSale      bool           `json:"isOnSale"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// FirstImage возвращает URL первой картинки для превью в корзине.
func (p Product) FirstImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0].URL
}

// ValidateInvariants проверяет базовые инварианты продукта.
func (p *Product) ValidateInvariants() error {
	var errs []error
	if p.Name == "" {
		errs = append(errs, ErrNameRequired)
	}
	if p.Price < 0 {
		errs = append(errs, ErrPriceNegative)
	}
	if p.Stock < 0 {
		errs = append(errs, ErrInsufficientStock)
	}
	return errors.Join(errs...)
}
