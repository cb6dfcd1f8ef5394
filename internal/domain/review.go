package domain

import "time"

// Review — отзыв пользователя о продукте. Инвариант: не более одного
// отзыва на пару (product, user).
type Review struct {
	ID        string    `json:"id"`
	ProductID string    `json:"productId"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName,omitempty"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

// Validate проверяет допустимость отзыва.
func (r *Review) Validate() error {
	if r.UserID == "" {
		return ErrUserRequired
	}
	if r.Rating < 1 || r.Rating > 5 {
		return ErrRatingOutOfRange
	}
	return nil
}

// AverageRating считает среднее арифметическое оценок.
// Для пустого списка возвращает 0.
func AverageRating(reviews []Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	var sum int
	for _, review := range reviews {
		sum += review.Rating
	}
	return float64(sum) / float64(len(reviews))
}
