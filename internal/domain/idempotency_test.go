package domain_test

import (
	"testing"

	"github.com/adepetun22/shopapp/internal/domain"
)

func TestIdempotencyStatusValid(t *testing.T) {
	valid := []domain.IdempotencyStatus{
		domain.IdempotencyStatusProcessing,
		domain.IdempotencyStatusDone,
		domain.IdempotencyStatusFailed,
	}
	for _, s := range valid {
		if !s.Valid() {
			t.Errorf("status %s must be valid", s)
		}
	}

	invalid := []domain.IdempotencyStatus{"", "pending", "DONE"}
	for _, s := range invalid {
		if s.Valid() {
			t.Errorf("status %q must be invalid", s)
		}
	}
}
