package memory_test

import (
	"errors"
	"testing"
	"time"

	"github.com/adepetun22/shopapp/internal/domain"
	"github.com/adepetun22/shopapp/internal/storage/memory"
)

func TestReviewRepository_AddAndList(t *testing.T) {
	repo := memory.NewReviewRepository()
	now := time.Now().UTC()

	first := domain.Review{ID: "r1", ProductID: "p1", UserID: "user-1", Rating: 5, Comment: "great", CreatedAt: now.Add(-time.Minute)}
	second := domain.Review{ID: "r2", ProductID: "p1", UserID: "user-2", Rating: 3, CreatedAt: now}

	if err := repo.Add(first); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := repo.Add(second); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	reviews, err := repo.ListByProduct("p1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(reviews) != 2 {
		t.Fatalf("expected 2 reviews, got %d", len(reviews))
	}
	// Старые первыми
	if reviews[0].ID != "r1" || reviews[1].ID != "r2" {
		t.Fatalf("unexpected order: %s, %s", reviews[0].ID, reviews[1].ID)
	}

	empty, err := repo.ListByProduct("unknown")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no reviews, got %d", len(empty))
	}
}

func TestReviewRepository_DuplicateRejected(t *testing.T) {
	repo := memory.NewReviewRepository()
	review := domain.Review{ID: "r1", ProductID: "p1", UserID: "user-1", Rating: 4}

	if err := repo.Add(review); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	review.ID = "r2"
	review.Rating = 1
	if err := repo.Add(review); !errors.Is(err, domain.ErrAlreadyReviewed) {
		t.Fatalf("expected ErrAlreadyReviewed, got %v", err)
	}

	// Тот же пользователь может оценить другой продукт
	other := domain.Review{ID: "r3", ProductID: "p2", UserID: "user-1", Rating: 5}
	if err := repo.Add(other); err != nil {
		t.Fatalf("add for other product failed: %v", err)
	}
}

func TestReviewRepository_HasReview(t *testing.T) {
	repo := memory.NewReviewRepository()
	if err := repo.Add(domain.Review{ID: "r1", ProductID: "p1", UserID: "user-1", Rating: 4}); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	has, err := repo.HasReview("p1", "user-1")
	if err != nil {
		t.Fatalf("has review failed: %v", err)
	}
	if !has {
		t.Fatal("expected HasReview true")
	}

	has, err = repo.HasReview("p1", "user-2")
	if err != nil {
		t.Fatalf("has review failed: %v", err)
	}
	if has {
		t.Fatal("expected HasReview false for other user")
	}
}
