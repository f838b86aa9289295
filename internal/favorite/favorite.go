// Package favorite keeps each user's favourite books.
package favorite

import (
	"context"
	"errors"
	"time"

	"openbook/internal/book"
)

var (
	ErrBookNotFound    = errors.New("book not found")
	ErrAlreadyFavorite = errors.New("book already in favorites")
	ErrNotFound        = errors.New("favorite not found")
)

// Item is a favourite book with the time it was added.
type Item struct {
	book.Book
	FavoritedAt time.Time `json:"favorited_at"`
}

type Repository interface {
	Add(ctx context.Context, userID string, bookID int64) error
	Remove(ctx context.Context, userID string, bookID int64) error
	List(ctx context.Context, userID string, limit, offset int) ([]Item, int, error)
	Count(ctx context.Context, userID string) (int, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Add(ctx context.Context, userID string, bookID int64) error {
	return s.repo.Add(ctx, userID, bookID)
}

func (s *Service) Remove(ctx context.Context, userID string, bookID int64) error {
	return s.repo.Remove(ctx, userID, bookID)
}

func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Item, int, error) {
	if limit <= 0 || limit > book.MaxPageSize {
		limit = book.DefaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, userID, limit, offset)
}

func (s *Service) Count(ctx context.Context, userID string) (int, error) {
	return s.repo.Count(ctx, userID)
}
