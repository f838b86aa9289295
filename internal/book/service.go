package book

import (
	"context"
)

// Service provides book-related business logic.
type Service struct {
	repo Repository
}

// NewService creates a new book service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns one page of books matching the filters. page starts at 1;
// out-of-range page and pageSize values fall back to the defaults.
func (s *Service) List(ctx context.Context, q Query, page, pageSize int) (Page, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = DefaultPageSize
	}
	q.Limit = pageSize
	q.Offset = (page - 1) * pageSize

	books, total, err := s.repo.List(ctx, q)
	if err != nil {
		return Page{}, err
	}
	if books == nil {
		books = []Book{}
	}
	return Page{
		Books:      books,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}, nil
}

// GetByID returns a book by its id.
func (s *Service) GetByID(ctx context.Context, id int64) (Book, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListGenres(ctx context.Context) ([]Genre, error) {
	return s.repo.ListGenres(ctx)
}
