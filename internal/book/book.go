// Package book is the read side of the catalog filled by the importer.
package book

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a book is not found.
var ErrNotFound = errors.New("book not found")

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Book represents a catalog entry.
type Book struct {
	ID            int64     `json:"id"`
	ExternalKey   string    `json:"external_key"`
	Title         string    `json:"title"`
	Author        string    `json:"author"`
	Description   string    `json:"description,omitempty"`
	CoverURL      *string   `json:"cover_url,omitempty"`
	PublishedYear *int      `json:"published_year,omitempty"`
	Genres        []string  `json:"genres"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Genre is a subject with the number of books linked to it.
type Genre struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	BookCount int    `json:"book_count"`
}

// Query defines filters and pagination for listing books.
type Query struct {
	Q        string
	Genre    string
	Author   string
	YearFrom *int
	YearTo   *int
	Limit    int
	Offset   int
}

// Page is one page of a book listing.
type Page struct {
	Books      []Book
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}
