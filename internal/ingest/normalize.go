package ingest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"openbook/internal/platform/openlibrary"
)

// ErrRejected marks a raw work that cannot become a book.
var ErrRejected = errors.New("record rejected")

const (
	unknownAuthor = "Unknown"
	unknownYear   = "an unspecified year"
	coverURLFmt   = "https://covers.openlibrary.org/b/id/%d-L.jpg"
)

// RawWork is a record as returned by the external catalog.
type RawWork = openlibrary.Work

// NormalizedBook is a validated record ready for persistence.
type NormalizedBook struct {
	Key         string
	Title       string
	Author      string
	Year        *int
	CoverURL    *string
	Description string
}

// Normalize validates a raw work and derives the book fields.
// Rejections wrap ErrRejected with the reason.
func Normalize(raw *RawWork) (NormalizedBook, error) {
	if raw == nil {
		return NormalizedBook{}, fmt.Errorf("%w: empty record", ErrRejected)
	}
	if raw.DecodeErr != nil {
		return NormalizedBook{}, fmt.Errorf("%w: malformed record %q: %v", ErrRejected, raw.Key, raw.DecodeErr)
	}
	if raw.Key == "" {
		return NormalizedBook{}, fmt.Errorf("%w: missing key", ErrRejected)
	}
	title := strings.TrimSpace(raw.Title)
	if title == "" {
		return NormalizedBook{}, fmt.Errorf("%w: missing title (%s)", ErrRejected, raw.Key)
	}
	if len(raw.Authors) == 0 {
		return NormalizedBook{}, fmt.Errorf("%w: missing authors (%s)", ErrRejected, raw.Key)
	}

	author := strings.TrimSpace(raw.Authors[0].Name)
	if author == "" {
		author = unknownAuthor
	}

	b := NormalizedBook{
		Key:    raw.Key,
		Title:  title,
		Author: author,
	}
	// Zero and negative values are placeholders, not data.
	if raw.FirstPublishYear != nil && *raw.FirstPublishYear > 0 {
		year := *raw.FirstPublishYear
		b.Year = &year
	}
	if raw.CoverID != nil && *raw.CoverID > 0 {
		cover := fmt.Sprintf(coverURLFmt, *raw.CoverID)
		b.CoverURL = &cover
	}
	b.Description = describe(b.Title, b.Author, b.Year)
	return b, nil
}

func describe(title, author string, year *int) string {
	published := unknownYear
	if year != nil {
		published = strconv.Itoa(*year)
	}
	return fmt.Sprintf("\"%s\" is a work written by %s, first published in %s.", title, author, published)
}
