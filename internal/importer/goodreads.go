package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"libtrack/internal/entity"
	"libtrack/internal/usecase"
)

// Summary reports what one import run did.
type Summary struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// Importer loads a Goodreads library export CSV. Only rows shelved as
// "to-read" are kept; everything else is counted as skipped.
type Importer struct {
	bookRepo usecase.BookRepository
}

func New(bookRepo usecase.BookRepository) *Importer {
	return &Importer{bookRepo: bookRepo}
}

func (im *Importer) Import(ctx context.Context, userID string, r io.Reader) (Summary, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return Summary{}, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"Book Id", "Title", "Author", "Exclusive Shelf"} {
		if _, ok := col[required]; !ok {
			return Summary{}, fmt.Errorf("missing column %q", required)
		}
	}

	var sum Summary
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return sum, fmt.Errorf("read row: %w", err)
		}

		field := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		if field("Exclusive Shelf") != "to-read" {
			sum.Skipped++
			continue
		}

		book := entity.Book{
			BookID:    field("Book Id"),
			UserID:    userID,
			Title:     field("Title"),
			Author:    field("Author"),
			ISBN:      cleanISBN(field("ISBN")),
			ISBN13:    cleanISBN(field("ISBN13")),
			DateAdded: parseDate(field("Date Added")),
		}
		if book.BookID == "" || book.Title == "" {
			sum.Skipped++
			continue
		}
		if v, err := strconv.ParseFloat(field("Average Rating"), 64); err == nil {
			book.AvgRating = v
		}

		if err := im.bookRepo.Upsert(ctx, &book); err != nil {
			log.Printf("import: upsert %q: %v", book.Title, err)
			sum.Skipped++
			continue
		}
		sum.Imported++
	}
	return sum, nil
}

// cleanISBN strips the ="..." wrapper Goodreads uses to keep spreadsheets
// from treating ISBNs as numbers.
func cleanISBN(s string) string {
	s = strings.TrimPrefix(s, "=")
	s = strings.Trim(s, `"`)
	return s
}

func parseDate(s string) time.Time {
	if t, err := time.Parse("2006/01/02", s); err == nil {
		return t
	}
	return time.Now()
}
