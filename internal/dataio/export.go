package dataio

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strconv"
	"time"

	"readingjourney/internal/book"
)

const (
	contentTypeJSON = "application/json"
	contentTypeCSV  = "text/csv; charset=utf-8"

	TemplateFilename = "books_import_template.csv"
)

var csvHeader = []string{
	"title", "author", "isbn", "genre", "rating", "description",
	"reading_started", "reading_finished", "is_favorite", "page_count",
	"publisher", "publication_year", "language", "format",
}

func exportFilename(f Format, at time.Time) string {
	return "books_export_" + at.Format("20060102_150405") + "." + string(f)
}

func encodeJSON(books []book.Book) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(books); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encodeCSV writes a BOM-prefixed sheet so spreadsheet tools detect UTF-8.
func encodeCSV(books []book.Book) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, b := range books {
		if err := w.Write(csvRow(b)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func csvRow(b book.Book) []string {
	return []string{
		b.Title,
		str(b.Author),
		str(b.ISBN),
		str(b.Genre),
		strconv.FormatFloat(b.Rating, 'f', -1, 64),
		str(b.Description),
		b.ReadingStarted.UTC().Format(time.DateOnly),
		date(b.ReadingFinished),
		strconv.FormatBool(b.IsFavorite),
		num(b.PageCount),
		str(b.Publisher),
		num(b.PublicationYear),
		b.Language,
		str(b.Format),
	}
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func num(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func date(p *time.Time) string {
	if p == nil {
		return ""
	}
	return p.UTC().Format(time.DateOnly)
}

func templateBooks() []book.Book {
	s := func(v string) *string { return &v }
	n := func(v int) *int { return &v }
	finished := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	return []book.Book{
		{
			Title:           "The Great Gatsby",
			Author:          s("F. Scott Fitzgerald"),
			ISBN:            s("9780743273565"),
			Genre:           s("Classic"),
			Rating:          4.5,
			Description:     s("A classic American novel"),
			ReadingStarted:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			ReadingFinished: &finished,
			IsFavorite:      true,
			PageCount:       n(180),
			Publisher:       s("Scribner"),
			PublicationYear: n(1925),
			Language:        "English",
			Format:          s("paperback"),
		},
		{
			Title:           "1984",
			Author:          s("George Orwell"),
			ISBN:            s("9780451524935"),
			Genre:           s("Dystopian"),
			Rating:          5,
			Description:     s("A dystopian social science fiction novel"),
			ReadingStarted:  time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC),
			PageCount:       n(328),
			Publisher:       s("Secker & Warburg"),
			PublicationYear: n(1949),
			Language:        "English",
			Format:          s("ebook"),
		},
	}
}
