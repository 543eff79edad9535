package dataio

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"readingjourney/internal/book"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// record is one import entry with every value rendered as trimmed text.
type record map[string]string

func (r record) get(key string) string {
	return strings.TrimSpace(r[key])
}

func (r record) optional(key string) *string {
	if v := r.get(key); v != "" {
		return &v
	}
	return nil
}

// entry is a normalised book plus the row it came from.
type entry struct {
	row  int
	book book.NewBook
}

var fieldLimits = []struct {
	name string
	max  int
}{
	{"title", 200},
	{"author", 100},
	{"isbn", 20},
	{"genre", 50},
	{"description", 2000},
	{"publisher", 100},
	{"language", 50},
}

var truthy = map[string]bool{"true": true, "1": true, "yes": true, "y": true}

// normalize turns a record into a storable book. Fields that can be dropped
// or defaulted are; only a missing title, bad dates and oversized text
// reject the entry.
func normalize(rec record, withCover bool, now time.Time) (book.NewBook, error) {
	title := rec.get("title")
	if title == "" {
		return book.NewBook{}, errors.New("Missing required field: title")
	}
	for _, f := range fieldLimits {
		if utf8.RuneCountInString(rec.get(f.name)) > f.max {
			return book.NewBook{}, fmt.Errorf("%s must be at most %d characters", f.name, f.max)
		}
	}

	started := now.UTC()
	if v := rec.get("reading_started"); v != "" {
		t, err := book.ParseTime(v)
		if err != nil {
			return book.NewBook{}, fmt.Errorf("Invalid date format for reading_started: %s", v)
		}
		started = t
	}

	var finished *time.Time
	if v := rec.get("reading_finished"); v != "" {
		t, err := book.ParseTime(v)
		if err != nil {
			return book.NewBook{}, fmt.Errorf("Invalid date format for reading_finished: %s", v)
		}
		finished = &t
	}
	if finished != nil && finished.Before(started) {
		return book.NewBook{}, errors.New("Finish date cannot be before start date")
	}

	nb := book.NewBook{
		Title:           title,
		Author:          rec.optional("author"),
		ISBN:            rec.optional("isbn"),
		Genre:           rec.optional("genre"),
		Rating:          parseRating(rec.get("rating")),
		Description:     rec.optional("description"),
		ReadingStarted:  started,
		ReadingFinished: finished,
		IsFavorite:      truthy[strings.ToLower(rec.get("is_favorite"))],
		PageCount:       parsePageCount(rec.get("page_count")),
		Publisher:       rec.optional("publisher"),
		PublicationYear: parseYear(rec.get("publication_year"), now.Year()),
		Language:        rec.get("language"),
	}
	if nb.Language == "" {
		nb.Language = book.DefaultLanguage
	}
	if f := strings.ToLower(rec.get("format")); book.IsFormat(f) {
		nb.Format = &f
	}
	if withCover {
		nb.CoverImage = rec.optional("cover_image")
	}
	return nb, nil
}

func parseRating(s string) float64 {
	if s == "" {
		return 0
	}
	r, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(r) || r < 0 || r > 5 {
		return 0
	}
	return r
}

// parsePageCount keeps counts that fit the INTEGER column.
func parsePageCount(s string) *int {
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil || n <= 0 {
		return nil
	}
	pages := int(n)
	return &pages
}

func parseYear(s string, currentYear int) *int {
	y, err := strconv.Atoi(s)
	if err != nil || y < 1000 || y > currentYear {
		return nil
	}
	return &y
}

func entryLabel(rec record) string {
	if t := rec.get("title"); t != "" {
		return t
	}
	return "Unknown"
}

func decodeText(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, &FileError{Reason: "File encoding error. Please use UTF-8 encoding"}
	}
	return data, nil
}

// parseJSON reads a top-level array of book objects.
func parseJSON(data []byte, now time.Time) ([]entry, []EntryError, error) {
	data, err := decodeText(data)
	if err != nil {
		return nil, nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, nil, &FileError{Reason: "Invalid JSON format: " + err.Error()}
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, nil, &FileError{Reason: "Invalid JSON format: unexpected data after top-level value"}
	}
	items, ok := doc.([]any)
	if !ok {
		return nil, nil, &FileError{Reason: "JSON file must contain an array of books"}
	}

	var entries []entry
	var errs []EntryError
	for i, item := range items {
		row := i + 1
		obj, ok := item.(map[string]any)
		if !ok {
			errs = append(errs, EntryError{Row: row, Error: "Entry must be an object", Data: "Unknown"})
			continue
		}
		rec := jsonRecord(obj)
		nb, err := normalize(rec, true, now)
		if err != nil {
			errs = append(errs, EntryError{Row: row, Error: err.Error(), Data: entryLabel(rec)})
			continue
		}
		entries = append(entries, entry{row: row, book: nb})
	}
	return entries, errs, nil
}

func jsonRecord(obj map[string]any) record {
	rec := make(record, len(obj))
	for k, v := range obj {
		switch val := v.(type) {
		case string:
			rec[k] = val
		case json.Number:
			rec[k] = val.String()
		case bool:
			rec[k] = strconv.FormatBool(val)
		}
	}
	return rec
}

// parseCSV reads a header row followed by one book per record.
func parseCSV(data []byte, now time.Time) ([]entry, []EntryError, error) {
	data, err := decodeText(data)
	if err != nil {
		return nil, nil, err
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, &FileError{Reason: "CSV file is empty or has no headers"}
	}
	if err != nil {
		return nil, nil, &FileError{Reason: "Invalid CSV format: " + err.Error()}
	}
	for i, name := range header {
		header[i] = strings.ToLower(strings.TrimSpace(name))
	}

	var entries []entry
	var errs []EntryError
	for row := 2; ; row++ {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, &FileError{Reason: "Invalid CSV format: " + err.Error()}
		}

		rec := make(record, len(header))
		for i, name := range header {
			if i < len(fields) {
				rec[name] = fields[i]
			}
		}
		nb, err := normalize(rec, false, now)
		if err != nil {
			errs = append(errs, EntryError{Row: row, Error: err.Error(), Data: entryLabel(rec)})
			continue
		}
		entries = append(entries, entry{row: row, book: nb})
	}
	return entries, errs, nil
}
