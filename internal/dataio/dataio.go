// Package dataio moves whole libraries in and out as JSON or CSV files.
package dataio

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

var (
	ErrUnknownFormat   = errors.New("format must be json or csv")
	ErrFilename        = errors.New("invalid filename")
	ErrTooLarge        = errors.New("file too large")
	ErrNothingToExport = errors.New("no books found to export")
)

// FileError rejects an upload as a whole, as opposed to a single entry.
type FileError struct {
	Reason string
}

func (e *FileError) Error() string { return e.Reason }

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	}
	return "", ErrUnknownFormat
}

// ResolveFormat picks the import format from an explicit parameter, falling
// back to the file extension. An explicit format must agree with the extension.
func ResolveFormat(param, filename string) (Format, error) {
	if strings.TrimSpace(filename) == "" {
		return "", ErrFilename
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))

	if strings.TrimSpace(param) == "" {
		return ParseFormat(ext)
	}

	f, err := ParseFormat(param)
	if err != nil {
		return "", err
	}
	if ext != string(f) {
		return "", &FileError{Reason: fmt.Sprintf("File extension must be .%s for %s format", f, strings.ToUpper(string(f)))}
	}
	return f, nil
}

// EntryError describes one rejected entry. Row counts from 1 for JSON and
// from 2 for CSV, where row 1 is the header.
type EntryError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
	Data  string `json:"data"`
}

// MaxReportedErrors caps the entry errors returned with an import result.
const MaxReportedErrors = 10

type ImportStats struct {
	Total    int          `json:"total"`
	Imported int          `json:"imported"`
	Skipped  int          `json:"skipped"`
	Failed   int          `json:"failed"`
	Errors   []EntryError `json:"errors"`
}

type ImportResult struct {
	Message string      `json:"message"`
	Stats   ImportStats `json:"stats"`
}

// Download is a rendered export ready to be written out.
type Download struct {
	Filename    string
	ContentType string
	Body        []byte
}
