// Package openlibrary looks up book metadata by ISBN on openlibrary.org.
package openlibrary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

var ErrNotFound = errors.New("book not found on Open Library")

type Client struct {
	httpClient *http.Client
	userAgent  string
	baseURL    string
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
}

type Option func(*Client)

// WithBaseURL points the client at another host, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithBackoff sets the first retry delay; later retries double it.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) { c.backoff = d }
}

func NewClient(userAgent string, rps float64, maxRetries int, opts ...Option) *Client {
	if rps <= 0 {
		rps = 1
	}
	c := &Client{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		userAgent:  userAgent,
		baseURL:    "https://openlibrary.org",
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		maxRetries: maxRetries,
		backoff:    time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type Publisher struct {
	Name string `json:"name"`
}

// BookDetails matches api/books?jscmd=data
type BookDetails struct {
	Title       string      `json:"title"`
	Subtitle    string      `json:"subtitle"`
	Publishers  []Publisher `json:"publishers"`
	PublishDate string      `json:"publish_date"`
	Cover       struct {
		Large  string `json:"large"`
		Medium string `json:"medium"`
	} `json:"cover"`
	Authors []struct {
		URL  string `json:"url"`
		Name string `json:"name"`
	} `json:"authors"`
	Subjects []struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"subjects"`
	NumberOfPages int `json:"number_of_pages"`
}

// Metadata is the subset of BookDetails used to prefill a book form.
type Metadata struct {
	ISBN            string   `json:"isbn"`
	Title           string   `json:"title"`
	Author          string   `json:"author,omitempty"`
	Publisher       string   `json:"publisher,omitempty"`
	PageCount       *int     `json:"page_count,omitempty"`
	PublicationYear *int     `json:"publication_year,omitempty"`
	CoverImage      string   `json:"cover_image,omitempty"`
	Subjects        []string `json:"subjects,omitempty"`
}

var yearRe = regexp.MustCompile(`\b(1[0-9]{3}|20[0-9]{2})\b`)

func (d BookDetails) metadata(isbn string) Metadata {
	m := Metadata{ISBN: isbn, Title: d.Title}
	if d.Subtitle != "" {
		m.Title = d.Title + ": " + d.Subtitle
	}

	names := make([]string, 0, len(d.Authors))
	for _, a := range d.Authors {
		names = append(names, a.Name)
	}
	m.Author = strings.Join(names, ", ")

	if len(d.Publishers) > 0 {
		m.Publisher = d.Publishers[0].Name
	}
	if d.NumberOfPages > 0 {
		pages := d.NumberOfPages
		m.PageCount = &pages
	}
	if y := yearRe.FindString(d.PublishDate); y != "" {
		year, _ := strconv.Atoi(y)
		m.PublicationYear = &year
	}
	m.CoverImage = d.Cover.Large
	if m.CoverImage == "" {
		m.CoverImage = d.Cover.Medium
	}
	for i, s := range d.Subjects {
		if i == 3 {
			break
		}
		m.Subjects = append(m.Subjects, s.Name)
	}
	return m
}

// LookupISBN fetches metadata for a single cleaned ISBN.
func (c *Client) LookupISBN(ctx context.Context, isbn string) (Metadata, error) {
	details, err := c.GetBooksByISBN(ctx, []string{isbn})
	if err != nil {
		return Metadata{}, err
	}
	d, ok := details["ISBN:"+isbn]
	if !ok || d.Title == "" {
		return Metadata{}, ErrNotFound
	}
	return d.metadata(isbn), nil
}

func (c *Client) GetBooksByISBN(ctx context.Context, isbns []string) (map[string]BookDetails, error) {
	if len(isbns) == 0 {
		return nil, nil
	}

	bibkeys := make([]string, len(isbns))
	for i, isbn := range isbns {
		bibkeys[i] = "ISBN:" + isbn
	}

	u := fmt.Sprintf("%s/api/books?bibkeys=%s&jscmd=data&format=json",
		c.baseURL, strings.Join(bibkeys, ","))

	var res map[string]BookDetails
	if err := c.get(ctx, u, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) get(ctx context.Context, url string, target any) error {
	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if i > 0 {
			backoff := c.backoff << uint(i-1)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		retry, err := c.do(ctx, url, target)
		if err == nil {
			return nil
		}
		if !retry {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("after %d retries: %w", c.maxRetries, lastErr)
}

func (c *Client) do(ctx context.Context, url string, target any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500, err
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return false, fmt.Errorf("decode response: %w", err)
	}
	return false, nil
}
