package openlibrary

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const duneResponse = `{
  "ISBN:9780441013593": {
    "title": "Dune",
    "publishers": [{"name": "Ace Books"}],
    "publish_date": "August 2, 2005",
    "number_of_pages": 528,
    "authors": [{"name": "Frank Herbert", "url": "https://openlibrary.org/authors/OL79034A"}],
    "cover": {"large": "https://covers.openlibrary.org/b/id/1-L.jpg"},
    "subjects": [{"name": "Science fiction"}, {"name": "Arrakis"}, {"name": "Deserts"}, {"name": "Spice"}]
  }
}`

func TestClient_LookupISBN(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/books", r.URL.Path)
		assert.Equal(t, "ISBN:9780441013593", r.URL.Query().Get("bibkeys"))
		assert.Equal(t, "data", r.URL.Query().Get("jscmd"))
		assert.Equal(t, "readingjourney-test", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(duneResponse))
	}))
	defer srv.Close()

	c := NewClient("readingjourney-test", 100, 0, WithBaseURL(srv.URL))
	m, err := c.LookupISBN(context.Background(), "9780441013593")
	require.NoError(t, err)

	assert.Equal(t, "Dune", m.Title)
	assert.Equal(t, "Frank Herbert", m.Author)
	assert.Equal(t, "Ace Books", m.Publisher)
	require.NotNil(t, m.PageCount)
	assert.Equal(t, 528, *m.PageCount)
	require.NotNil(t, m.PublicationYear)
	assert.Equal(t, 2005, *m.PublicationYear)
	assert.Equal(t, []string{"Science fiction", "Arrakis", "Deserts"}, m.Subjects)
}

func TestClient_LookupISBN_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient("ua", 100, 0, WithBaseURL(srv.URL))
	_, err := c.LookupISBN(context.Background(), "9780000000002")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(duneResponse))
	}))
	defer srv.Close()

	c := NewClient("ua", 1000, 3, WithBaseURL(srv.URL), WithBackoff(time.Millisecond))
	_, err := c.LookupISBN(context.Background(), "9780441013593")
	require.NoError(t, err)
	assert.EqualValues(t, 3, calls.Load())
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient("ua", 1000, 3, WithBaseURL(srv.URL), WithBackoff(time.Millisecond))
	_, err := c.LookupISBN(context.Background(), "9780441013593")
	assert.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestBookDetails_MetadataSubtitle(t *testing.T) {
	d := BookDetails{Title: "Sapiens", Subtitle: "A Brief History of Humankind", PublishDate: "n.d."}
	m := d.metadata("x")
	assert.Equal(t, "Sapiens: A Brief History of Humankind", m.Title)
	assert.Nil(t, m.PublicationYear)
	assert.Nil(t, m.PageCount)
}
