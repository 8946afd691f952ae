package openlibrary

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(srv *httptest.Server) *Client {
	c := NewClient("test-agent", 100, 1)
	c.baseURL = srv.URL
	c.httpClient = srv.Client()
	return c
}

func TestLookupISBN(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/books", r.URL.Path)
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.Write([]byte(`{"ISBN:9780749386429":{
			"title":"The Magic Mountain",
			"publish_date":"June 1996",
			"by_statement":"Thomas Mann ; translated from the German by John E. Woods.",
			"authors":[{"name":"Thomas Mann"}]
		}}`))
	}))
	defer srv.Close()

	summary, err := testClient(srv).LookupISBN(context.Background(), "9780749386429")
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, "The Magic Mountain", summary.Title)
	assert.Equal(t, "Thomas Mann", summary.Author)
	assert.Equal(t, "9780749386429", summary.ISBN13)
	assert.Empty(t, summary.ISBN)
	assert.Equal(t, 1996, summary.PublishYear)
}

func TestLookupISBN_Unknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	summary, err := testClient(srv).LookupISBN(context.Background(), "9780000000000")
	require.NoError(t, err)
	assert.Nil(t, summary)
}

func TestLookupKeyword(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search.json", r.URL.Path)
		assert.Equal(t, "the idiot batuman", r.URL.Query().Get("q"))
		w.Write([]byte(`{"numFound":1,"docs":[{
			"title":"The Idiot",
			"author_name":["Elif Batuman"],
			"first_publish_year":2017,
			"isbn":["0143111062","9780143111061"]
		}]}`))
	}))
	defer srv.Close()

	summary, err := testClient(srv).LookupKeyword(context.Background(), "the idiot batuman")
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, "The Idiot", summary.Title)
	assert.Equal(t, "Elif Batuman", summary.Author)
	assert.Equal(t, "0143111062", summary.ISBN)
	assert.Equal(t, "9780143111061", summary.ISBN13)
	assert.Equal(t, 2017, summary.PublishYear)
}

func TestLookupKeyword_NoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"numFound":0,"docs":[]}`))
	}))
	defer srv.Close()

	summary, err := testClient(srv).LookupKeyword(context.Background(), "no such book")
	require.NoError(t, err)
	assert.Nil(t, summary)
}

func TestTranslator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ISBN:9780749386429":{
			"title":"The Magic Mountain",
			"by_statement":"Thomas Mann ; translated from the German by John Woods"
		}}`))
	}))
	defer srv.Close()

	translator, err := testClient(srv).Translator(context.Background(), "9780749386429")
	require.NoError(t, err)
	assert.Equal(t, "John Woods", translator)
}

func TestTranslator_NoPhrase(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ISBN:9780749386429":{"title":"The Magic Mountain","by_statement":"Thomas Mann."}}`))
	}))
	defer srv.Close()

	translator, err := testClient(srv).Translator(context.Background(), "9780749386429")
	require.NoError(t, err)
	assert.Empty(t, translator)
}

func TestGet_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"numFound":0,"docs":[]}`))
	}))
	defer srv.Close()

	_, err := testClient(srv).LookupKeyword(context.Background(), "flaky")
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load())
}

func TestGet_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := testClient(srv).LookupKeyword(context.Background(), "bad")
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
}
