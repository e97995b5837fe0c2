package unsplash

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchReturnsFirstRegularURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/photos", r.URL.Path)
		assert.Equal(t, "mountain lake", r.URL.Query().Get("query"))
		assert.Equal(t, "key-123", r.URL.Query().Get("client_id"))

		w.Write([]byte(`{"results":[
			{"urls":{"regular":"https://images.example/photo-1.jpg"}},
			{"urls":{"regular":"https://images.example/photo-2.jpg"}}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, AccessKey: "key-123"})
	got, err := c.Search(context.Background(), "mountain lake")

	require.NoError(t, err)
	assert.Equal(t, "https://images.example/photo-1.jpg", got)
}

func TestSearchZeroResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, AccessKey: "k"})
	_, err := c.Search(context.Background(), "nothing")

	assert.ErrorIs(t, err, ErrNoResults)
}

func TestSearchMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, AccessKey: "k"})
	_, err := c.Search(context.Background(), "q")

	require.Error(t, err)
}

func TestSearchUpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, AccessKey: "bad"})
	_, err := c.Search(context.Background(), "q")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}
