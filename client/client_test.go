package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/kv/greeting", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"value":"hello"}`)
	}))
	defer ts.Close()

	value, err := New(ts.URL).Get(context.Background(), "greeting")
	require.NoError(t, err)
	assert.Equal(t, "hello", value)
}

func TestGetNotFound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "key not found", http.StatusNotFound)
	}))
	defer ts.Close()

	_, err := New(ts.URL).Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetSendsTTL(t *testing.T) {
	var got struct {
		Value      string `json:"value"`
		TTLSeconds *int64 `json:"ttl_seconds"`
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/kv/session", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	err := New(ts.URL).Set(context.Background(), "session", "tok", 90*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "tok", got.Value)
	require.NotNil(t, got.TTLSeconds)
	assert.Equal(t, int64(90), *got.TTLSeconds)
}

func TestSetWithoutTTLOmitsField(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.NotContains(t, string(body), "ttl_seconds")
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	require.NoError(t, New(ts.URL).Set(context.Background(), "k", "v", 0))
}

func TestDelete(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/kv/k", r.URL.Path)
		io.WriteString(w, `{"deleted":true}`)
	}))
	defer ts.Close()

	deleted, err := New(ts.URL).Delete(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestJSONRoundTrip(t *testing.T) {
	stored := map[string]json.RawMessage{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var req struct {
				Value json.RawMessage `json:"value"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			stored[r.URL.Path] = req.Value
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			value, ok := stored[r.URL.Path]
			if !ok {
				http.Error(w, "key not found", http.StatusNotFound)
				return
			}
			json.NewEncoder(w).Encode(map[string]json.RawMessage{"value": value})
		}
	}))
	defer ts.Close()

	c := New(ts.URL)
	type user struct {
		Name string `json:"name"`
		Age  int    `json:"age"`
	}

	require.NoError(t, c.SetJSON(context.Background(), "user:1", user{Name: "Alice", Age: 30}, 0))

	var got user
	require.NoError(t, c.GetJSON(context.Background(), "user:1", &got))
	assert.Equal(t, user{Name: "Alice", Age: 30}, got)

	err := c.GetJSON(context.Background(), "user:2", &got)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKeyEscaping(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/kv/a%2Fb%20c", r.URL.EscapedPath())
		io.WriteString(w, `{"value":"v"}`)
	}))
	defer ts.Close()

	_, err := New(ts.URL).Get(context.Background(), "a/b c")
	require.NoError(t, err)
}

func TestHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/health", r.URL.Path)
			w.WriteHeader(http.StatusOK)
		}))
		defer ts.Close()

		assert.NoError(t, New(ts.URL).Health(context.Background()))
	})

	t.Run("no nodes", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer ts.Close()

		assert.Error(t, New(ts.URL).Health(context.Background()))
	})
}

func TestServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := New(ts.URL)
	_, err := c.Get(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	assert.Error(t, c.Set(context.Background(), "k", "v", 0))
}
