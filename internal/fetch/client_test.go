package fetch

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestGetSendsUserAgent verifies the configured User-Agent reaches the server
// and the body streams back with its size.
func TestGetSendsUserAgent(t *testing.T) {
	t.Parallel()

	var gotUA atomic.Value

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA.Store(r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("payload"))
	}))
	defer server.Close()

	client := New(WithUserAgent("CottageLauncher/test"))

	resp, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "payload", string(body))
	require.Equal(t, int64(len("payload")), resp.Size)
	require.Equal(t, "CottageLauncher/test", gotUA.Load())
}

// TestGetRetriesServerErrors verifies transient 5xx responses are retried
// until the server recovers.
func TestGetRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := New(WithMaxRetries(3), WithBaseDelay(time.Millisecond))

	resp, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)

	defer resp.Body.Close()

	require.EqualValues(t, 3, attempts.Load())
}

// TestGetNotFoundIsFinal verifies 404 responses are not retried.
func TestGetNotFoundIsFinal(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := New(WithMaxRetries(3), WithBaseDelay(time.Millisecond))

	_, err := client.Get(context.Background(), server.URL)
	require.ErrorIs(t, err, ErrNotFound)
	require.EqualValues(t, 1, attempts.Load())
}

// TestGetJSON verifies JSON responses decode into the target value.
func TestGetJSON(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":"fabric-api","title":"Fabric API"}`))
	}))
	defer server.Close()

	client := New()

	var out struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}

	require.NoError(t, client.GetJSON(context.Background(), server.URL, &out))
	require.Equal(t, "fabric-api", out.ID)
	require.Equal(t, "Fabric API", out.Title)
}

// TestBreakerOpensAfterRepeatedFailures verifies that a persistently failing
// host stops receiving requests once its circuit opens.
func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(WithMaxRetries(0), WithBaseDelay(time.Millisecond))

	for range breakerTripThreshold {
		_, err := client.Get(context.Background(), server.URL)
		require.ErrorIs(t, err, ErrUnavailable)
	}

	before := attempts.Load()

	_, err := client.Get(context.Background(), server.URL)
	require.ErrorIs(t, err, ErrUnavailable)
	require.Equal(t, before, attempts.Load(), "open circuit should not reach the server")
}
