package suggest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHTTPProviderSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var m Metrics
		require.NoError(t, json.NewDecoder(r.Body).Decode(&m))
		require.InDelta(t, 12.5, m.TotalCO2eKg, 1e-9)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(providerResponse{
			Suggestions: []string{"Stream in HD instead of 4K", "  ", "Archive old cloud files"},
		})
	}))
	defer srv.Close()

	provider := NewHTTPProvider(srv.URL, time.Second)
	got, err := provider.Suggestions(context.Background(), Metrics{TotalCO2eKg: 12.5})
	require.NoError(t, err)
	require.Equal(t, []string{"Stream in HD instead of 4K", "Archive old cloud files"}, got)
}

func TestHTTPProviderCapsSuggestions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(providerResponse{
			Suggestions: []string{"a", "b", "c", "d", "e", "f", "g"},
		})
	}))
	defer srv.Close()

	provider := NewHTTPProvider(srv.URL, time.Second)
	got, err := provider.Suggestions(context.Background(), Metrics{})
	require.NoError(t, err)
	require.Len(t, got, maxProviderSuggestions)
}

func TestHTTPProviderNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	provider := NewHTTPProvider(srv.URL, time.Second)
	_, err := provider.Suggestions(context.Background(), Metrics{})
	require.Error(t, err)
}

func TestHTTPProviderMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json at all"))
	}))
	defer srv.Close()

	provider := NewHTTPProvider(srv.URL, time.Second)
	_, err := provider.Suggestions(context.Background(), Metrics{})
	require.Error(t, err)
}

func TestHTTPProviderEmptySuggestions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(providerResponse{})
	}))
	defer srv.Close()

	provider := NewHTTPProvider(srv.URL, time.Second)
	_, err := provider.Suggestions(context.Background(), Metrics{})
	require.Error(t, err)
}
