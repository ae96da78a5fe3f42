package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPResolver_TokenFromPhone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/tokens", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "+16095551313", body["phone"])

		json.NewEncoder(w).Encode(map[string]string{"userToken": "fpwtok-0123456789abcdef0123"})
	}))
	defer srv.Close()

	r := NewHTTPResolver(srv.URL)
	token, err := r.TokenFromPhone(context.Background(), "+16095551313")
	require.NoError(t, err)
	assert.Equal(t, "fpwtok-0123456789abcdef0123", token)
}

func TestHTTPResolver_PhoneFromToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/v1/phones/fpwtok-0123456789abcdef0123", r.URL.Path)

		json.NewEncoder(w).Encode(map[string]string{"phone": "+16095551313"})
	}))
	defer srv.Close()

	r := NewHTTPResolver(srv.URL)
	phone, err := r.PhoneFromToken(context.Background(), "fpwtok-0123456789abcdef0123")
	require.NoError(t, err)
	assert.Equal(t, "+16095551313", phone)
}

func TestHTTPResolver_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	r := NewHTTPResolver(srv.URL)

	_, err := r.TokenFromPhone(context.Background(), "+16095551313")
	assert.Error(t, err)

	_, err = r.PhoneFromToken(context.Background(), "sometoken-01234567890")
	assert.Error(t, err)
}
