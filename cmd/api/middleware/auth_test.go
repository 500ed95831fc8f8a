// Package middleware holds the gin middleware the API server installs:
// CORS, API-key authentication and request logging.
package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIKey(t *testing.T) {
	router := newRouter(APIKey("secret"))

	cases := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"api key header", HeaderAPIKey, "secret", http.StatusOK},
		{"bearer token", "Authorization", "Bearer secret", http.StatusOK},
		{"lowercase bearer", "Authorization", "bearer secret", http.StatusOK},
		{"wrong key", HeaderAPIKey, "guess", http.StatusUnauthorized},
		{"basic auth", "Authorization", "Basic secret", http.StatusUnauthorized},
		{"missing", "", "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tc.header != "" {
				req.Header.Set(tc.header, tc.value)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tc.want, w.Code)
		})
	}

	t.Run("unauthorized uses the error envelope", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.JSONEq(t, `{"error":{"message":"invalid or missing API key","code":"unauthorized"}}`, w.Body.String())
	})

	t.Run("empty key disables auth", func(t *testing.T) {
		open := newRouter(APIKey(""))
		w := httptest.NewRecorder()
		open.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})
}
