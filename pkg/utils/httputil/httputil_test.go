package httputil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestKeyAuth(t *testing.T) {
	ok := http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusNoContent)
	})

	serve := func(keys []string, authz string) int {
		rw := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if authz != "" {
			r.Header.Set("Authorization", authz)
		}
		UseKeyAuth(keys, ok).ServeHTTP(rw, r)
		return rw.Code
	}

	assert.Equal(t, serve([]string{"a", "b"}, "Bearer b"), http.StatusNoContent)
	assert.Equal(t, serve([]string{"a", "b"}, "bearer a"), http.StatusNoContent)
	assert.Equal(t, serve([]string{"a", "b"}, "Bearer c"), http.StatusUnauthorized)
	assert.Equal(t, serve([]string{"a"}, "Basic a"), http.StatusUnauthorized)
	assert.Equal(t, serve([]string{"a"}, ""), http.StatusUnauthorized)
	assert.Equal(t, serve(nil, "Bearer "), http.StatusUnauthorized)
	assert.Equal(t, serve([]string{""}, "Bearer "), http.StatusUnauthorized)
}

func TestCheckStatus(t *testing.T) {
	assert.Equal(t, CheckStatus(&http.Response{StatusCode: http.StatusOK}), nil)

	err := CheckStatus(&http.Response{StatusCode: http.StatusServiceUnavailable})
	assert.Equal(t, err, ErrHTTPStatus(http.StatusServiceUnavailable))
	assert.Equal(t, err.(ErrHTTPStatus).Temporary(), true)
	assert.Equal(t, ErrHTTPStatus(http.StatusNotFound).Temporary(), false)
}
