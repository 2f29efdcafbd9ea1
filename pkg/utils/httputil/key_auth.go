package httputil

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

var errInvalidKey = errors.New("invalid key")

// KeyAuthMiddleware accepts requests bearing one of the configured keys. With
// no keys configured every request is rejected.
type KeyAuthMiddleware struct {
	next http.Handler
	keys [][]byte
}

func UseKeyAuth(keys []string, next http.Handler) *KeyAuthMiddleware {
	m := &KeyAuthMiddleware{next: next}
	for _, k := range keys {
		if k != "" {
			m.keys = append(m.keys, []byte(k))
		}
	}
	return m
}

func (m *KeyAuthMiddleware) authorized(r *http.Request) bool {
	bearer, key, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(bearer, "bearer") {
		return false
	}

	c := 0
	for _, k := range m.keys {
		c |= subtle.ConstantTimeCompare(k, []byte(key))
	}
	return c == 1
}

func (m *KeyAuthMiddleware) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	if !m.authorized(r) {
		RespondError(rw, http.StatusUnauthorized, "unauthorized", errInvalidKey)
		return
	}

	m.next.ServeHTTP(rw, r)
}
