package httputil

import (
	"fmt"
	"io"
	"net/http"
)

// ErrHTTPStatus is a non-2xx response status.
type ErrHTTPStatus int

func (s ErrHTTPStatus) Error() string {
	return fmt.Sprintf("unexpected status code: %d %s", int(s), http.StatusText(int(s)))
}

func (s ErrHTTPStatus) Temporary() bool {
	return s == http.StatusTooManyRequests || int(s) >= 500
}

func CheckStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return ErrHTTPStatus(resp.StatusCode)
}

// Drain discards the rest of the body so that the connection can be reused.
func Drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
