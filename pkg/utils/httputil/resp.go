package httputil

import (
	"encoding/json"
	"net/http"
)

func RespondJSON(rw http.ResponseWriter, resp any) {
	RespondJSONStatus(rw, http.StatusOK, resp)
}

func RespondJSONStatus(rw http.ResponseWriter, status int, resp any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	json.NewEncoder(rw).Encode(resp)
}

// ErrorBody is the JSON body of error responses.
type ErrorBody struct {
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

func RespondError(rw http.ResponseWriter, status int, kind string, err error) {
	RespondJSONStatus(rw, status, ErrorBody{Kind: kind, Error: err.Error()})
}
