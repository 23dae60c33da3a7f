// Package proxy defines the HTTP front of a node. Components register their
// handlers on the proxy which serves them once started.
package proxy

import (
	"encoding/json"
	"net/http"
)

// Proxy defines the primitives to implement an http client that handles
// client side requests
type Proxy interface {
	// Listen starts the proxy server. This call is assumed to be blocking
	Listen()

	// Stop stops the proxy server
	Stop()

	// RegisterHandler registers a new handler for the path. The path can
	// contain variables like /elections/{id}. The handler is restricted to
	// the methods if any is given.
	RegisterHandler(path string, handler func(http.ResponseWriter, *http.Request), methods ...string)
}

// ErrorJSON is the body of a response when a request fails.
type ErrorJSON struct {
	Error string `json:"error"`
}

// RespondJSON writes the payload encoded in JSON with the status code.
func RespondJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		code = http.StatusInternalServerError
		response, _ = json.Marshal(ErrorJSON{Error: err.Error()})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// RespondError writes the error as a JSON response with the status code.
func RespondError(w http.ResponseWriter, code int, err error) {
	RespondJSON(w, code, ErrorJSON{Error: err.Error()})
}
