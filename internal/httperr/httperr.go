// Package httperr writes apierr.Error values onto an http.ResponseWriter,
// generalizing the pkg/http.WriteError shape to the closed Auth/Unknown
// taxonomy this API uses instead of OAuth2 error codes.
package httperr

import (
	"encoding/json"
	"net/http"

	"github.com/exampleauth/authd/internal/apierr"
	"github.com/exampleauth/authd/pkg/log"
)

// Write serializes err as the response body with its mapped status code.
// Non-apierr errors are logged and written as an opaque Unknown.
func Write(w http.ResponseWriter, logger log.Logger, err error) {
	aerr, ok := err.(*apierr.Error)
	if !ok {
		logger.Errorf("unexpected non-api error reached the handler boundary: %v", err)
		aerr = apierr.Unknownf("internal server error")
	}
	writeBody(w, aerr.StatusCode(), aerr.WireBody())
}

// WriteJSON writes a 200 response with v marshaled as the JSON body.
func WriteJSON(w http.ResponseWriter, logger log.Logger, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		logger.Errorf("failed marshaling %#v to JSON: %v", v, err)
		writeBody(w, http.StatusInternalServerError, apierr.Unknownf("internal server error").WireBody())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// WriteEmpty writes a 200 response with an empty JSON object body.
func WriteEmpty(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("{}"))
}

func writeBody(w http.ResponseWriter, code int, body apierr.Body) {
	b, err := json.Marshal(body)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err == nil {
		w.Write(b)
	}
}
