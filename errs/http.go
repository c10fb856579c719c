package errs

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
)

// codes maps application error codes to http status codes.
var codes = map[string]int{
	EINTERNAL:   http.StatusInternalServerError,
	EINVALID:    http.StatusBadRequest,
	ENOTFOUND:   http.StatusNotFound,
	ENOTALLOWED: http.StatusMethodNotAllowed,
}

// StatusCode returns the http status code for an application error code.
func StatusCode(code string) int {
	if v, ok := codes[code]; ok {
		return v
	}
	return http.StatusInternalServerError
}

// Response is the json body sent to the client when a request fails.
type Response struct {
	ErrorCode  string `json:"error_code"`
	Message    string `json:"message"`
	Resolution string `json:"resolution,omitempty"`
}

// ReturnError writes err to the response as json, using the status code that belongs
// to the error's code. Internal errors are logged and replaced by the generic
// ServerError body, so that no database details leak to the client.
func ReturnError(w http.ResponseWriter, r *http.Request, err error) {
	code := ErrorCode(err)
	if code == EINTERNAL {
		LogError(r, err)
	}

	body := Response{
		ErrorCode: ServerError.Title,
		Message:   ServerError.Message,
	}
	var e *Error
	if errors.As(err, &e) && code != EINTERNAL {
		body = Response{
			ErrorCode:  e.Title,
			Message:    e.Message,
			Resolution: e.Resolution,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusCode(code))
	if err := json.NewEncoder(w).Encode(&body); err != nil {
		LogError(r, err)
	}
}

// LogError logs an error along with the request it occurred in.
func LogError(r *http.Request, err error) {
	log.Printf("[http] error: %s %s: %s", r.Method, r.URL.Path, err)
}
