package common

import (
	"errors"
	"net/http"

	"github.com/bytedance/sonic"

	"github.com/testbed-portal/discovery-finder/pkg/logger"
)

type Encoder interface {
	Encode(v any) error
}

// HttpError carries the status a handler wants to answer with.
type HttpError struct {
	Status  int
	Message string
}

func (e *HttpError) Error() string {
	return e.Message
}

func NewHttpError(status int, message string) *HttpError {
	return &HttpError{Status: status, Message: message}
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

// JsonHandler sets up a json response and turns a returned error into an
// ErrorResponse. Errors that are not an *HttpError answer 500.
func JsonHandler(fn func(w http.ResponseWriter, r *http.Request, enc Encoder) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			RespondToOptions(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		enc := sonic.ConfigDefault.NewEncoder(w)
		err := fn(w, r, enc)
		if err == nil {
			return
		}
		status := http.StatusInternalServerError
		var httpErr *HttpError
		if errors.As(err, &httpErr) {
			status = httpErr.Status
		}
		logger.Error().Str("path", r.URL.Path).Int("status", status).Err(err).Msg("error handling request")
		w.WriteHeader(status)
		if encErr := enc.Encode(ErrorResponse{Error: true, Message: err.Error()}); encErr != nil {
			logger.Error().Err(encErr).Msg("failed to write error response")
		}
	}
}

func RespondToOptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	origin := r.Header.Get("Origin")
	if origin != "" {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Max-Age", "86400")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
	}
	w.Header().Set("Age", "0")
	w.WriteHeader(http.StatusAccepted)
}
