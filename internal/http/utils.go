package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/localboost/localboost/internal/domain"
	"github.com/localboost/localboost/pkg/logger"
)

// maxBodyBytes bounds JSON request bodies
const maxBodyBytes = 1 << 20

// MissingParameterError is an error type for missing URL parameters
type MissingParameterError struct {
	Param string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("Missing parameter: %s", e.Param)
}

// WriteJSONError writes a JSON error response with the given message and status code.
// The body is formatted as {"error": "message"}.
func WriteJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// writeJSON writes a JSON response with the given status code and data.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a bounded JSON body into v
func decodeJSON(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("failed to read request body: %w", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("Invalid request body: %w", err)
	}
	return nil
}

// writeServiceError maps service errors onto status codes. Unexpected
// errors are logged and hidden behind a generic message.
func writeServiceError(w http.ResponseWriter, log logger.Logger, action string, err error) {
	var transition *domain.ErrInvalidTransition
	switch {
	case domain.IsValidationError(err):
		WriteJSONError(w, err.Error(), http.StatusBadRequest)
	case domain.IsNotFound(err):
		WriteJSONError(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &transition):
		WriteJSONError(w, err.Error(), http.StatusConflict)
	default:
		log.WithField("error", err.Error()).Error(fmt.Sprintf("Failed to %s", action))
		WriteJSONError(w, fmt.Sprintf("Failed to %s", action), http.StatusInternalServerError)
	}
}

// parseIntParam parses an optional integer query parameter
func parseIntParam(value string, fallback int) (int, error) {
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", value)
	}
	return n, nil
}

func allowMethods(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
	return false
}
