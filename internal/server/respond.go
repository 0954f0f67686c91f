package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// envelope wraps a payload in the standard response shape.
func envelope(data any) map[string]any {
	return map[string]any{
		"data": data,
		"metadata": map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	}
}

// writeJSON writes a JSON response
func writeJSON(log zerolog.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeData writes an enveloped data response.
func writeData(log zerolog.Logger, w http.ResponseWriter, status int, data any) {
	writeJSON(log, w, status, envelope(data))
}

// writeError writes a JSON error payload.
func writeError(log zerolog.Logger, w http.ResponseWriter, status int, message string) {
	writeJSON(log, w, status, map[string]string{"error": message})
}

// decodeBody decodes a JSON request body into dst and validates it.
func decodeBody(v *Validator, r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return v.Validate(dst)
}

// parseDate parses a YYYY-MM-DD request field.
func parseDate(field, value string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be YYYY-MM-DD, got %q", field, value)
	}
	return t, nil
}

// parseOptionalDate parses a YYYY-MM-DD field, treating empty as unset.
func parseOptionalDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return parseDate(field, value)
}
