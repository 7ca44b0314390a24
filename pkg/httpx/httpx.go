package httpx

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// WriteJSON writes v as a JSON response with status 200.
func WriteJSON(w http.ResponseWriter, v any) {
	WriteJSONStatus(w, http.StatusOK, v)
}

// WriteJSONStatus writes v as JSON with an explicit status code.
func WriteJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes the flat error shape the web client surfaces verbatim:
// {"error": "..."}.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSONStatus(w, status, map[string]string{"error": message})
}

// WriteRateLimited writes a 429 with a Retry-After header.
func WriteRateLimited(w http.ResponseWriter, retryAfterSec int) {
	if retryAfterSec > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	}
	WriteJSONStatus(w, http.StatusTooManyRequests, map[string]string{"error": "Too many attempts. Try again later."})
}

// DecodeJSON decodes a request body into v, rejecting unknown payload noise
// only insofar as JSON syntax goes; unknown fields are ignored to stay
// compatible with older front-end variants.
func DecodeJSON(r *http.Request, v any) error {
	defer func() { _ = r.Body.Close() }()
	return json.NewDecoder(r.Body).Decode(v)
}
