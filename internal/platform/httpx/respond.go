package httpx

import (
	"encoding/json"
	"mime"
	"net/http"
	"strings"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// ErrorBody is the error payload shape shared by every JSON endpoint.
type ErrorBody struct {
	Error string `json:"error"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Error sends {"error": msg}.
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, ErrorBody{Error: msg})
}

// DecodeJSON decodes JSON request body into the target struct.
func DecodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(target)
}

// IsJSON reports whether the request declares a JSON body.
func IsJSON(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return strings.EqualFold(mediaType, "application/json")
}

// RequireJSON rejects mutation requests that do not declare a JSON body.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsJSON(r) {
			Error(w, http.StatusUnsupportedMediaType, ErrUnsupportedMediaType.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CORS headers sent on preflight and regular responses.
const (
	corsAllowMethods = "GET, POST, OPTIONS"
	corsAllowHeaders = "Content-Type, X-User-Email, X-User-Name"
)

// SetCORS writes permissive CORS headers.
func SetCORS(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", corsAllowMethods)
	h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
}

// Preflight answers OPTIONS and HEAD with 204 and CORS headers. It returns
// true when the request was handled.
func Preflight(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodOptions && r.Method != http.MethodHead {
		return false
	}
	SetCORS(w)
	w.WriteHeader(http.StatusNoContent)
	return true
}

// MethodNotAllowed writes the 405 error payload.
func MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	Error(w, http.StatusMethodNotAllowed, ErrMethodNotAllowed.Error())
}

// NotFound writes the 404 error payload.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	Error(w, http.StatusNotFound, "Not found")
}
