package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"ticket2ics/internal/dto"
)

// Auth enforces a static API token, accepted either as a bearer
// header or a ?token= query parameter. An empty configured token
// disables authentication entirely.
func Auth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := ""
			if header := r.Header.Get("Authorization"); header != "" {
				scheme, value, found := strings.Cut(header, " ")
				if found && strings.EqualFold(scheme, "bearer") {
					provided = strings.TrimSpace(value)
				}
			}
			if provided == "" {
				provided = strings.TrimSpace(r.URL.Query().Get("token"))
			}

			if provided != token {
				w.Header().Set("WWW-Authenticate", "Bearer")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(dto.ErrorResponse{
					Error:   "Invalid or missing API token",
					TraceID: GetTraceID(r.Context()),
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
