package middleware

import "net/http"

// MaxBytes caps request body size. Reads past the limit fail and the
// request is rejected when decoded, so oversized batch payloads cannot
// exhaust server memory.
func MaxBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
