package middleware

import (
	"net/http"
	"runtime/debug"

	"giaoan/internal/errlog"
)

// Recover turns a handler panic into a 500 response and an error log entry.
func Recover() Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					errlog.Logf("[HTTP] panic in %s %s (request %s): %v\n%s",
						r.Method, r.URL.Path, GetRequestID(r.Context()), rec, debug.Stack())
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					w.Write([]byte(`{"error":"internal server error"}`))
				}
			}()
			next(w, r)
		}
	}
}
