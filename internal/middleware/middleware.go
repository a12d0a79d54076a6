// Package middleware provides the HTTP middleware applied to API routes.
package middleware

import "net/http"

// Middleware wraps a handler.
type Middleware func(http.HandlerFunc) http.HandlerFunc

// Chain composes middlewares so that the first one is outermost.
func Chain(mws ...Middleware) Middleware {
	return func(final http.HandlerFunc) http.HandlerFunc {
		for i := len(mws) - 1; i >= 0; i-- {
			final = mws[i](final)
		}
		return final
	}
}
