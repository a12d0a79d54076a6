// Package router provides centralized API route registration.
// All HTTP routes are registered here with the middleware each group needs.
package router

import (
	"net/http"
	"time"

	"giaoan/internal/handler"
	"giaoan/internal/middleware"
)

// Register registers all API routes on mux and returns a cleanup function
// that stops the rate limiters' background goroutines.
func Register(mux *http.ServeMux, app *handler.App) func() {
	// SecurityHeaders + RequestID + Recover
	secureAPI := middleware.Chain(
		middleware.SecurityHeaders(),
		middleware.RequestID(),
		middleware.Recover(),
	)

	// Auth rate limiter: 10 attempts per minute per IP
	authRL := middleware.NewRateLimiter(10, time.Minute)
	// Generation and anonymous rendering are expensive: 20 per minute per IP
	heavyRL := middleware.NewRateLimiter(20, time.Minute)

	secure := func(h http.HandlerFunc) http.HandlerFunc {
		return secureAPI(h)
	}
	secureRL := func(rl *middleware.RateLimiter, h http.HandlerFunc) http.HandlerFunc {
		return secureAPI(rl.Limit()(h))
	}

	// ── Accounts ──
	mux.HandleFunc("/api/auth/register", secureRL(authRL, handler.HandleRegister(app)))
	mux.HandleFunc("/api/auth/login", secureRL(authRL, handler.HandleLogin(app)))
	mux.HandleFunc("/api/auth/logout", secure(handler.HandleLogout(app)))

	// ── Lesson plans ──
	mux.HandleFunc("/api/plans", secure(handler.HandlePlans(app)))
	mux.HandleFunc("/api/plans/generate", secureRL(heavyRL, handler.HandleGeneratePlan(app)))
	mux.HandleFunc("/api/plans/", secure(handler.HandlePlanByID(app)))

	// ── Rendering ──
	mux.HandleFunc("/api/render", secureRL(heavyRL, handler.HandleRender(app)))

	// ── Health check ──
	mux.HandleFunc("/api/health", secure(handler.HandleHealth(app)))

	return func() {
		authRL.Stop()
		heavyRL.Stop()
	}
}
