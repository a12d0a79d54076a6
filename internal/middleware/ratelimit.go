package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateLimiter allows at most limit requests per client IP in each fixed
// window. A background goroutine drops idle counters until Stop.
type RateLimiter struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	clients map[string]*windowCount
	stop    chan struct{}
	once    sync.Once
}

type windowCount struct {
	start time.Time
	count int
}

// NewRateLimiter creates a RateLimiter and starts its cleanup goroutine.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		limit:   limit,
		window:  window,
		clients: make(map[string]*windowCount),
		stop:    make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// Allow records a request from ip and reports whether it is within the limit.
func (rl *RateLimiter) Allow(ip string) bool {
	now := time.Now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	wc, ok := rl.clients[ip]
	if !ok || now.Sub(wc.start) >= rl.window {
		rl.clients[ip] = &windowCount{start: now, count: 1}
		return true
	}
	if wc.count >= rl.limit {
		return false
	}
	wc.count++
	return true
}

// Limit returns the middleware that answers 429 once a client exceeds the limit.
func (rl *RateLimiter) Limit() Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if !rl.Allow(GetClientIP(r)) {
				w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"too many requests"}`))
				return
			}
			next(w, r)
		}
	}
}

// Stop ends the cleanup goroutine.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case now := <-ticker.C:
			rl.mu.Lock()
			for ip, wc := range rl.clients {
				if now.Sub(wc.start) >= rl.window {
					delete(rl.clients, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// GetClientIP returns the host part of the connection's remote address.
// Forwarding headers are ignored since they are client-controlled.
func GetClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
