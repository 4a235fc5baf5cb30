package server

import (
	"context"
	"net"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/juparave/legacyfix/internal/logging"
)

type tokenKey struct{}

// TokenFromContext returns the bearer token accepted by requireAuth
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// requireAuth rejects requests without a bearer token. When tokens is
// non-empty, only the listed tokens are accepted.
func requireAuth(tokens []string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			writeMessage(r.Context(), w, http.StatusUnauthorized, "No token provided")
			return
		}
		if len(tokens) > 0 && !slices.Contains(tokens, token) {
			writeMessage(r.Context(), w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), tokenKey{}, token)))
	})
}

// withRequestLogger tags each request with an ID and a request-scoped logger
func withRequestLogger(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		reqLogger := logger.With("request", id)
		start := time.Now()
		next.ServeHTTP(w, r.WithContext(logging.WithLogger(r.Context(), reqLogger)))
		reqLogger.Debug("handled", "method", r.Method, "path", r.URL.Path, "elapsed", time.Since(start).Round(time.Millisecond))
	})
}

// ipLimiter keeps one token bucket per client address. A bucket idle for a
// whole window has refilled, so it is dropped and recreated on demand.
type ipLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*clientLimiter
	every     rate.Limit
	burst     int
	window    time.Duration
	lastPrune time.Time
	now       func() time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newIPLimiter allows limit requests per window for each client
func newIPLimiter(limit int, window time.Duration) *ipLimiter {
	return &ipLimiter{
		limiters:  make(map[string]*clientLimiter),
		every:     rate.Every(window / time.Duration(limit)),
		burst:     limit,
		window:    window,
		lastPrune: time.Now(),
		now:       time.Now,
	}
}

func (l *ipLimiter) allow(key string) bool {
	l.mu.Lock()
	now := l.now()
	if now.Sub(l.lastPrune) >= l.window {
		l.prune(now)
	}

	c, ok := l.limiters[key]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(l.every, l.burst)}
		l.limiters[key] = c
	}
	c.lastSeen = now
	l.mu.Unlock()

	return c.limiter.AllowN(now, 1)
}

// prune drops buckets idle for at least one window. Callers hold mu.
func (l *ipLimiter) prune(now time.Time) {
	for key, c := range l.limiters {
		if now.Sub(c.lastSeen) >= l.window {
			delete(l.limiters, key)
		}
	}
	l.lastPrune = now
}

func (l *ipLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

func (l *ipLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(clientIP(r)) {
			writeMessage(r.Context(), w, http.StatusTooManyRequests,
				"Too many requests for AI suggestions. Please try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
