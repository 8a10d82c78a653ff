package httpapi

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"ada-engine/internal/domain/entity"
)

type ctxKey int

const (
	userKey ctxKey = iota
	apiKeyKey
)

func userFrom(ctx context.Context) *entity.User {
	u, _ := ctx.Value(userKey).(*entity.User)
	return u
}

func apiKeyFrom(ctx context.Context) *entity.VerifiedAPIKey {
	k, _ := ctx.Value(apiKeyKey).(*entity.VerifiedAPIKey)
	return k
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

func (h *handler) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		user, err := h.Identity.Authenticate(r.Context(), token)
		if err != nil {
			h.Logger.Debug("Bearer token rejected", "error", err)
			writeDetail(w, http.StatusUnauthorized, "Failed to validate Supabase token")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}

func (h *handler) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("X-API-Key")
		if raw == "" {
			writeDetail(w, http.StatusUnauthorized, "Missing API key")
			return
		}

		key, err := h.APIKeys.Verify(r.Context(), raw)
		if err != nil {
			h.writeError(w, r, err, "Failed to verify API key")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), apiKeyKey, key)))
	})
}

func (h *handler) requireIngestionKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := h.APIKeys.VerifyIngestionKey(r.Header.Get("X-Ingestion-API-Key")); err != nil {
			writeDetail(w, http.StatusUnauthorized, "Invalid ingestion API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func limitBody(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}

const bucketIdleTTL = 10 * time.Minute

// ipLimiter keeps one token bucket per client address. A bucket idle for
// longer than ttl has refilled completely, so dropping it changes nothing
// for that client.
type ipLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*visitor
	rps       rate.Limit
	burst     int
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPLimiter(rps float64, burst int) *ipLimiter {
	if burst <= 0 {
		burst = 1
	}
	ttl := bucketIdleTTL
	if refill := time.Duration(float64(burst) / rps * float64(time.Second)); refill > ttl {
		ttl = refill
	}
	return &ipLimiter{
		buckets:   make(map[string]*visitor),
		rps:       rate.Limit(rps),
		burst:     burst,
		ttl:       ttl,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (l *ipLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.ttl {
		l.sweep(now)
	}

	v, ok := l.buckets[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.buckets[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

// sweep drops idle buckets. Callers hold l.mu.
func (l *ipLimiter) sweep(now time.Time) {
	for ip, v := range l.buckets {
		if now.Sub(v.lastSeen) >= l.ttl {
			delete(l.buckets, ip)
		}
	}
	l.lastSweep = now
}

func (l *ipLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		if !l.get(ip).Allow() {
			writeDetail(w, http.StatusTooManyRequests, "Too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}
