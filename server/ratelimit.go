package server

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ipRateLimiter keeps a token bucket per client IP. Buckets idle past the
// stale cutoff are dropped by an opportunistic sweep on lookup.
type ipRateLimiter struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	buckets map[string]*bucket
	lastGC  time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const bucketStaleAfter = 10 * time.Minute

func newIPRateLimiter(requests int, window time.Duration) *ipRateLimiter {
	return &ipRateLimiter{
		limit:   rate.Limit(float64(requests) / window.Seconds()),
		burst:   requests,
		buckets: make(map[string]*bucket),
		lastGC:  time.Now(),
	}
}

func (l *ipRateLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastGC) > bucketStaleAfter {
		for key, b := range l.buckets {
			if now.Sub(b.lastSeen) > bucketStaleAfter {
				delete(l.buckets, key)
			}
		}
		l.lastGC = now
	}

	b, ok := l.buckets[ip]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[ip] = b
	}
	b.lastSeen = now
	return b.limiter.Allow()
}

// clientIP extracts the originating address, trusting X-Forwarded-For from
// the fronting proxy.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		for i := 0; i < len(forwarded); i++ {
			if forwarded[i] == ',' {
				return forwarded[:i]
			}
		}
		return forwarded
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
