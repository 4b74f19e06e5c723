package auth

import (
	"sync"

	"golang.org/x/time/rate"
)

// Fallback limits applied when the security config leaves them unset.
// 20 req/s with a burst of 40 comfortably covers one chat client
// polling history plus a typing signal per keystroke.
const (
	defaultRPS   = 20
	defaultBurst = 40
)

// limiterPool hands out one token bucket per caller key (session token
// or remote IP). Buckets are created lazily and never evicted; keys are
// bounded by the number of active sessions and source addresses.
type limiterPool struct {
	rps   rate.Limit
	burst int

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

func newLimiterPool(cfg SecConfig) *limiterPool {
	rps := rate.Limit(cfg.RPS)
	if rps <= 0 {
		rps = defaultRPS
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = defaultBurst
	}
	return &limiterPool{
		rps:     rps,
		burst:   burst,
		buckets: make(map[string]*rate.Limiter),
	}
}

// Allow reports whether the caller identified by key may proceed,
// consuming one token from its bucket.
func (p *limiterPool) Allow(key string) bool {
	p.mu.Lock()
	l, ok := p.buckets[key]
	if !ok {
		l = rate.NewLimiter(p.rps, p.burst)
		p.buckets[key] = l
	}
	p.mu.Unlock()
	return l.Allow()
}
