// path: internal/platform/registry.go
package platform

import (
	"fmt"
	"sync"
	"time"

	"github.com/techappsUT/social-scheduler/internal/store"
	"golang.org/x/time/rate"
)

// rateLimits are conservative per-platform outbound caps so a burst of
// due posts claimed in one tick cannot itself trigger platform 429s,
// grounded on the teacher's ratelimiter.go constants.
var rateLimits = map[store.Platform]rate.Limit{
	store.PlatformTwitter:   rate.Every(seconds(15*60) / 300),
	store.PlatformFacebook:  rate.Every(seconds(60*60) / 200),
	store.PlatformInstagram: rate.Every(seconds(60*60) / 200),
	store.PlatformTelegram:  rate.Every(seconds(1) / 30),
	store.PlatformMastodon:  rate.Every(seconds(5*60) / 300),
	store.PlatformBluesky:   rate.Every(seconds(5*60) / 300),
	store.PlatformDiscord:   rate.Every(seconds(2) / 5),
	store.PlatformThreads:   rate.Every(seconds(60*60) / 200),
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

// Registry holds one Adapter per platform plus a per-platform rate
// limiter, the way the teacher's AdapterRegistry and RateLimiter do
// separately; this merges both concerns behind a single lookup so the
// publisher only has to ask for "the platform's adapter".
type Registry struct {
	mu       sync.RWMutex
	adapters map[store.Platform]Adapter
	limiters map[store.Platform]*rate.Limiter
}

func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[store.Platform]Adapter),
		limiters: make(map[store.Platform]*rate.Limiter),
	}
}

func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := a.Platform()
	r.adapters[p] = a

	limit, ok := rateLimits[p]
	if !ok {
		limit = rate.Every(seconds(1))
	}
	r.limiters[p] = rate.NewLimiter(limit, 5)
}

func (r *Registry) Get(p store.Platform) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.adapters[p]
	if !ok {
		return nil, fmt.Errorf("platform: no adapter registered for %q", p)
	}
	return a, nil
}

func (r *Registry) Limiter(p store.Platform) *rate.Limiter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.limiters[p]
}

func (r *Registry) ListPlatforms() []store.Platform {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]store.Platform, 0, len(r.adapters))
	for p := range r.adapters {
		out = append(out, p)
	}
	return out
}
