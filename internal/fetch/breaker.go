package fetch

import (
	"sync"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"
)

// breakerTripThreshold is the number of consecutive failures after which
// a host's circuit opens.
const breakerTripThreshold = 5

// hostBreakers holds one circuit breaker per upstream host.
// A flapping artifact mirror must not take down catalog traffic, so
// breakers are keyed by host rather than shared.
type hostBreakers struct {
	mu       sync.RWMutex
	breakers map[string]*circuit.Breaker
}

func newHostBreakers() *hostBreakers {
	return &hostBreakers{
		breakers: make(map[string]*circuit.Breaker),
	}
}

// forURL returns the breaker for the URL's host, creating it on first use.
func (hb *hostBreakers) forURL(rawURL string) *circuit.Breaker {
	host := hostOf(rawURL)

	hb.mu.RLock()
	breaker, ok := hb.breakers[host]
	hb.mu.RUnlock()

	if ok {
		return breaker
	}

	hb.mu.Lock()
	defer hb.mu.Unlock()

	// Double-check after acquiring the write lock.
	if breaker, ok = hb.breakers[host]; ok {
		return breaker
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	breaker = circuit.NewBreakerWithOptions(&circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ThresholdTripFunc(breakerTripThreshold),
	})

	hb.breakers[host] = breaker

	return breaker
}
