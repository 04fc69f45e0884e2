// Package ticksweep is the one generic "sweep entries older than a TTL"
// routine reused by every TTL-bearing cache in the system: pending lobbies
// (spec.md §4.9), ongoing games (§4.10), hub pending games (§4.13) and the
// host's hub-disconnect buffer (§4.14). The hub's running-games cache has
// no TTL and is not swept. The source this spec was
// distilled from implements exactly one such routine and reuses it
// everywhere rather than duplicating expiry logic per cache.
package ticksweep

import "time"

// ExpiredKeys returns every key whose recorded insertion time is older than
// ttl as of now. Callers own removing the corresponding cache entries —
// this package never mutates caller state, keeping cache ownership rules
// (spec.md §3) intact.
func ExpiredKeys[K comparable](insertedAt map[K]time.Time, ttl time.Duration, now time.Time) []K {
	var expired []K
	for k, t := range insertedAt {
		if now.Sub(t) >= ttl {
			expired = append(expired, k)
		}
	}
	return expired
}
