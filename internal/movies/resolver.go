package movies

import (
	"context"
	"fmt"

	"github.com/eventura/movie-autocomplete/internal/store"
)

// Resolver turns a normalized prefix into candidate movie ids via a
// lexicographic range scan over the title index, and serves the empty-query
// trending path from the popularity index.
type Resolver struct {
	store        store.Store
	candidateCap int64
}

// NewResolver creates a Resolver. candidateCap bounds the number of title
// index members scanned per query to cap the cost of broad prefixes.
func NewResolver(s store.Store, candidateCap int) *Resolver {
	if candidateCap <= 0 {
		candidateCap = 100
	}
	return &Resolver{store: s, candidateCap: int64(candidateCap)}
}

// Candidates returns the deduplicated movie ids whose normalized titles start
// with the given normalized prefix, in title order. An empty result is
// success, not an error.
func (r *Resolver) Candidates(ctx context.Context, prefix string) ([]string, error) {
	min := "[" + prefix
	max := "[" + prefix + lexMaxSentinel
	members, err := r.store.RangeByLex(ctx, titleIndexSet, min, max, r.candidateCap)
	if err != nil {
		return nil, fmt.Errorf("resolving candidates for %q: %w", prefix, err)
	}
	// Dedup defensively: stale index members can map several entries to one id.
	seen := make(map[string]struct{}, len(members))
	ids := make([]string, 0, len(members))
	for _, member := range members {
		id := idFromTitleMember(member)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

// Trending returns up to count movie ids with their popularity scores,
// ordered by descending popularity.
func (r *Resolver) Trending(ctx context.Context, count int64) ([]store.Member, error) {
	members, err := r.store.TopByScore(ctx, popularitySet, count)
	if err != nil {
		return nil, fmt.Errorf("resolving trending: %w", err)
	}
	return members, nil
}
