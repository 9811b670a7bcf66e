package movies

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/eventura/movie-autocomplete/internal/store"
)

// Ranking weights. Policy constants, not derived.
const (
	weightPrefix     = 0.65
	weightPopularity = 0.25
	weightRecency    = 0.10
)

// Suggestion is a ranked autocomplete result: the movie record plus its
// composite score.
type Suggestion struct {
	Movie
	Score float64 `json:"score"`
}

// candidate bundles a record with its ranking signals.
type candidate struct {
	movie      Movie
	popularity float64
	release    int64
}

// fetchCandidates issues one pipelined round trip fetching record fields,
// popularity, and release time for every id. Records without a title are
// dropped as stale. A missing release score is treated as "now" so it
// contributes no recency delta.
func fetchCandidates(ctx context.Context, s store.Store, ids []string, now int64) ([]candidate, error) {
	batch := &store.ReadBatch{}
	type replySet struct {
		fields  *store.FieldsReply
		pop     *store.ScoreReply
		release *store.ScoreReply
	}
	replies := make([]replySet, len(ids))
	for i, id := range ids {
		replies[i] = replySet{
			fields:  batch.Fields(recordKey(id)),
			pop:     batch.Score(popularitySet, id),
			release: batch.Score(releaseSet, id),
		}
	}
	if err := s.BulkRead(ctx, batch); err != nil {
		return nil, fmt.Errorf("fetching %d candidates: %w", len(ids), err)
	}

	candidates := make([]candidate, 0, len(ids))
	for i, id := range ids {
		movie, ok := DecodeFields(id, replies[i].fields.Val())
		if !ok {
			continue
		}
		pop, _ := replies[i].pop.Val()
		release := now
		if v, ok := replies[i].release.Val(); ok {
			release = int64(v)
		}
		candidates = append(candidates, candidate{movie: movie, popularity: pop, release: release})
	}
	return candidates, nil
}

// rank computes composite scores and returns the candidates ordered by
// descending score, capped at limit. Prefix match dominates, blended with
// popularity and recency normalized over the candidate set. Ties break by id
// ascending so results are deterministic.
func rank(candidates []candidate, query string, limit int, now int64) []Suggestion {
	maxPop := 1.0
	maxDelta := 1.0
	for _, c := range candidates {
		if c.popularity > maxPop {
			maxPop = c.popularity
		}
		if delta := float64(now - c.release); delta > maxDelta {
			maxDelta = delta
		}
	}

	ranked := make([]Suggestion, 0, len(candidates))
	for _, c := range candidates {
		prefixScore := 0.5
		if strings.HasPrefix(Normalize(c.movie.Title), query) {
			prefixScore = 1.0
		}
		// Can dip below zero for releases newer than the candidate max;
		// accepted drift, not clamped.
		recency := 1 - float64(now-c.release)/maxDelta
		score := weightPrefix*prefixScore +
			weightPopularity*(c.popularity/maxPop) +
			weightRecency*recency
		ranked = append(ranked, Suggestion{Movie: c.movie, Score: score})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].ID < ranked[j].ID
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
