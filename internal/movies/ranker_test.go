package movies

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankOrdersByCompositeScore(t *testing.T) {
	now := time.Now().Unix()
	candidates := []candidate{
		{movie: Movie{ID: "1", Title: "Inception"}, popularity: 0, release: now - 1000},
		{movie: Movie{ID: "2", Title: "Interstellar"}, popularity: 10, release: now - 100},
		{movie: Movie{ID: "3", Title: "Batman Begins"}, popularity: 5, release: now - 500},
	}

	ranked := rank(candidates, "int", 5, now)
	require.Len(t, ranked, 3)

	// Interstellar is the only prefix match and leads; Batman Begins beats
	// Inception on popularity and recency among the non-matches.
	assert.Equal(t, "2", ranked[0].ID)
	assert.Equal(t, "3", ranked[1].ID)
	assert.Equal(t, "1", ranked[2].ID)

	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i-1].Score, ranked[i].Score,
			"scores must be non-increasing")
	}
}

func TestRankPrefixWeightDominates(t *testing.T) {
	now := time.Now().Unix()
	candidates := []candidate{
		{movie: Movie{ID: "a", Title: "Alien"}, popularity: 1000, release: now - 100000},
		{movie: Movie{ID: "b", Title: "Brazil"}, popularity: 0, release: now},
	}
	ranked := rank(candidates, "br", 5, now)
	require.Len(t, ranked, 2)
	assert.Equal(t, "b", ranked[0].ID)
}

func TestRankTiesBreakByID(t *testing.T) {
	now := time.Now().Unix()
	candidates := []candidate{
		{movie: Movie{ID: "9", Title: "Heat"}, popularity: 3, release: now - 50},
		{movie: Movie{ID: "2", Title: "Heat"}, popularity: 3, release: now - 50},
		{movie: Movie{ID: "5", Title: "Heat"}, popularity: 3, release: now - 50},
	}
	ranked := rank(candidates, "he", 5, now)
	require.Len(t, ranked, 3)
	assert.Equal(t, "2", ranked[0].ID)
	assert.Equal(t, "5", ranked[1].ID)
	assert.Equal(t, "9", ranked[2].ID)
}

func TestRankTruncatesToLimit(t *testing.T) {
	now := time.Now().Unix()
	candidates := make([]candidate, 0, 10)
	for i := 0; i < 10; i++ {
		candidates = append(candidates, candidate{
			movie:   Movie{ID: string(rune('a' + i)), Title: "Movie"},
			release: now,
		})
	}
	ranked := rank(candidates, "mo", 3, now)
	assert.Len(t, ranked, 3)
}

func TestRankFutureReleaseAccepted(t *testing.T) {
	now := time.Now().Unix()
	candidates := []candidate{
		{movie: Movie{ID: "1", Title: "Old"}, popularity: 0, release: now - 10000},
		{movie: Movie{ID: "2", Title: "Upcoming"}, popularity: 0, release: now + 5000},
	}
	// A future release produces a recency above 1; drift is accepted, not an
	// error, and the newer title still ranks higher on the non-prefix path.
	ranked := rank(candidates, "zzz", 5, now)
	require.Len(t, ranked, 2)
	assert.Equal(t, "2", ranked[0].ID)
}

func TestRankEmptyInput(t *testing.T) {
	assert.Empty(t, rank(nil, "q", 5, time.Now().Unix()))
}
