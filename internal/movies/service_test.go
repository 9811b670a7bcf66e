package movies

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventura/movie-autocomplete/internal/store"
	"github.com/eventura/movie-autocomplete/pkg/config"
	pkgerrors "github.com/eventura/movie-autocomplete/pkg/errors"
)

func testSearchConfig() config.SearchConfig {
	return config.SearchConfig{
		DefaultLimit:     5,
		MaxResults:       25,
		CandidateCap:     100,
		ReindexBatchSize: 10,
	}
}

func newTestService(t *testing.T) (*Service, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	svc := NewService(mem, testSearchConfig(), 10*time.Second, nil, nil)
	return svc, mem
}

func TestIndexThenQueryExactTitle(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	require.NoError(t, svc.IndexOne(ctx, Movie{ID: "1", Title: "Inception", ReleaseUnix: 1279238400}))

	suggestions, cacheHit, err := svc.Autocomplete(ctx, "inception", 5)
	require.NoError(t, err)
	assert.False(t, cacheHit)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "1", suggestions[0].ID)
	assert.Equal(t, "Inception", suggestions[0].Title)
}

func TestQueryIsNormalized(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	require.NoError(t, svc.IndexOne(ctx, Movie{ID: "1", Title: "  The Matrix "}))

	suggestions, _, err := svc.Autocomplete(ctx, "  THE MA", 5)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "1", suggestions[0].ID)
}

func TestNoMatchesIsEmptyNotError(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	require.NoError(t, svc.IndexOne(ctx, Movie{ID: "1", Title: "Inception"}))

	suggestions, _, err := svc.Autocomplete(ctx, "zzz", 5)
	require.NoError(t, err)
	assert.Empty(t, suggestions)
}

func TestBatchSkipsInvalidMovies(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestService(t)

	indexed, err := svc.IndexBatch(ctx, []Movie{
		{ID: "1", Title: "Inception"},
		{Title: "No ID"},
		{ID: "9"},
		{ID: "2", Title: "Interstellar"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, indexed)

	fields, err := mem.GetFields(ctx, "movie:9")
	require.NoError(t, err)
	assert.Empty(t, fields, "invalid movie must leave the store unmodified")

	_, found, err := mem.Score(ctx, popularitySet, "9")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestEmptyBatchIsNoOp(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	indexed, err := svc.IndexBatch(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, indexed)
}

func TestPopularityIncrementsAreExact(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestService(t)

	require.NoError(t, svc.IndexOne(ctx, Movie{ID: "1", Title: "Heat"}))
	for i := 0; i < 7; i++ {
		require.NoError(t, svc.IncrementPopularity(ctx, "1"))
	}

	score, found, err := mem.Score(ctx, popularitySet, "1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 7.0, score)
}

func TestTrendingOrdersByPopularity(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.IndexBatch(ctx, []Movie{
		{ID: "1", Title: "Inception"},
		{ID: "2", Title: "Interstellar"},
		{ID: "3", Title: "Dunkirk"},
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.IncrementPopularity(ctx, "2"))
	}
	require.NoError(t, svc.IncrementPopularity(ctx, "3"))

	suggestions, _, err := svc.Autocomplete(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, suggestions, 2)
	assert.Equal(t, "2", suggestions[0].ID)
	assert.Equal(t, "3", suggestions[1].ID)
	assert.Equal(t, 3.0, suggestions[0].Score)
	assert.Equal(t, 1.0, suggestions[1].Score)
	assert.GreaterOrEqual(t, suggestions[0].Score, suggestions[1].Score)
}

func TestTrendingEmptyStore(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	suggestions, _, err := svc.Autocomplete(ctx, "", 5)
	require.NoError(t, err)
	assert.Empty(t, suggestions)
}

func TestAutocompleteDefaultLimit(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	batch := make([]Movie, 0, 8)
	ids := []string{"1", "2", "3", "4", "5", "6", "7", "8"}
	for _, id := range ids {
		batch = append(batch, Movie{ID: id, Title: "Rocky " + id})
	}
	_, err := svc.IndexBatch(ctx, batch)
	require.NoError(t, err)

	suggestions, _, err := svc.Autocomplete(ctx, "rocky", 0)
	require.NoError(t, err)
	assert.Len(t, suggestions, 5)
}

func TestCachedResultsStableWithinTTL(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := NewService(mem, testSearchConfig(), 10*time.Second, nil, nil)

	current := time.Now()
	mem.SetClock(func() time.Time { return current })
	svc.now = func() time.Time { return current }

	base := current.Unix()
	_, err := svc.IndexBatch(ctx, []Movie{
		{ID: "1", Title: "Inception", ReleaseUnix: base - 100},
		{ID: "2", Title: "Interstellar", ReleaseUnix: base - 10000},
	})
	require.NoError(t, err)

	first, cacheHit, err := svc.Autocomplete(ctx, "in", 5)
	require.NoError(t, err)
	assert.False(t, cacheHit)
	require.Len(t, first, 2)
	assert.Equal(t, "1", first[0].ID)

	for i := 0; i < 10; i++ {
		require.NoError(t, svc.IncrementPopularity(ctx, "2"))
	}

	// Within the TTL the cached ranking is served unchanged.
	second, cacheHit, err := svc.Autocomplete(ctx, "in", 5)
	require.NoError(t, err)
	assert.True(t, cacheHit)
	assert.Equal(t, first, second)

	// Past the TTL the pipeline reruns and popularity wins.
	current = current.Add(11 * time.Second)
	third, cacheHit, err := svc.Autocomplete(ctx, "in", 5)
	require.NoError(t, err)
	assert.False(t, cacheHit)
	require.Len(t, third, 2)
	assert.Equal(t, "2", third[0].ID)
}

func TestReindexRemovesStaleTitleAndKeepsPopularity(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestService(t)

	require.NoError(t, svc.IndexOne(ctx, Movie{ID: "1", Title: "Old Name"}))
	for i := 0; i < 5; i++ {
		require.NoError(t, svc.IncrementPopularity(ctx, "1"))
	}
	require.NoError(t, svc.IndexOne(ctx, Movie{ID: "1", Title: "New Name"}))

	members, err := mem.RangeByLex(ctx, titleIndexSet, "-", "+", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"new name|1"}, members)

	score, found, err := mem.Score(ctx, popularitySet, "1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 5.0, score, "popularity must survive a reindex")

	suggestions, _, err := svc.Autocomplete(ctx, "old", 5)
	require.NoError(t, err)
	assert.Empty(t, suggestions)

	suggestions, _, err = svc.Autocomplete(ctx, "new", 5)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "New Name", suggestions[0].Title)
}

func TestGetMovie(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	want := Movie{ID: "1", Title: "Inception", Rating: 8.8, ReleaseUnix: 1279238400}
	require.NoError(t, svc.IndexOne(ctx, want))

	got, err := svc.GetMovie(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = svc.GetMovie(ctx, "missing")
	assert.ErrorIs(t, err, pkgerrors.ErrMovieNotFound)
}

type fakeArchive struct {
	movies map[string]Movie
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{movies: make(map[string]Movie)}
}

func (f *fakeArchive) Upsert(ctx context.Context, ms []Movie) error {
	for _, m := range ms {
		f.movies[m.ID] = m
	}
	return nil
}

func (f *fakeArchive) Scan(ctx context.Context, batchSize int, fn func([]Movie) error) error {
	batch := make([]Movie, 0, batchSize)
	for _, m := range f.movies {
		batch = append(batch, m)
		if len(batch) == batchSize {
			if err := fn(batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		return fn(batch)
	}
	return nil
}

func TestReindexFromArchive(t *testing.T) {
	ctx := context.Background()
	arch := newFakeArchive()

	svc := NewService(store.NewMemory(), testSearchConfig(), 10*time.Second, arch, nil)
	_, err := svc.IndexBatch(ctx, []Movie{
		{ID: "1", Title: "Inception"},
		{ID: "2", Title: "Interstellar"},
	})
	require.NoError(t, err)
	assert.Len(t, arch.movies, 2)

	// Fresh store simulating Redis data loss; the archive rebuilds it.
	rebuilt := NewService(store.NewMemory(), testSearchConfig(), 10*time.Second, arch, nil)
	count, err := rebuilt.Reindex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	suggestions, _, err := rebuilt.Autocomplete(ctx, "in", 5)
	require.NoError(t, err)
	assert.Len(t, suggestions, 2)
}

func TestReindexWithoutArchive(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Reindex(context.Background())
	assert.ErrorIs(t, err, pkgerrors.ErrArchiveDisabled)
}
