package movies

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/eventura/movie-autocomplete/internal/store"
)

// Indexer writes movie records and their three index entries. All writes for
// one call are submitted as a single pipelined batch.
type Indexer struct {
	store  store.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewIndexer creates an Indexer backed by the given store.
func NewIndexer(s store.Store) *Indexer {
	return &Indexer{
		store:  s,
		logger: slog.Default().With("component", "indexer"),
		now:    time.Now,
	}
}

// IndexOne indexes a single movie. A movie missing its id or title is
// skipped silently.
func (ix *Indexer) IndexOne(ctx context.Context, m Movie) error {
	_, err := ix.IndexBatch(ctx, []Movie{m})
	return err
}

// IndexBatch indexes every valid movie in the input within one write batch,
// skipping invalid entries individually. It returns the number of movies
// indexed.
//
// Reindexing is idempotent: the prior record's normalized title is read
// first, and a changed title removes the stale title-index member inside the
// same batch. Popularity is initialized to 0 only when the id has no prior
// score, so accumulated view counts survive a reindex.
func (ix *Indexer) IndexBatch(ctx context.Context, ms []Movie) (int, error) {
	valid := make([]Movie, 0, len(ms))
	for _, m := range ms {
		if !m.Indexable() {
			ix.logger.Debug("skipping movie with missing id or title", "id", m.ID)
			continue
		}
		valid = append(valid, m)
	}
	if len(valid) == 0 {
		return 0, nil
	}

	priors := &store.ReadBatch{}
	priorFields := make([]*store.FieldsReply, len(valid))
	for i, m := range valid {
		priorFields[i] = priors.Fields(recordKey(m.ID))
	}
	if err := ix.store.BulkRead(ctx, priors); err != nil {
		return 0, fmt.Errorf("reading prior records: %w", err)
	}

	now := ix.now().Unix()
	batch := &store.WriteBatch{}
	for i, m := range valid {
		normalized := Normalize(m.Title)
		if prior := priorFields[i].Val(); len(prior) > 0 {
			if old := Normalize(prior["title"]); old != "" && old != normalized {
				batch.RemoveFromSortedSet(titleIndexSet, titleMember(old, m.ID))
			}
		}
		release := m.ReleaseUnix
		if release == 0 {
			release = now
		}
		batch.AddToSortedSet(titleIndexSet, 0, titleMember(normalized, m.ID))
		batch.AddToSortedSetIfAbsent(popularitySet, 0, m.ID)
		batch.AddToSortedSet(releaseSet, float64(release), m.ID)
		batch.SetFields(recordKey(m.ID), m.Fields())
	}
	if err := ix.store.BatchWrite(ctx, batch); err != nil {
		return 0, fmt.Errorf("indexing %d movies: %w", len(valid), err)
	}
	ix.logger.Debug("indexed movies", "count", len(valid), "skipped", len(ms)-len(valid))
	return len(valid), nil
}

// IncrementPopularity adds one view to the movie's popularity counter and
// returns the new count.
func (ix *Indexer) IncrementPopularity(ctx context.Context, id string) (float64, error) {
	score, err := ix.store.IncrementScore(ctx, popularitySet, id, 1)
	if err != nil {
		return 0, fmt.Errorf("incrementing popularity for %s: %w", id, err)
	}
	return score, nil
}
