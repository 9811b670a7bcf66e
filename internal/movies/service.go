package movies

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/eventura/movie-autocomplete/internal/store"
	"github.com/eventura/movie-autocomplete/pkg/config"
	pkgerrors "github.com/eventura/movie-autocomplete/pkg/errors"
	"github.com/eventura/movie-autocomplete/pkg/metrics"
)

// Archive is the optional durable system of record for movie metadata. The
// Redis indexes can be rebuilt from it after data loss.
type Archive interface {
	Upsert(ctx context.Context, ms []Movie) error
	Scan(ctx context.Context, batchSize int, fn func([]Movie) error) error
}

// Service is the engine facade the API layer talks to: indexing, popularity
// increments, and cached ranked autocomplete.
type Service struct {
	store    store.Store
	indexer  *Indexer
	resolver *Resolver
	cache    *ResultCache
	archive  Archive
	metrics  *metrics.Metrics
	logger   *slog.Logger

	defaultLimit     int
	maxResults       int
	reindexBatchSize int
	now              func() time.Time
}

// NewService wires the indexing and query pipeline on top of the given store.
// archive and m may be nil.
func NewService(s store.Store, cfg config.SearchConfig, cacheTTL time.Duration, archive Archive, m *metrics.Metrics) *Service {
	defaultLimit := cfg.DefaultLimit
	if defaultLimit <= 0 {
		defaultLimit = 5
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 25
	}
	reindexBatchSize := cfg.ReindexBatchSize
	if reindexBatchSize <= 0 {
		reindexBatchSize = 500
	}
	return &Service{
		store:            s,
		indexer:          NewIndexer(s),
		resolver:         NewResolver(s, cfg.CandidateCap),
		cache:            NewResultCache(s, cacheTTL),
		archive:          archive,
		metrics:          m,
		logger:           slog.Default().With("component", "movie-service"),
		defaultLimit:     defaultLimit,
		maxResults:       maxResults,
		reindexBatchSize: reindexBatchSize,
		now:              time.Now,
	}
}

// IndexOne indexes a single movie and, when an archive is configured, upserts
// it there as well. Invalid movies are skipped silently.
func (s *Service) IndexOne(ctx context.Context, m Movie) error {
	_, err := s.IndexBatch(ctx, []Movie{m})
	return err
}

// IndexBatch indexes all valid movies in one batch and returns how many were
// indexed.
func (s *Service) IndexBatch(ctx context.Context, ms []Movie) (int, error) {
	indexed, err := s.indexer.IndexBatch(ctx, ms)
	if err != nil {
		return 0, err
	}
	if s.metrics != nil {
		s.metrics.MoviesIndexedTotal.Add(float64(indexed))
		s.metrics.MoviesSkippedTotal.Add(float64(len(ms) - indexed))
	}
	if s.archive != nil && indexed > 0 {
		valid := make([]Movie, 0, indexed)
		for _, m := range ms {
			if m.Indexable() {
				valid = append(valid, m)
			}
		}
		if err := s.archive.Upsert(ctx, valid); err != nil {
			return indexed, fmt.Errorf("archiving %d movies: %w", len(valid), err)
		}
	}
	return indexed, nil
}

// IncrementPopularity adds one view to the movie's popularity counter.
func (s *Service) IncrementPopularity(ctx context.Context, id string) error {
	_, err := s.indexer.IncrementPopularity(ctx, id)
	return err
}

// GetMovie fetches a single record by id.
func (s *Service) GetMovie(ctx context.Context, id string) (Movie, error) {
	fields, err := s.store.GetFields(ctx, recordKey(id))
	if err != nil {
		return Movie{}, err
	}
	m, ok := DecodeFields(id, fields)
	if !ok {
		return Movie{}, pkgerrors.ErrMovieNotFound
	}
	return m, nil
}

// Autocomplete returns up to limit ranked suggestions for the query. An
// empty query serves the trending path: top movies by popularity, no prefix
// or recency blending. The second return reports whether the result came
// from the cache.
func (s *Service) Autocomplete(ctx context.Context, query string, limit int) ([]Suggestion, bool, error) {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > s.maxResults {
		limit = s.maxResults
	}
	normalized := Normalize(query)

	suggestions, cacheHit, err := s.cache.GetOrCompute(ctx, normalized, func() ([]Suggestion, error) {
		return s.compute(ctx, normalized, limit)
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.AutocompleteTotal.WithLabelValues("error").Inc()
		}
		return nil, false, err
	}
	// A cached entry may have been filled for a larger limit; never re-rank,
	// just truncate.
	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	if s.metrics != nil {
		switch {
		case len(suggestions) == 0:
			s.metrics.AutocompleteTotal.WithLabelValues("zero_result").Inc()
		case normalized == "":
			s.metrics.AutocompleteTotal.WithLabelValues("trending").Inc()
		default:
			s.metrics.AutocompleteTotal.WithLabelValues("prefix").Inc()
		}
		s.metrics.SuggestionCount.Observe(float64(len(suggestions)))
		if cacheHit {
			s.metrics.CacheHitsTotal.Inc()
		} else {
			s.metrics.CacheMissesTotal.Inc()
		}
	}
	return suggestions, cacheHit, nil
}

func (s *Service) compute(ctx context.Context, normalized string, limit int) ([]Suggestion, error) {
	if normalized == "" {
		return s.trending(ctx, limit)
	}
	ids, err := s.resolver.Candidates(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []Suggestion{}, nil
	}
	now := s.now().Unix()
	candidates, err := fetchCandidates(ctx, s.store, ids, now)
	if err != nil {
		return nil, err
	}
	return rank(candidates, normalized, limit, now), nil
}

// trending serves the empty-query path: records ordered by the popularity
// index's native descending score order. Each suggestion's score is its raw
// popularity count.
func (s *Service) trending(ctx context.Context, limit int) ([]Suggestion, error) {
	members, err := s.resolver.Trending(ctx, int64(limit))
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return []Suggestion{}, nil
	}
	batch := &store.ReadBatch{}
	replies := make([]*store.FieldsReply, len(members))
	for i, member := range members {
		replies[i] = batch.Fields(recordKey(member.Name))
	}
	if err := s.store.BulkRead(ctx, batch); err != nil {
		return nil, fmt.Errorf("fetching %d trending records: %w", len(members), err)
	}
	suggestions := make([]Suggestion, 0, len(members))
	for i, member := range members {
		m, ok := DecodeFields(member.Name, replies[i].Val())
		if !ok {
			continue
		}
		suggestions = append(suggestions, Suggestion{Movie: m, Score: member.Score})
	}
	return suggestions, nil
}

// CacheStats returns the result cache hit/miss counters.
func (s *Service) CacheStats() (hits, misses int64) {
	return s.cache.Stats()
}

// Reindex rebuilds every Redis index from the archive in batches. Returns
// the number of movies reindexed.
func (s *Service) Reindex(ctx context.Context) (int, error) {
	if s.archive == nil {
		return 0, pkgerrors.ErrArchiveDisabled
	}
	total := 0
	err := s.archive.Scan(ctx, s.reindexBatchSize, func(batch []Movie) error {
		indexed, err := s.indexer.IndexBatch(ctx, batch)
		if err != nil {
			return err
		}
		total += indexed
		return nil
	})
	if err != nil {
		return total, fmt.Errorf("reindexing from archive: %w", err)
	}
	s.logger.Info("reindex complete", "movies", total)
	return total, nil
}
