package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory is an in-memory Store used by unit tests and local development
// without a Redis instance. Safe for concurrent use. The clock is injectable
// so TTL behavior can be tested deterministically.
type Memory struct {
	mu     sync.Mutex
	zsets  map[string]map[string]float64
	hashes map[string]map[string]string
	values map[string]expiringValue
	now    func() time.Time
}

type expiringValue struct {
	value     string
	expiresAt time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		zsets:  make(map[string]map[string]float64),
		hashes: make(map[string]map[string]string),
		values: make(map[string]expiringValue),
		now:    time.Now,
	}
}

// SetClock replaces the store's time source. Test-only.
func (s *Memory) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Memory) zset(name string) map[string]float64 {
	z, ok := s.zsets[name]
	if !ok {
		z = make(map[string]float64)
		s.zsets[name] = z
	}
	return z
}

func (s *Memory) BatchWrite(ctx context.Context, batch *WriteBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, op := range batch.ops {
		switch op.kind {
		case writeZAdd:
			s.zset(op.set)[op.member] = op.score
		case writeZAddIfAbsent:
			z := s.zset(op.set)
			if _, ok := z[op.member]; !ok {
				z[op.member] = op.score
			}
		case writeZRem:
			delete(s.zset(op.set), op.member)
		case writeHSet:
			h, ok := s.hashes[op.key]
			if !ok {
				h = make(map[string]string)
				s.hashes[op.key] = h
			}
			for k, v := range op.fields {
				h[k] = v
			}
		}
	}
	return nil
}

func (s *Memory) BulkRead(ctx context.Context, batch *ReadBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, op := range batch.ops {
		switch op.kind {
		case readFields:
			op.fields.val = copyFields(s.hashes[op.key])
		case readScore:
			if score, ok := s.zsets[op.set][op.member]; ok {
				op.score.score = score
				op.score.found = true
			}
		}
	}
	return nil
}

func (s *Memory) RangeByLex(ctx context.Context, set, min, max string, limit int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	members := make([]string, 0, len(s.zsets[set]))
	for member := range s.zsets[set] {
		members = append(members, member)
	}
	sort.Strings(members)

	lo, loIncl := parseLexBound(min)
	hi, hiIncl := parseLexBound(max)

	matched := make([]string, 0)
	for _, m := range members {
		if limit > 0 && int64(len(matched)) >= limit {
			break
		}
		if !aboveLower(m, lo, loIncl) || !belowUpper(m, hi, hiIncl) {
			continue
		}
		matched = append(matched, m)
	}
	return matched, nil
}

func (s *Memory) TopByScore(ctx context.Context, set string, count int64) ([]Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	members := make([]Member, 0, len(s.zsets[set]))
	for name, score := range s.zsets[set] {
		members = append(members, Member{Name: name, Score: score})
	}
	// Redis ZREVRANGE order: descending score, descending member for ties.
	sort.Slice(members, func(i, j int) bool {
		if members[i].Score != members[j].Score {
			return members[i].Score > members[j].Score
		}
		return members[i].Name > members[j].Name
	})
	if count > 0 && int64(len(members)) > count {
		members = members[:count]
	}
	return members, nil
}

func (s *Memory) Score(ctx context.Context, set, member string) (float64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	score, ok := s.zsets[set][member]
	return score, ok, nil
}

func (s *Memory) IncrementScore(ctx context.Context, set, member string, delta float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	z := s.zset(set)
	z[member] += delta
	return z[member], nil
}

func (s *Memory) GetFields(ctx context.Context, key string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyFields(s.hashes[key]), nil
}

func (s *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.values[key]
	if !ok {
		return "", false, nil
	}
	if !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		delete(s.values, key)
		return "", false, nil
	}
	return entry.value, true, nil
}

func (s *Memory) SetWithExpiry(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := expiringValue{value: value}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.values[key] = entry
	return nil
}

func (s *Memory) Ping(ctx context.Context) error {
	return nil
}

func (s *Memory) Close() error {
	return nil
}

func copyFields(src map[string]string) map[string]string {
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// parseLexBound interprets Redis lex-range bound syntax: "[x" inclusive,
// "(x" exclusive, "-" / "+" unbounded.
func parseLexBound(bound string) (value string, inclusive bool) {
	switch {
	case bound == "-" || bound == "+":
		return bound, true
	case strings.HasPrefix(bound, "["):
		return bound[1:], true
	case strings.HasPrefix(bound, "("):
		return bound[1:], false
	default:
		return bound, true
	}
}

func aboveLower(member, lo string, inclusive bool) bool {
	if lo == "-" {
		return true
	}
	if lo == "+" {
		return false
	}
	if inclusive {
		return member >= lo
	}
	return member > lo
}

func belowUpper(member, hi string, inclusive bool) bool {
	if hi == "+" {
		return true
	}
	if hi == "-" {
		return false
	}
	if inclusive {
		return member <= hi
	}
	return member < hi
}
