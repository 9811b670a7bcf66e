// Package store defines the key-value store contract the movie engine is
// built against: pipelined batch writes, lexicographic range scans over
// sorted sets, score reads, and TTL'd string values. The Redis implementation
// is the production backend; the in-memory one backs unit tests.
package store

import (
	"context"
	"time"
)

// Member pairs a sorted-set member with its score.
type Member struct {
	Name  string
	Score float64
}

// Store is the abstract contract against the backing key-value store. All
// implementations must make BatchWrite and BulkRead single network round
// trips.
type Store interface {
	// BatchWrite applies every operation collected in the batch as one
	// pipelined round trip. Per-command atomicity only; no cross-key
	// transaction isolation.
	BatchWrite(ctx context.Context, batch *WriteBatch) error

	// BulkRead resolves every reply collected in the batch in one pipelined
	// round trip. Replies are valid only after BulkRead returns nil.
	BulkRead(ctx context.Context, batch *ReadBatch) error

	// RangeByLex returns members of set within the lexicographic interval
	// [min, max], at most limit of them. Bounds use Redis lex syntax:
	// a leading '[' marks an inclusive bound.
	RangeByLex(ctx context.Context, set, min, max string, limit int64) ([]string, error)

	// TopByScore returns up to count members of set ordered by descending
	// score.
	TopByScore(ctx context.Context, set string, count int64) ([]Member, error)

	// Score returns the score of member in set; found is false when the
	// member is absent.
	Score(ctx context.Context, set, member string) (score float64, found bool, err error)

	// IncrementScore adds delta to member's score in set, creating the member
	// when absent, and returns the new score.
	IncrementScore(ctx context.Context, set, member string, delta float64) (float64, error)

	// GetFields returns all fields of the hash at key. An absent key yields
	// an empty map.
	GetFields(ctx context.Context, key string) (map[string]string, error)

	// Get returns the string value at key; found is false when the key is
	// absent or expired.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// SetWithExpiry stores value at key with the given TTL.
	SetWithExpiry(ctx context.Context, key, value string, ttl time.Duration) error

	Ping(ctx context.Context) error
	Close() error
}

type writeKind int

const (
	writeZAdd writeKind = iota
	writeZAddIfAbsent
	writeZRem
	writeHSet
)

type writeOp struct {
	kind   writeKind
	set    string
	member string
	score  float64
	key    string
	fields map[string]string
}

// WriteBatch collects write operations for a single BatchWrite round trip.
// The zero value is ready to use.
type WriteBatch struct {
	ops []writeOp
}

// AddToSortedSet queues a ZADD-style upsert of member with score.
func (b *WriteBatch) AddToSortedSet(set string, score float64, member string) {
	b.ops = append(b.ops, writeOp{kind: writeZAdd, set: set, score: score, member: member})
}

// AddToSortedSetIfAbsent queues an add that leaves an existing member's score
// untouched.
func (b *WriteBatch) AddToSortedSetIfAbsent(set string, score float64, member string) {
	b.ops = append(b.ops, writeOp{kind: writeZAddIfAbsent, set: set, score: score, member: member})
}

// RemoveFromSortedSet queues removal of member from set.
func (b *WriteBatch) RemoveFromSortedSet(set, member string) {
	b.ops = append(b.ops, writeOp{kind: writeZRem, set: set, member: member})
}

// SetFields queues a full overwrite of the given hash fields at key.
func (b *WriteBatch) SetFields(key string, fields map[string]string) {
	b.ops = append(b.ops, writeOp{kind: writeHSet, key: key, fields: fields})
}

// Len reports the number of queued operations.
func (b *WriteBatch) Len() int {
	return len(b.ops)
}

// FieldsReply holds the hash fields fetched for one BulkRead entry.
type FieldsReply struct {
	val map[string]string
}

// Val returns the fetched fields. Empty when the key was absent.
func (r *FieldsReply) Val() map[string]string {
	return r.val
}

// ScoreReply holds the sorted-set score fetched for one BulkRead entry.
type ScoreReply struct {
	score float64
	found bool
}

// Val returns the fetched score and whether the member existed.
func (r *ScoreReply) Val() (float64, bool) {
	return r.score, r.found
}

type readKind int

const (
	readFields readKind = iota
	readScore
)

type readOp struct {
	kind   readKind
	key    string
	set    string
	member string
	fields *FieldsReply
	score  *ScoreReply
}

// ReadBatch collects reads for a single BulkRead round trip. The zero value
// is ready to use.
type ReadBatch struct {
	ops []readOp
}

// Fields queues a full hash read of key and returns the reply handle.
func (b *ReadBatch) Fields(key string) *FieldsReply {
	reply := &FieldsReply{}
	b.ops = append(b.ops, readOp{kind: readFields, key: key, fields: reply})
	return reply
}

// Score queues a score read of member in set and returns the reply handle.
func (b *ReadBatch) Score(set, member string) *ScoreReply {
	reply := &ScoreReply{}
	b.ops = append(b.ops, readOp{kind: readScore, set: set, member: member, score: reply})
	return reply
}

// Len reports the number of queued reads.
func (b *ReadBatch) Len() int {
	return len(b.ops)
}
