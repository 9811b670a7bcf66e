package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRangeByLex(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	batch := &WriteBatch{}
	for _, member := range []string{"inception|1", "interstellar|2", "insomnia|3", "dunkirk|4"} {
		batch.AddToSortedSet("titles", 0, member)
	}
	require.NoError(t, mem.BatchWrite(ctx, batch))

	members, err := mem.RangeByLex(ctx, "titles", "[in", "[in\xff", 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"inception|1", "insomnia|3", "interstellar|2"}, members)

	members, err = mem.RangeByLex(ctx, "titles", "[int", "[int\xff", 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"interstellar|2"}, members)

	members, err = mem.RangeByLex(ctx, "titles", "[zzz", "[zzz\xff", 100)
	require.NoError(t, err)
	assert.Empty(t, members)

	// Unbounded scan returns everything in lexicographic order.
	members, err = mem.RangeByLex(ctx, "titles", "-", "+", 0)
	require.NoError(t, err)
	assert.Len(t, members, 4)
}

func TestMemoryRangeByLexLimit(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	batch := &WriteBatch{}
	batch.AddToSortedSet("titles", 0, "aa|1")
	batch.AddToSortedSet("titles", 0, "ab|2")
	batch.AddToSortedSet("titles", 0, "ac|3")
	require.NoError(t, mem.BatchWrite(ctx, batch))

	members, err := mem.RangeByLex(ctx, "titles", "[a", "[a\xff", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"aa|1", "ab|2"}, members)
}

func TestMemoryTopByScore(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	batch := &WriteBatch{}
	batch.AddToSortedSet("pop", 5, "a")
	batch.AddToSortedSet("pop", 10, "b")
	batch.AddToSortedSet("pop", 1, "c")
	require.NoError(t, mem.BatchWrite(ctx, batch))

	members, err := mem.TopByScore(ctx, "pop", 2)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, Member{Name: "b", Score: 10}, members[0])
	assert.Equal(t, Member{Name: "a", Score: 5}, members[1])
}

func TestMemoryAddIfAbsentKeepsScore(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	batch := &WriteBatch{}
	batch.AddToSortedSetIfAbsent("pop", 0, "a")
	require.NoError(t, mem.BatchWrite(ctx, batch))

	_, err := mem.IncrementScore(ctx, "pop", "a", 4)
	require.NoError(t, err)

	again := &WriteBatch{}
	again.AddToSortedSetIfAbsent("pop", 0, "a")
	require.NoError(t, mem.BatchWrite(ctx, again))

	score, found, err := mem.Score(ctx, "pop", "a")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 4.0, score)
}

func TestMemoryBulkRead(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	write := &WriteBatch{}
	write.SetFields("movie:1", map[string]string{"title": "Inception"})
	write.AddToSortedSet("pop", 3, "1")
	require.NoError(t, mem.BatchWrite(ctx, write))

	read := &ReadBatch{}
	fields := read.Fields("movie:1")
	missingFields := read.Fields("movie:404")
	pop := read.Score("pop", "1")
	missingPop := read.Score("pop", "404")
	require.NoError(t, mem.BulkRead(ctx, read))

	assert.Equal(t, "Inception", fields.Val()["title"])
	assert.Empty(t, missingFields.Val())

	score, found := pop.Val()
	assert.True(t, found)
	assert.Equal(t, 3.0, score)

	_, found = missingPop.Val()
	assert.False(t, found)
}

func TestMemoryRemoveFromSortedSet(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	batch := &WriteBatch{}
	batch.AddToSortedSet("titles", 0, "old name|1")
	require.NoError(t, mem.BatchWrite(ctx, batch))

	update := &WriteBatch{}
	update.RemoveFromSortedSet("titles", "old name|1")
	update.AddToSortedSet("titles", 0, "new name|1")
	require.NoError(t, mem.BatchWrite(ctx, update))

	members, err := mem.RangeByLex(ctx, "titles", "-", "+", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"new name|1"}, members)
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	current := time.Now()
	mem.SetClock(func() time.Time { return current })

	require.NoError(t, mem.SetWithExpiry(ctx, "k", "v", 10*time.Second))

	val, found, err := mem.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "v", val)

	current = current.Add(10 * time.Second)
	_, found, err = mem.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}
