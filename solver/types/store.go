package types

import (
	"math/bits"
	"sync"
	"sync/atomic"
)

const (
	firstBucketBits = 5
	bucketCount     = 32 - firstBucketBits
)

// chunkedVec is an append-only vector whose elements never move once written.
// Buckets double in size, so an index maps to a fixed (bucket, offset) pair and
// readers only need an atomic load of the bucket pointer. Appends must be
// serialised by the caller.
type chunkedVec[T any] struct {
	buckets [bucketCount]atomic.Pointer[[]T]
	n       uint32
}

func locate(i uint32) (bucket int, offset uint32) {
	n := uint64(i) + 1<<firstBucketBits
	b := bits.Len64(n) - 1 - firstBucketBits
	return b, uint32(n - 1<<(b+firstBucketBits))
}

func (v *chunkedVec[T]) push(x T) uint32 {
	i := v.n
	b, off := locate(i)
	bucket := v.buckets[b].Load()
	if bucket == nil {
		s := make([]T, 1<<(b+firstBucketBits))
		bucket = &s
		v.buckets[b].Store(bucket)
	}
	(*bucket)[off] = x
	v.n++
	return i
}

func (v *chunkedVec[T]) get(i uint32) (T, bool) {
	b, off := locate(i)
	if b >= bucketCount {
		var zero T
		return zero, false
	}
	bucket := v.buckets[b].Load()
	if bucket == nil {
		var zero T
		return zero, false
	}
	return (*bucket)[off], true
}

// shardBits returns log2 of n rounded up to a power of two, clamped to [0, 8].
func shardBits(n int) uint {
	if n <= 1 {
		return 0
	}
	b := uint(bits.Len(uint(n - 1)))
	if b > 8 {
		b = 8
	}
	return b
}

// valueStore interns values of T by a byte fingerprint. Id 0 is reserved for
// the zero value (empty list, absent shape) and never stored.
type valueStore[T any] struct {
	bits   uint
	shards []valueShard[T]
}

type valueShard[T any] struct {
	mu    sync.Mutex
	index map[string]uint32
	vals  chunkedVec[T]
}

func newValueStore[T any](bits uint) *valueStore[T] {
	s := &valueStore[T]{bits: bits, shards: make([]valueShard[T], 1<<bits)}
	for i := range s.shards {
		s.shards[i].index = make(map[string]uint32)
	}
	return s
}

func (s *valueStore[T]) intern(fp string, v T) uint32 {
	shard := uint32(mixString(fnvOffset, fp) & (1<<s.bits - 1))
	sh := &s.shards[shard]
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if id, ok := sh.index[fp]; ok {
		return id
	}
	local := sh.vals.push(v)
	id := 1 + (local<<s.bits | shard)
	sh.index[fp] = id
	return id
}

func (s *valueStore[T]) get(id uint32) (T, bool) {
	if id == 0 {
		var zero T
		return zero, false
	}
	id--
	shard := id & (1<<s.bits - 1)
	return s.shards[shard].vals.get(id >> s.bits)
}

func (s *valueStore[T]) len() int {
	n := 0
	for i := range s.shards {
		s.shards[i].mu.Lock()
		n += int(s.shards[i].vals.n)
		s.shards[i].mu.Unlock()
	}
	return n
}

// ShardedMap is a concurrent map partitioned by a caller-supplied hash. It
// backs memo tables that many workers read and fill at once.
type ShardedMap[K comparable, V any] struct {
	hash   func(K) uint64
	mask   uint64
	shards []mapShard[K, V]
}

type mapShard[K comparable, V any] struct {
	mu sync.RWMutex
	m  map[K]V
}

func NewShardedMap[K comparable, V any](shards int, hash func(K) uint64) *ShardedMap[K, V] {
	b := shardBits(shards)
	m := &ShardedMap[K, V]{hash: hash, mask: 1<<b - 1, shards: make([]mapShard[K, V], 1<<b)}
	for i := range m.shards {
		m.shards[i].m = make(map[K]V)
	}
	return m
}

func (m *ShardedMap[K, V]) shard(k K) *mapShard[K, V] {
	return &m.shards[m.hash(k)&m.mask]
}

func (m *ShardedMap[K, V]) Get(k K) (V, bool) {
	sh := m.shard(k)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	v, ok := sh.m[k]
	return v, ok
}

func (m *ShardedMap[K, V]) Put(k K, v V) {
	sh := m.shard(k)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.m[k] = v
}

// LoadOrStore keeps the first value stored for k. Duplicate computations of a
// pure function can race here and the loser is discarded.
func (m *ShardedMap[K, V]) LoadOrStore(k K, v V) (actual V, loaded bool) {
	sh := m.shard(k)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if old, ok := sh.m[k]; ok {
		return old, true
	}
	sh.m[k] = v
	return v, false
}

func (m *ShardedMap[K, V]) Delete(k K) {
	sh := m.shard(k)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	delete(sh.m, k)
}

func (m *ShardedMap[K, V]) Len() int {
	n := 0
	for i := range m.shards {
		m.shards[i].mu.RLock()
		n += len(m.shards[i].m)
		m.shards[i].mu.RUnlock()
	}
	return n
}

// HashId spreads a TypeId over shards.
func HashId(id TypeId) uint64 { return mix(fnvOffset, uint64(id)) }

// HashPair spreads a pair of TypeIds over shards.
func HashPair(a, b TypeId) uint64 { return mix(mix(fnvOffset, uint64(a)), uint64(b)) }
