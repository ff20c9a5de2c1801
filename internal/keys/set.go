package keys

import (
	"sort"
	"sync"

	"github.com/zeebo/xxh3"
)

const shardCount = 64

type shard struct {
	mu sync.Mutex
	m  map[Key]struct{}
}

// Set is a hash set of Keys split into independently locked shards, so that
// several files of one type can be scanned concurrently into the same set.
// The zero value is not usable; call NewSet.
type Set struct {
	shards [shardCount]shard
}

// NewSet returns an empty set. sizeHint spreads an expected size over the
// shards to reduce rehashing; pass 0 when unknown.
func NewSet(sizeHint int) *Set {
	s := &Set{}
	per := sizeHint / shardCount
	for i := range s.shards {
		s.shards[i].m = make(map[Key]struct{}, per)
	}
	return s
}

func (s *Set) shardFor(k Key) *shard {
	return &s.shards[xxh3.HashString(string(k))%shardCount]
}

// Add inserts k and reports whether it was already present.
func (s *Set) Add(k Key) (dup bool) {
	sh := s.shardFor(k)
	sh.mu.Lock()
	_, dup = sh.m[k]
	if !dup {
		sh.m[k] = struct{}{}
	}
	sh.mu.Unlock()
	return dup
}

// Contains reports whether k is in the set.
func (s *Set) Contains(k Key) bool {
	sh := s.shardFor(k)
	sh.mu.Lock()
	_, ok := sh.m[k]
	sh.mu.Unlock()
	return ok
}

// Len is the number of distinct keys.
func (s *Set) Len() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		n += len(sh.m)
		sh.mu.Unlock()
	}
	return n
}

// Keys returns every key, sorted by value tuple.
func (s *Set) Keys() []Key {
	out := make([]Key, 0, s.Len())
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for k := range sh.m {
			out = append(out, k)
		}
		sh.mu.Unlock()
	}
	sortKeys(out)
	return out
}

// Missing returns the keys of s absent from other, sorted by value tuple.
func (s *Set) Missing(other *Set) []Key {
	if other == s {
		return nil
	}
	var out []Key
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for k := range sh.m {
			if other == nil || !other.Contains(k) {
				out = append(out, k)
			}
		}
		sh.mu.Unlock()
	}
	sortKeys(out)
	return out
}

func sortKeys(ks []Key) {
	sort.Slice(ks, func(i, j int) bool {
		a, b := ks[i].Values(), ks[j].Values()
		for x := 0; x < len(a) && x < len(b); x++ {
			if a[x] != b[x] {
				return a[x] < b[x]
			}
		}
		return len(a) < len(b)
	})
}
