package cart

import (
	"sort"
	"sync"
)

// keyedMutex serializes work per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: map[string]*keyedEntry{}}
}

// Lock acquires every key in a stable order and returns the release func.
func (k *keyedMutex) Lock(keys ...string) func() {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	sorted = dedupe(sorted)

	entries := make([]*keyedEntry, 0, len(sorted))
	for _, key := range sorted {
		k.mu.Lock()
		entry, ok := k.locks[key]
		if !ok {
			entry = &keyedEntry{}
			k.locks[key] = entry
		}
		entry.refs++
		k.mu.Unlock()

		entry.mu.Lock()
		entries = append(entries, entry)
	}

	return func() {
		for i := len(entries) - 1; i >= 0; i-- {
			entries[i].mu.Unlock()
			k.mu.Lock()
			entries[i].refs--
			if entries[i].refs == 0 {
				delete(k.locks, sorted[i])
			}
			k.mu.Unlock()
		}
	}
}

func dedupe(sorted []string) []string {
	out := sorted[:0]
	for i, key := range sorted {
		if i > 0 && key == sorted[i-1] {
			continue
		}
		out = append(out, key)
	}
	return out
}
