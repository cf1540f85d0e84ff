package importer

import (
	"context"
	"sync"

	"scdmix/internal/media/pcm"
	"scdmix/internal/services"
)

// sourceKey identifies one decode: the same source decoded with a different
// filter override or output rate is a different stream.
type sourceKey struct {
	source string
	filter string
	rate   int
}

type arenaEntry struct {
	once sync.Once
	set  *pcm.SourceSet
	err  error
	refs int
}

// arena shares decoded sources between targets. Each target retains the keys
// it will read before work starts and releases them when done; the last
// release closes the decoder.
type arena struct {
	mu      sync.Mutex
	entries map[sourceKey]*arenaEntry
	open    func(ctx context.Context, key sourceKey) (*pcm.SourceSet, error)
}

func newArena(open func(ctx context.Context, key sourceKey) (*pcm.SourceSet, error)) *arena {
	return &arena{entries: make(map[sourceKey]*arenaEntry), open: open}
}

func (a *arena) retain(key sourceKey) {
	a.mu.Lock()
	defer a.mu.Unlock()
	entry, ok := a.entries[key]
	if !ok {
		entry = &arenaEntry{}
		a.entries[key] = entry
	}
	entry.refs++
}

// acquire opens the source on first use. Open failures are remembered so
// every dependent target reports the same cause.
func (a *arena) acquire(ctx context.Context, key sourceKey) (*pcm.SourceSet, error) {
	a.mu.Lock()
	entry, ok := a.entries[key]
	a.mu.Unlock()
	if !ok {
		return nil, services.Wrap(services.ErrConfigInvariant, "importer", "acquire source", key.source, errNotRetained)
	}
	entry.once.Do(func() {
		entry.set, entry.err = a.open(ctx, key)
	})
	return entry.set, entry.err
}

func (a *arena) release(key sourceKey) {
	a.mu.Lock()
	entry, ok := a.entries[key]
	if !ok {
		a.mu.Unlock()
		return
	}
	entry.refs--
	last := entry.refs <= 0
	if last {
		delete(a.entries, key)
	}
	a.mu.Unlock()
	if !last {
		return
	}
	// Make sure a concurrent first open has finished before closing.
	entry.once.Do(func() {})
	if entry.set != nil {
		_ = entry.set.Close()
	}
}

func (a *arena) live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}
