package pipeline

import (
	"context"
	"sync"

	"github.com/docwatch/docwatch/internal/watch"
)

// fetchGroup deduplicates retrievals within one run. Targets sharing a
// base URL and declared type (anchored sections of the same page, say)
// reuse a single fetch; the per-target response carries its own target.
// Scope is one run only, so the daemon still refetches every cycle.
type fetchGroup struct {
	fetcher watch.Fetcher

	mu      sync.Mutex
	entries map[string]*fetchEntry
}

type fetchEntry struct {
	once sync.Once
	resp watch.RawResponse
	err  error
}

func newFetchGroup(fetcher watch.Fetcher) *fetchGroup {
	return &fetchGroup{fetcher: fetcher, entries: make(map[string]*fetchEntry)}
}

func (g *fetchGroup) Fetch(ctx context.Context, target watch.Target) (watch.RawResponse, error) {
	// Declared type stays in the key: the rendered-fetch promotion only
	// applies to html targets, so responses must not cross families.
	key := target.BaseURL() + "\x00" + string(target.DeclaredType)

	g.mu.Lock()
	entry, ok := g.entries[key]
	if !ok {
		entry = &fetchEntry{}
		g.entries[key] = entry
	}
	g.mu.Unlock()

	entry.once.Do(func() {
		entry.resp, entry.err = g.fetcher.Fetch(ctx, target)
	})
	if entry.err != nil {
		return watch.RawResponse{}, entry.err
	}
	resp := entry.resp
	resp.Target = target
	return resp, nil
}
