package options

import (
	"context"
	"sync"
)

// Snapshot is a fully-materialized mapping from every translatable option
// name to its effective value for one target language. It is built once per
// request and reused for the remainder of that request.
type Snapshot struct {
	Language string            `json:"language"`
	Values   map[string]string `json:"values"`
}

// snapshotHolder lives in the request context so a mid-request invalidation
// (a save, or an admin language switch) discards the materialized values and
// the next access rebuilds them.
type snapshotHolder struct {
	mu    sync.Mutex
	store *Store
	lang  func() string
	snap  *Snapshot
}

type snapshotKey struct{}

// WithSnapshot arms the request context with a lazily-built resolved
// configuration for the language yielded by lang at build time.
func WithSnapshot(ctx context.Context, store *Store, lang func() string) context.Context {
	return context.WithValue(ctx, snapshotKey{}, &snapshotHolder{store: store, lang: lang})
}

// SnapshotFromContext returns the request's resolved configuration, building
// it on first access. It returns nil when the context was never armed.
func SnapshotFromContext(ctx context.Context) *Snapshot {
	holder, ok := ctx.Value(snapshotKey{}).(*snapshotHolder)
	if !ok {
		return nil
	}

	holder.mu.Lock()
	defer holder.mu.Unlock()

	if holder.snap == nil {
		holder.snap = holder.store.buildSnapshot(ctx, holder.lang())
	}
	return holder.snap
}

// InvalidateSnapshot discards the request's materialized configuration so
// the next access rebuilds it. Saves call this implicitly; external
// language-switch signals call it directly.
func InvalidateSnapshot(ctx context.Context) {
	holder, ok := ctx.Value(snapshotKey{}).(*snapshotHolder)
	if !ok {
		return
	}

	holder.mu.Lock()
	holder.snap = nil
	holder.mu.Unlock()
}

func (s *Store) buildSnapshot(ctx context.Context, lang string) *Snapshot {
	values := make(map[string]string, len(translatable))
	for _, name := range TranslatableNames() {
		values[name] = s.GetDisplay(ctx, name, lang, Default(name))
	}
	return &Snapshot{Language: lang, Values: values}
}
