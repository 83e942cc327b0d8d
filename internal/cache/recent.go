package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/joseph-ayodele/docbatch/internal/state"
)

const (
	DefaultRecentLimit = 20
	recentKey          = "recent:selections"
	watchTimeout       = 2 * time.Second
)

// Recent remembers the most recently selected file names, newest first.
type Recent struct {
	client Client
	limit  int
	ttl    time.Duration
	logger *slog.Logger

	// serializes read-modify-write of the list within this process
	mu sync.Mutex
}

func NewRecent(client Client, limit int, ttl time.Duration, logger *slog.Logger) *Recent {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recent{client: client, limit: limit, ttl: ttl, logger: logger}
}

// Add moves names to the front of the list, dropping duplicates and anything past the limit.
func (r *Recent) Add(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.list(ctx)
	if err != nil {
		return err
	}
	next := make([]string, 0, r.limit)
	for _, n := range slices.Concat(names, current) {
		if n == "" || slices.Contains(next, n) {
			continue
		}
		next = append(next, n)
		if len(next) == r.limit {
			break
		}
	}
	b, err := json.Marshal(next)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, recentKey, b, r.ttl)
}

// List returns the remembered names.
func (r *Recent) List(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list(ctx)
}

// Clear forgets every name.
func (r *Recent) Clear(ctx context.Context) error {
	return r.client.Delete(ctx, recentKey)
}

func (r *Recent) list(ctx context.Context) ([]string, error) {
	b, err := r.client.Get(ctx, recentKey)
	if errors.Is(err, ErrCacheMiss) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	if err := json.Unmarshal(b, &names); err != nil {
		r.logger.Warn("cache.recent.corrupt", "error", err)
		return []string{}, nil
	}
	return names, nil
}

// Watch records every new non-empty selection made on store. The returned func stops watching.
func (r *Recent) Watch(store *state.Store) func() {
	return store.Subscribe(func(next, prev state.State) {
		if len(next.SelectedFiles) == 0 || sameNames(next, prev) {
			return
		}
		names := make([]string, len(next.SelectedFiles))
		for i, f := range next.SelectedFiles {
			names[i] = f.Name
		}
		ctx, cancel := context.WithTimeout(context.Background(), watchTimeout)
		defer cancel()
		if err := r.Add(ctx, names...); err != nil {
			r.logger.Warn("cache.recent.add_failed", "files", len(names), "error", fmt.Errorf("recent: %w", err))
		}
	})
}

func sameNames(a, b state.State) bool {
	if len(a.SelectedFiles) != len(b.SelectedFiles) {
		return false
	}
	for i := range a.SelectedFiles {
		if a.SelectedFiles[i].Name != b.SelectedFiles[i].Name {
			return false
		}
	}
	return true
}
