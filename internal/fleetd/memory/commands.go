package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/piragazh/feasto-signage/internal/fleetd/command"
)

// CommandRepository is an append-only command log held in memory
type CommandRepository struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*command.Entry
}

// NewCommandRepository creates an empty command log
func NewCommandRepository() *CommandRepository {
	return &CommandRepository{entries: make(map[uuid.UUID]*command.Entry)}
}

// Create appends an entry
func (r *CommandRepository) Create(_ context.Context, e *command.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[e.ID] = cloneEntry(e)
	return nil
}

// FindByID retrieves an entry
func (r *CommandRepository) FindByID(_ context.Context, id uuid.UUID) (*command.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, command.ErrNotFound{ID: id.String()}
	}
	return cloneEntry(e), nil
}

// Complete stores a terminal transition if the stored entry is still pending
func (r *CommandRepository) Complete(_ context.Context, e *command.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.entries[e.ID]
	if !ok {
		return command.ErrNotFound{ID: e.ID.String()}
	}
	if stored.Status.Terminal() {
		return command.ErrAlreadyTerminal{ID: e.ID.String(), Status: stored.Status}
	}
	r.entries[e.ID] = cloneEntry(e)
	return nil
}

// List returns matching entries newest first
func (r *CommandRepository) List(_ context.Context, filter command.Filter) ([]*command.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*command.Entry, 0)
	for _, e := range r.entries {
		if filter.ScreenID != uuid.Nil && e.ScreenID != filter.ScreenID {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		out = append(out, cloneEntry(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.After(out[j].IssuedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// ListPendingBefore returns pending entries issued strictly before cutoff,
// oldest first
func (r *CommandRepository) ListPendingBefore(_ context.Context, cutoff time.Time) ([]*command.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*command.Entry
	for _, e := range r.entries {
		if e.Status == command.StatusPending && e.IssuedAt.Before(cutoff) {
			out = append(out, cloneEntry(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.Before(out[j].IssuedAt) })
	return out, nil
}

func cloneEntry(e *command.Entry) *command.Entry {
	c := *e
	if e.ExecutedAt != nil {
		t := *e.ExecutedAt
		c.ExecutedAt = &t
	}
	if e.Params != nil {
		c.Params = make(map[string]string, len(e.Params))
		for k, v := range e.Params {
			c.Params[k] = v
		}
	}
	return &c
}
