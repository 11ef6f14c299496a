package persist

import (
	"context"
	"encoding/json"
	"fmt"

	"flightops-sim/internal/simclock"
)

// Bridge moves clock state between a Clock and a Store. The clock itself
// knows nothing about storage.
type Bridge struct {
	store Store
	key   string
}

// NewBridge returns a bridge storing under ClockKey.
func NewBridge(store Store) *Bridge {
	return &Bridge{store: store, key: ClockKey}
}

// Save writes the clock's current snapshot.
func (b *Bridge) Save(ctx context.Context, c *simclock.Clock) error {
	blob, err := Serialize(c.Snapshot())
	if err != nil {
		return fmt.Errorf("serialize clock: %w", err)
	}
	if err := b.store.Put(ctx, b.key, blob); err != nil {
		return fmt.Errorf("save clock: %w", err)
	}
	return nil
}

// Load restores c from storage. On any failure, including a missing
// record, c is left stopped and the error is returned.
func (b *Bridge) Load(ctx context.Context, c *simclock.Clock) (simclock.Snapshot, error) {
	blob, err := b.store.Get(ctx, b.key)
	if err != nil {
		c.Stop()
		return simclock.Snapshot{}, fmt.Errorf("load clock: %w", err)
	}
	snap, err := Restore(blob)
	if err != nil {
		c.Stop()
		return simclock.Snapshot{}, err
	}
	if err := c.Restore(snap); err != nil {
		return simclock.Snapshot{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return c.Snapshot(), nil
}

// Peek decodes the stored record without touching any clock.
func (b *Bridge) Peek(ctx context.Context) (Record, error) {
	blob, err := b.store.Get(ctx, b.key)
	if err != nil {
		return Record{}, err
	}
	if _, err := Restore(blob); err != nil {
		return Record{}, err
	}
	var r Record
	if err := json.Unmarshal(blob, &r); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return r, nil
}
