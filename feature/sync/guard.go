package sync

import (
	"context"

	"gorm.io/gorm"
)

// Guard couples a relation mutation with its paired counter update.
//
// Aggregate counters (song.play_count, song.like_count) must always equal
// the number of relation rows they summarize. The only way to keep that
// invariant under client retries is to apply the counter delta exactly
// when the relation actually changed state, inside the same transaction.
// No other code path may touch the counters.
type Guard struct {
	db *gorm.DB
}

// NewGuard creates a guard over the given connection.
func NewGuard(db *gorm.DB) *Guard {
	return &Guard{db: db}
}

// Apply runs mutate inside a transaction and, when mutate reports an
// actual state change (row created or deleted, as opposed to a no-op),
// runs pair in the same transaction. A nil pair skips the counter step,
// for relations that carry no counter.
//
// The returned bool reports whether state changed. An error from either
// step rolls the whole unit back, so a crash between the relation write
// and the counter write is impossible to observe.
func (g *Guard) Apply(ctx context.Context, mutate func(tx *gorm.DB) (bool, error), pair func(tx *gorm.DB) error) (bool, error) {
	var changed bool
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		changed, err = mutate(tx)
		if err != nil {
			return err
		}
		if !changed || pair == nil {
			return nil
		}
		return pair(tx)
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}
