package bulb

import (
	"time"

	"github.com/nerrad567/lumen-core/internal/protocol"
)

// Staleness windows. Metadata such as labels and firmware versions
// changes rarely; power and colour change constantly.
const (
	metadataMaxAge = time.Hour
	runtimeMaxAge  = 15 * time.Second
)

// RefreshableData couples a cached value with the maximum age it may
// reach before it counts as stale, and the query message that refreshes
// it. The zero value is unusable; construct with newRefreshable.
//
// Mutation happens only under the registry write lock, reads under at
// least the read lock.
type RefreshableData[T any] struct {
	value       T
	valid       bool
	maxAge      time.Duration
	lastUpdated time.Time
	refresh     protocol.Message
}

func newRefreshable[T any](maxAge time.Duration, refresh protocol.Message) RefreshableData[T] {
	return RefreshableData[T]{maxAge: maxAge, refresh: refresh}
}

// Update overwrites the cached value and restarts the staleness clock.
func (d *RefreshableData[T]) Update(v T) {
	d.value = v
	d.valid = true
	d.lastUpdated = time.Now()
}

// NeedsRefresh reports whether the value has never been set or has
// outlived its window.
func (d *RefreshableData[T]) NeedsRefresh() bool {
	return !d.valid || time.Since(d.lastUpdated) > d.maxAge
}

// Current returns the cached value and whether it has ever been set.
// A stale value is still returned; staleness only drives re-querying.
func (d *RefreshableData[T]) Current() (T, bool) {
	return d.value, d.valid
}

// RefreshMessage returns the query that repopulates this field, or nil
// for fields refreshed as a side effect of another query.
func (d *RefreshableData[T]) RefreshMessage() protocol.Message {
	return d.refresh
}
