// Package resource caches one remote collection for the presentation layer
// together with its loading flag, last error, and a selected record.
package resource

import (
	"context"
	"log/slog"
	"sync"

	"github.com/frahmantamala/employee-portal/internal"
	"github.com/frahmantamala/employee-portal/internal/core/events"
	"golang.org/x/sync/singleflight"
)

// KeyFunc extracts the identity of a record.
type KeyFunc[T any] func(T) internal.Code

// Context holds the cached collection of one resource kind.
//
// Every operation runs under the same discipline: the error slot is cleared
// when it starts, the loading counter is held for its duration, and on
// failure the message is recorded while the cached collection stays as it
// was. Results are ordered by tickets taken from one monotonic counter so
// that a slow response never overwrites a newer one.
type Context[T any] struct {
	name   string
	keyOf  KeyFunc[T]
	logger *slog.Logger
	group  singleflight.Group

	mu             sync.RWMutex
	items          []T
	selected       *T
	inFlight       int
	errMsg         string
	seq            uint64
	epoch          uint64
	collection     uint64
	selectedTicket uint64
	patches        map[internal.Code]patch[T]
}

type patch[T any] struct {
	issued    uint64
	completed uint64
	apply     func(*T)
}

type op struct {
	ticket uint64
	epoch  uint64
}

func New[T any](name string, keyOf func(T) internal.Code, logger *slog.Logger) *Context[T] {
	return &Context[T]{
		name:    name,
		keyOf:   keyOf,
		logger:  logger,
		patches: make(map[internal.Code]patch[T]),
	}
}

// RegisterEventHandlers resets the context whenever a session starts or
// ends, so no data outlives the user it was fetched for.
func (c *Context[T]) RegisterEventHandlers(bus *events.EventBus) {
	reset := func(ctx context.Context, e events.Event) error {
		c.Reset()
		c.logger.DebugContext(ctx, "resource context reset", "resource", c.name, "event_type", e.EventType())
		return nil
	}
	bus.Subscribe(events.EventTypeSessionStarted, reset)
	bus.Subscribe(events.EventTypeSessionEnded, reset)
}

func (c *Context[T]) begin() op {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.inFlight++
	c.errMsg = ""
	return op{ticket: c.seq, epoch: c.epoch}
}

// end must be called with mu held. It reports whether the operation still
// belongs to the current epoch.
func (c *Context[T]) end(o op, err error) bool {
	if o.epoch != c.epoch {
		return false
	}
	c.inFlight--
	if err != nil {
		c.errMsg = err.Error()
	}
	return true
}

// FetchAll replaces the collection with the result of list. Concurrent
// calls share one request. On failure the previous collection is kept and
// the error is both recorded and returned.
func (c *Context[T]) FetchAll(ctx context.Context, list func(context.Context) ([]T, error)) ([]T, error) {
	v, err, _ := c.group.Do("fetchAll", func() (interface{}, error) {
		o := c.begin()
		items, err := list(ctx)

		c.mu.Lock()
		defer c.mu.Unlock()
		if !c.end(o, err) {
			return items, err
		}
		if err != nil {
			c.logger.WarnContext(ctx, "fetch failed", "resource", c.name, "error", err)
			return nil, err
		}
		if o.ticket > c.collection {
			c.replace(items, o.ticket)
		}
		return c.snapshot(), nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]T), nil
}

// replace must be called with mu held.
func (c *Context[T]) replace(items []T, ticket uint64) {
	if items == nil {
		items = []T{}
	}
	c.items = append([]T(nil), items...)
	c.collection = ticket

	// patches confirmed after this fetch was issued may be missing from it
	for key, p := range c.patches {
		if p.completed < ticket {
			delete(c.patches, key)
			continue
		}
		c.applyTo(key, p.apply)
	}
}

// applyTo must be called with mu held.
func (c *Context[T]) applyTo(key internal.Code, apply func(*T)) {
	for i := range c.items {
		if c.keyOf(c.items[i]) == key {
			apply(&c.items[i])
		}
	}
	if c.selected != nil && c.keyOf(*c.selected) == key {
		s := *c.selected
		apply(&s)
		c.selected = &s
	}
}

// FetchOne loads a single record into the selected slot.
func (c *Context[T]) FetchOne(ctx context.Context, get func(context.Context) (T, error)) (T, error) {
	o := c.begin()
	v, err := get(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.end(o, err) {
		return v, err
	}
	if err != nil {
		var zero T
		c.logger.WarnContext(ctx, "fetch one failed", "resource", c.name, "error", err)
		return zero, err
	}
	if o.ticket > c.selectedTicket {
		s := v
		c.selected = &s
		c.selectedTicket = o.ticket
	}
	return v, nil
}

// Run executes an operation that does not touch the collection (create,
// upload, purchase) under the loading and error discipline.
func (c *Context[T]) Run(ctx context.Context, fn func(context.Context) error) error {
	o := c.begin()
	err := fn(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.end(o, err) && err != nil {
		c.logger.WarnContext(ctx, "operation failed", "resource", c.name, "error", err)
	}
	return err
}

// MutateField performs call and, once the server has accepted it, applies
// patch to the cached record with the given key and to nothing else. Of
// two mutations of the same record, the one issued last wins locally
// regardless of which response arrives first.
func (c *Context[T]) MutateField(ctx context.Context, key internal.Code, call func(context.Context) error, apply func(*T)) error {
	o := c.begin()
	err := call(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.end(o, err) {
		return err
	}
	if err != nil {
		c.logger.WarnContext(ctx, "mutation failed", "resource", c.name, "key", key, "error", err)
		return err
	}

	if prev, ok := c.patches[key]; ok && prev.issued > o.ticket {
		c.logger.DebugContext(ctx, "dropping superseded patch", "resource", c.name, "key", key)
		return nil
	}
	c.seq++
	c.patches[key] = patch[T]{issued: o.ticket, completed: c.seq, apply: apply}
	c.applyTo(key, apply)
	return nil
}

func (c *Context[T]) snapshot() []T {
	return append([]T(nil), c.items...)
}

// Items returns a copy of the cached collection.
func (c *Context[T]) Items() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot()
}

func (c *Context[T]) Find(key internal.Code) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, item := range c.items {
		if c.keyOf(item) == key {
			return item, true
		}
	}
	var zero T
	return zero, false
}

func (c *Context[T]) Selected() (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.selected == nil {
		var zero T
		return zero, false
	}
	return *c.selected, true
}

func (c *Context[T]) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inFlight > 0
}

// Err returns the message of the last failed operation, or "".
func (c *Context[T]) Err() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.errMsg
}

func (c *Context[T]) ClearError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errMsg = ""
}

// Reset empties the context. Operations still in flight finish without
// touching it.
func (c *Context[T]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.items = nil
	c.selected = nil
	c.inFlight = 0
	c.errMsg = ""
	c.collection = 0
	c.selectedTicket = 0
	c.patches = make(map[internal.Code]patch[T])
}
