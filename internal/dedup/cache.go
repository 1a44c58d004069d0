package dedup

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jaspers-market/chatbridge/pkg/logging"
)

// State reports which backend is serving cache operations.
type State int

const (
	// Available means the remote store is reachable and serving.
	Available State = iota
	// Degraded means all operations fall back to the process-local store.
	Degraded
)

func (s State) String() string {
	switch s {
	case Available:
		return "available"
	case Degraded:
		return "degraded"
	default:
		return "unknown"
	}
}

const (
	// DefaultTTL covers the typical "delivered/read" webhook
	// retransmission window.
	DefaultTTL = 15 * time.Second

	defaultMaxReconnects = 5
	backoffStep          = 50 * time.Millisecond
	backoffCap           = 500 * time.Millisecond
)

// Cache is a TTL-backed idempotency guard keyed by inbound event id.
//
// It routes each operation to a shared Redis store while Available and to a
// process-local map while Degraded. Any remote failure degrades the cache
// immediately and the failing call falls through to the local store;
// operations never surface an error to callers. The two backends are not
// kept in sync: a key inserted before a failover is invisible after it,
// which makes deduplication best-effort across that boundary.
type Cache struct {
	remote Store
	local  *memoryStore
	ping   func(ctx context.Context) error
	logger *logging.Logger

	ttl           time.Duration
	maxReconnects int
	backoffStep   time.Duration
	backoffCap    time.Duration

	stateCh chan stateOp
	done    chan struct{}
}

type stateOp struct {
	set   bool
	cas   bool // only transition when the current state is `from`
	from  State
	next  State
	reply chan State
}

// Option customizes a Cache.
type Option func(*Cache)

// WithTTL overrides the entry TTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithMaxReconnects overrides the reconnect attempt ceiling.
func WithMaxReconnects(n int) Option {
	return func(c *Cache) {
		c.maxReconnects = n
	}
}

func withBackoff(step, cap time.Duration) Option {
	return func(c *Cache) {
		c.backoffStep = step
		c.backoffCap = cap
	}
}

// NewCache builds a Cache on top of the given Redis client. A nil client
// yields a cache that serves from the local store for the process lifetime.
func NewCache(client *redis.Client, logger *logging.Logger, opts ...Option) *Cache {
	c := &Cache{
		local:         newMemoryStore(),
		logger:        logger,
		ttl:           DefaultTTL,
		maxReconnects: defaultMaxReconnects,
		backoffStep:   backoffStep,
		backoffCap:    backoffCap,
		stateCh:       make(chan stateOp),
		done:          make(chan struct{}),
	}
	if c.logger == nil {
		c.logger = logging.Default()
	}
	if client != nil {
		c.remote = newRedisStore(client)
		c.ping = func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}
	}
	for _, opt := range opts {
		opt(c)
	}

	initial := Available
	if c.remote == nil {
		initial = Degraded
	}
	go c.stateLoop(initial)
	return c
}

// newCacheWithStores is the seam used by tests to substitute backends.
func newCacheWithStores(remote Store, ping func(ctx context.Context) error, logger *logging.Logger, opts ...Option) *Cache {
	c := &Cache{
		remote:        remote,
		local:         newMemoryStore(),
		ping:          ping,
		logger:        logger,
		ttl:           DefaultTTL,
		maxReconnects: defaultMaxReconnects,
		backoffStep:   backoffStep,
		backoffCap:    backoffCap,
		stateCh:       make(chan stateOp),
		done:          make(chan struct{}),
	}
	if c.logger == nil {
		c.logger = logging.Default()
	}
	for _, opt := range opts {
		opt(c)
	}
	initial := Available
	if c.remote == nil {
		initial = Degraded
	}
	go c.stateLoop(initial)
	return c
}

// stateLoop owns the backend state. Only operation-failure paths and the
// reconnect loop write to it; readers only branch on the current value.
func (c *Cache) stateLoop(initial State) {
	state := initial
	for {
		select {
		case <-c.done:
			return
		case op := <-c.stateCh:
			prev := state
			if op.set && (!op.cas || state == op.from) {
				state = op.next
			}
			if op.reply != nil {
				op.reply <- prev
			}
		}
	}
}

// State returns the current backend state.
func (c *Cache) State() State {
	reply := make(chan State, 1)
	select {
	case c.stateCh <- stateOp{reply: reply}:
		return <-reply
	case <-c.done:
		return Degraded
	}
}

func (c *Cache) setState(next State) {
	select {
	case c.stateCh <- stateOp{set: true, next: next}:
	case <-c.done:
	}
}

// TTL returns the configured entry TTL.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Close stops the reconnect machinery. Pending operations fall back to the
// local store.
func (c *Cache) Close() {
	close(c.done)
}

// Insert records that key has been seen. Calling twice with the same key
// refreshes the entry. Insert never fails: a remote error degrades the
// cache and the write lands in the local store instead.
func (c *Cache) Insert(ctx context.Context, key string) {
	if c.remote != nil && c.State() == Available {
		err := c.remote.Insert(ctx, key, c.ttl)
		if err == nil {
			return
		}
		c.degrade("insert", err)
	}
	_ = c.local.Insert(ctx, key, c.ttl)
}

// Remove deletes key and reports whether it was present and unexpired at
// the moment of removal. This is the dedup decision point: true means the
// key had been seen within the TTL window.
func (c *Cache) Remove(ctx context.Context, key string) bool {
	if c.remote != nil && c.State() == Available {
		present, err := c.remote.Remove(ctx, key)
		if err == nil {
			return present
		}
		c.degrade("remove", err)
	}
	present, _ := c.local.Remove(ctx, key)
	return present
}

// degrade transitions Available -> Degraded and kicks off the reconnect
// loop. The transition is immediate; the failing call has already fallen
// through to the local store.
func (c *Cache) degrade(op string, err error) {
	reply := make(chan State, 1)
	select {
	case c.stateCh <- stateOp{set: true, cas: true, from: Available, next: Degraded, reply: reply}:
	case <-c.done:
		return
	}
	if <-reply != Available {
		// Another call already degraded and owns the reconnect loop.
		return
	}
	c.logger.Warn("dedup: remote store failed, switching to local store",
		"op", op,
		"error", err,
	)
	go c.reconnect()
}

// reconnect probes the remote store with capped backoff. Success flips the
// cache back to Available; exhausting the ceiling leaves it Degraded for
// the rest of the process lifetime.
func (c *Cache) reconnect() {
	if c.ping == nil || c.maxReconnects <= 0 {
		return
	}
	for attempt := 1; attempt <= c.maxReconnects; attempt++ {
		delay := time.Duration(attempt) * c.backoffStep
		if delay > c.backoffCap {
			delay = c.backoffCap
		}
		select {
		case <-c.done:
			return
		case <-time.After(delay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := c.ping(ctx)
		cancel()
		if err == nil {
			c.setState(Available)
			c.logger.Info("dedup: remote store reconnected", "attempts", attempt)
			return
		}
		c.logger.Debug("dedup: reconnect attempt failed",
			"attempt", attempt,
			"error", err,
		)
	}
	c.logger.Error("dedup: reconnect attempts exhausted, staying on local store",
		"attempts", c.maxReconnects,
	)
}
