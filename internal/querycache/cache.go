// Package querycache decorates a service.Service with a key-addressed read
// cache. Reads are served from memory while fresh, concurrent identical
// fetches are collapsed, failed reads are retried, and successful writes
// invalidate the keys they affect.
//
// Every fetch and write draws a ticket from a monotonically increasing
// sequence. A fetched value is stored only if its ticket is newer than both
// the stored value and the entry's invalidation floor, so a slow response
// that started before a newer write can never overwrite fresher data.
package querycache

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"tripboard/internal/service"
)

const (
	// DefaultStaleTime is how long a cached read is served without refetching.
	DefaultStaleTime = 5 * time.Minute

	// DefaultMaxRetries is how many additional attempts a failed read gets.
	DefaultMaxRetries = 2

	defaultBackoff = 250 * time.Millisecond
	maxBackoff     = 2 * time.Second
)

// Cache keys.
const (
	KeyBoards = "boards"
)

// BoardKey addresses a single board.
func BoardKey(boardID int64) string {
	return "board/" + strconv.FormatInt(boardID, 10)
}

// BudgetKey addresses a board's budget summary.
func BudgetKey(boardID int64) string {
	return BoardKey(boardID) + "/budget-summary"
}

// ExpensesKey addresses one filtered expense listing.
func ExpensesKey(boardID int64, f service.ExpenseFilter) string {
	return expensesPrefix(boardID) + f.Key()
}

// LocationsKey addresses a board's map pins.
func LocationsKey(boardID int64) string {
	return BoardKey(boardID) + "/locations"
}

func expensesPrefix(boardID int64) string {
	return BoardKey(boardID) + "/expenses/"
}

// Options configures a Cache.
type Options struct {
	StaleTime  time.Duration
	MaxRetries int

	// Backoff is the delay before the first retry; it doubles per attempt.
	Backoff time.Duration

	// Redis, when set, is a second-level cache shared between processes.
	Redis *redis.Client

	// Namespace scopes Redis keys, typically to the signed-in user.
	Namespace string

	Logger log.FieldLogger
	Now    func() time.Time
}

type entry struct {
	value   any
	fetched time.Time
	seq     uint64
	floor   uint64
	valid   bool
}

// Cache implements service.Service on top of another service.Service.
type Cache struct {
	base   service.Service
	opts   Options
	l2     *redisLayer
	logger log.FieldLogger

	mu       sync.Mutex
	entries  map[string]*entry
	prefixes map[string]uint64 // invalidated prefix -> floor
	seq      uint64

	group singleflight.Group
}

var _ service.Service = (*Cache)(nil)

// New wraps base. Zero option values fall back to package defaults.
func New(base service.Service, opts Options) *Cache {
	if base == nil {
		panic("querycache.New: base service is nil")
	}
	if opts.StaleTime <= 0 {
		opts.StaleTime = DefaultStaleTime
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.Backoff <= 0 {
		opts.Backoff = defaultBackoff
	}
	if opts.Logger == nil {
		opts.Logger = log.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	c := &Cache{
		base:     base,
		opts:     opts,
		logger:   opts.Logger,
		entries:  make(map[string]*entry),
		prefixes: make(map[string]uint64),
	}
	if opts.Redis != nil {
		c.l2 = &redisLayer{client: opts.Redis, prefix: redisPrefix(opts.Namespace), ttl: opts.StaleTime, logger: opts.Logger}
	}
	return c
}

// ticket returns the next sequence number.
func (c *Cache) ticket() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// fresh returns the cached value for key if it is younger than StaleTime.
func (c *Cache) fresh(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !e.valid {
		return nil, false
	}
	if c.opts.Now().Sub(e.fetched) >= c.opts.StaleTime {
		return nil, false
	}
	return e.value, true
}

// store records v under key if seq is newer than what the entry has seen.
// It reports whether the value was kept.
func (c *Cache) store(key string, seq uint64, v any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	if seq < e.floor || (e.valid && seq <= e.seq) {
		return false
	}
	for prefix, floor := range c.prefixes {
		if seq < floor && strings.HasPrefix(key, prefix) {
			return false
		}
	}
	e.value = v
	e.fetched = c.opts.Now()
	e.seq = seq
	e.valid = true
	return true
}

// Invalidate marks keys stale and raises their floor so fetches that started
// earlier cannot repopulate them.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	floor := c.ticket()
	c.mu.Lock()
	for _, key := range keys {
		c.invalidateLocked(key, floor)
	}
	c.mu.Unlock()
	if c.l2 != nil {
		c.l2.del(ctx, keys...)
	}
	c.logger.WithField("keys", keys).Debug("querycache.invalidate")
}

// invalidatePrefix invalidates every key that starts with prefix.
func (c *Cache) invalidatePrefix(ctx context.Context, prefix string) {
	floor := c.ticket()
	c.mu.Lock()
	c.prefixes[prefix] = floor
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			c.invalidateLocked(key, floor)
		}
	}
	c.mu.Unlock()
	if c.l2 != nil {
		c.l2.delPrefix(ctx, prefix)
	}
	c.logger.WithField("prefix", prefix).Debug("querycache.invalidate")
}

func (c *Cache) invalidateLocked(key string, floor uint64) {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	e.valid = false
	e.value = nil
	if floor > e.floor {
		e.floor = floor
	}
}

// SetBoard writes b into the cache as the newest known state of the board.
func (c *Cache) SetBoard(ctx context.Context, b service.Board) {
	key := BoardKey(b.ID)
	c.store(key, c.ticket(), b)
	if c.l2 != nil {
		c.l2.set(ctx, key, b)
	}
}

// PeekBoard returns the cached board regardless of staleness.
func (c *Cache) PeekBoard(boardID int64) (service.Board, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[BoardKey(boardID)]
	if !ok || !e.valid {
		return service.Board{}, false
	}
	b, ok := e.value.(service.Board)
	return b, ok
}

// read serves key from memory, then Redis, then a collapsed fetch.
func read[T any](ctx context.Context, c *Cache, key string, fetch func(context.Context) (T, error)) (T, error) {
	if v, ok := c.fresh(key); ok {
		c.logger.WithField("key", key).Debug("querycache.hit")
		return v.(T), nil
	}

	if c.l2 != nil {
		var v T
		seq := c.ticket()
		if c.l2.get(ctx, key, &v) {
			c.store(key, seq, v)
			c.logger.WithField("key", key).Debug("querycache.redis_hit")
			return v, nil
		}
	}

	ch := c.group.DoChan(key, func() (any, error) {
		seq := c.ticket()
		c.logger.WithField("key", key).Debug("querycache.miss")
		v, err := retry(ctx, c, key, fetch)
		if err != nil {
			return v, err
		}
		if !c.store(key, seq, v) {
			c.logger.WithFields(log.Fields{"key": key, "seq": seq}).Debug("querycache.stale_discarded")
		} else if c.l2 != nil {
			c.l2.set(ctx, key, v)
		}
		return v, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// retry runs fetch up to 1+MaxRetries times, backing off between attempts.
// Errors that service.IsRetryable rejects end the loop immediately.
func retry[T any](ctx context.Context, c *Cache, key string, fetch func(context.Context) (T, error)) (T, error) {
	delay := c.opts.Backoff
	for attempt := 0; ; attempt++ {
		v, err := fetch(ctx)
		if err == nil || attempt >= c.opts.MaxRetries || !service.IsRetryable(err) {
			return v, err
		}
		c.logger.WithFields(log.Fields{
			"key":     key,
			"attempt": attempt + 1,
			"error":   err.Error(),
		}).Debug("querycache.retry")

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			var zero T
			return zero, ctx.Err()
		case <-t.C:
		}
		delay *= 2
		if delay > maxBackoff {
			delay = maxBackoff
		}
	}
}
