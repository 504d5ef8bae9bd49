package quern

import (
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/go-quern/quern/internal/flock"
	"go.uber.org/zap"
)

// A Context carries the shared collaborators of one pipeline run: the Stats
// sink, a logger, a clock, free-form configuration and resources, and the
// locks which serialize file writes. A Context is created once per
// orchestrator and passed by reference to every stage processor.
type Context struct {
	stats     *Stats
	log       *zap.Logger
	clock     clock.Clock
	config    map[string]interface{}
	resources map[string]interface{}

	// fileLock serializes writes to shared report files; pathLocks offers
	// finer-grained per-path locking for independent output targets
	fileLock  sync.Mutex
	pathLocks *flock.Registry
}

// ContextOption configures a Context during creation
type ContextOption func(*Context)

// WithLogger sets the logger for a Context. Without it the Context is silent.
func WithLogger(log *zap.Logger) ContextOption {
	return func(c *Context) { c.log = log }
}

// WithClock sets the clock for a Context, so tests can substitute a mock
func WithClock(clk clock.Clock) ContextOption {
	return func(c *Context) { c.clock = clk }
}

// WithConfig sets a free-form configuration value on a Context
func WithConfig(key string, value interface{}) ContextOption {
	return func(c *Context) { c.config[key] = value }
}

// WithResource sets a free-form shared resource on a Context
func WithResource(key string, value interface{}) ContextOption {
	return func(c *Context) { c.resources[key] = value }
}

// CreateContext is a factory for pipeline Contexts
func CreateContext(opts ...ContextOption) *Context {
	c := &Context{
		stats:     CreateStats(),
		log:       zap.NewNop(),
		clock:     clock.New(),
		config:    make(map[string]interface{}),
		resources: make(map[string]interface{}),
		pathLocks: flock.CreateRegistry(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	return c
}

// Stats returns the Stats sink for this run
func (c *Context) Stats() *Stats {
	return c.stats
}

// Log returns the logger for this run
func (c *Context) Log() *zap.Logger {
	return c.log
}

// Clock returns the clock used for delays and elapsed-time tracking
func (c *Context) Clock() clock.Clock {
	return c.clock
}

// Config returns the configuration value stored under key, or nil
func (c *Context) Config(key string) interface{} {
	return c.config[key]
}

// Resource returns the shared resource stored under key, or nil
func (c *Context) Resource(key string) interface{} {
	return c.resources[key]
}

// FileLock returns the lock which serializes writes to shared report files
func (c *Context) FileLock() *sync.Mutex {
	return &c.fileLock
}

// PathLock returns a lock dedicated to the given file path. Writes to
// distinct paths may proceed concurrently; writes to the same path (however
// it is spelled) serialize on the same lock.
func (c *Context) PathLock(path string) *sync.Mutex {
	return c.pathLocks.Get(path)
}
