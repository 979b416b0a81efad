package stream

import (
	"fmt"

	"github.com/skillsenselab/streamkit/executor"
	"github.com/skillsenselab/streamkit/logger"
)

// StageOption configures a single stage. Options apply to the stage they
// are passed to and never leak to neighbors.
type StageOption func(*stageConfig)

// InParallel runs the stage's user function on a bounded pool of the given
// backend kind with the given number of workers. Output order still matches
// input order. Workers must be >= 1.
func InParallel(kind executor.Kind, workers int) StageOption {
	return func(c *stageConfig) {
		c.kind = kind
		c.workers = workers
	}
}

// WithSlack multiplies the stage's in-flight buffer beyond its worker
// count: a parallel stage holds at most workers*slack undelivered items.
// Must be >= 1; the default is 1.
func WithSlack(slack int) StageOption {
	return func(c *stageConfig) {
		c.slack = slack
	}
}

// WithSkipFailed drops items whose user function fails instead of halting
// the stage. Surviving items keep their relative order.
func WithSkipFailed() StageOption {
	return func(c *stageConfig) {
		c.skipFailed = true
	}
}

// WithStageName tags the stage in errors and logs.
func WithStageName(name string) StageOption {
	return func(c *stageConfig) {
		c.name = name
	}
}

// WithLogger enables debug logging of the stage's pool lifecycle and
// skipped items.
func WithLogger(log *logger.Logger) StageOption {
	return func(c *stageConfig) {
		c.log = log
	}
}

type stageConfig struct {
	name       string
	kind       executor.Kind
	workers    int
	slack      int
	skipFailed bool
	log        *logger.Logger
	err        error
}

func newStageConfig(op string, opts []StageOption) *stageConfig {
	cfg := &stageConfig{name: op, slack: 1}
	for _, opt := range opts {
		opt(cfg)
	}
	cfg.err = cfg.validate()
	return cfg
}

func (c *stageConfig) validate() error {
	if c.slack < 1 {
		return &ConfigError{Stage: c.name, Err: fmt.Errorf("slack must be >= 1, got %d", c.slack)}
	}
	if !c.parallel() {
		return nil
	}
	if !c.kind.Valid() {
		return &ConfigError{Stage: c.name, Err: fmt.Errorf("unknown executor kind %q", c.kind)}
	}
	if c.workers < 1 {
		return &ConfigError{Stage: c.name, Err: fmt.Errorf("worker count must be >= 1, got %d", c.workers)}
	}
	return nil
}

// parallel reports whether InParallel was applied.
func (c *stageConfig) parallel() bool {
	return c.kind != "" || c.workers != 0
}

// capacity is the stage's in-flight bound.
func (c *stageConfig) capacity() int {
	return c.workers * c.slack
}
