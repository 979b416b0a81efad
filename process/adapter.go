package process

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"
)

// MapperConfig configures a line-oriented subprocess stage.
type MapperConfig struct {
	// Binary is the executable path or name (resolved via PATH).
	Binary string `yaml:"binary" mapstructure:"binary" validate:"required"`
	// Args are the command-line arguments.
	Args []string `yaml:"args,omitempty" mapstructure:"args"`
	// Dir is the working directory. If empty, uses the current directory.
	Dir string `yaml:"dir,omitempty" mapstructure:"dir"`
	// Env is additional environment variables (key=value). Merged with os.Environ.
	Env []string `yaml:"env,omitempty" mapstructure:"env"`
	// Timeout bounds each invocation. Zero means no timeout.
	Timeout time.Duration `yaml:"timeout,omitempty" mapstructure:"timeout" validate:"gte=0"`
	// GracePeriod is how long to wait between SIGTERM and SIGKILL.
	GracePeriod time.Duration `yaml:"grace_period,omitempty" mapstructure:"grace_period" validate:"gte=0"`
	// MaxProcs caps live subprocesses across all workers sharing the mapper.
	// Zero means one subprocess per worker, uncapped.
	MaxProcs int64 `yaml:"max_procs,omitempty" mapstructure:"max_procs" validate:"gte=0"`
}

// Mapper returns a stage function that pipes each item through one subprocess
// invocation: the item is written to stdin followed by a newline, and stdout
// with trailing newlines trimmed becomes the output item. A non-zero exit
// fails the item, with stderr attached to the error.
//
// The returned function is safe for concurrent use, so it can be handed
// directly to a parallel Map stage. MaxProcs bounds subprocesses even when
// the stage runs more workers than the machine should fork.
func Mapper(cfg MapperConfig) func(context.Context, string) (string, error) {
	var sem *semaphore.Weighted
	if cfg.MaxProcs > 0 {
		sem = semaphore.NewWeighted(cfg.MaxProcs)
	}
	return func(ctx context.Context, item string) (string, error) {
		if sem != nil {
			if err := sem.Acquire(ctx, 1); err != nil {
				return "", err
			}
			defer sem.Release(1)
		}
		result, err := Run(ctx, Command{
			Binary:      cfg.Binary,
			Args:        cfg.Args,
			Dir:         cfg.Dir,
			Env:         cfg.Env,
			Stdin:       strings.NewReader(item + "\n"),
			Timeout:     cfg.Timeout,
			GracePeriod: cfg.GracePeriod,
		})
		if err != nil {
			if result != nil && len(result.Stderr) > 0 {
				return "", fmt.Errorf("%w: %s", err, bytes.TrimSpace(result.Stderr))
			}
			return "", err
		}
		return result.Text(), nil
	}
}
