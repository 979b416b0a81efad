// Command streamkit runs lazy, order-preserving data pipelines from the
// command line.
package main

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/skillsenselab/streamkit/config"
	"github.com/skillsenselab/streamkit/executor"
	"github.com/skillsenselab/streamkit/process"
	"github.com/skillsenselab/streamkit/validation"
)

type rootOptions struct {
	configFile string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "streamkit",
		Short: "Lazy, order-preserving data pipelines",
		Long: `streamkit pipes input lines through a bounded pool of subprocesses
and emits the results in input order, one line per item. Items are pulled
lazily, so unbounded inputs are fine.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.configFile, "config", "",
		"path to a config file (searched in standard locations when empty)")

	root.AddCommand(newRunCommand(opts))
	root.AddCommand(newVersionCommand())

	return root
}

// cliConfig is the binary's configuration, loadable from config.yml, .env
// files, and environment variables (STAGE_WORKERS overrides stage.workers).
type cliConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Stage struct {
		Backend string `yaml:"backend" mapstructure:"backend"`
		Workers int    `yaml:"workers" mapstructure:"workers"`
		Slack   int    `yaml:"slack" mapstructure:"slack"`
	} `yaml:"stage" mapstructure:"stage"`

	Process process.MapperConfig `yaml:"process" mapstructure:"process"`

	Telemetry struct {
		Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
		Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	} `yaml:"telemetry" mapstructure:"telemetry"`
}

func (c *cliConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "streamkit"
	}
	c.ServiceConfig.ApplyDefaults()
	if c.Stage.Backend == "" {
		c.Stage.Backend = string(executor.KindWorkers)
	}
	if c.Stage.Workers == 0 {
		c.Stage.Workers = runtime.NumCPU()
	}
	if c.Stage.Slack == 0 {
		c.Stage.Slack = 1
	}
	if c.Telemetry.Endpoint == "" {
		c.Telemetry.Endpoint = "localhost:4318"
	}
}

func (c *cliConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	return validation.New().
		OneOf("stage.backend", c.Stage.Backend, []string{
			string(executor.KindSequential),
			string(executor.KindWorkers),
			string(executor.KindConc),
		}).
		Min("stage.workers", c.Stage.Workers, 1).
		Min("stage.slack", c.Stage.Slack, 1).
		Validate()
}

func loadConfig(path string) (*cliConfig, error) {
	cfg := &cliConfig{}
	var opts []config.LoaderOption
	if path != "" {
		opts = append(opts, config.WithConfigFile(path))
	}
	if err := config.Load("streamkit", cfg, opts...); err != nil {
		return nil, err
	}
	return cfg, nil
}
