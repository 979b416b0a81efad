package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/skillsenselab/streamkit/executor"
	"github.com/skillsenselab/streamkit/logger"
	"github.com/skillsenselab/streamkit/observability"
	"github.com/skillsenselab/streamkit/process"
	"github.com/skillsenselab/streamkit/stream"
	"github.com/skillsenselab/streamkit/validation"
	"github.com/skillsenselab/streamkit/version"
)

type runOptions struct {
	root *rootOptions

	input      string
	backend    string
	workers    int
	slack      int
	skipFailed bool
	limit      int
	distinct   bool
	timeout    time.Duration
	grace      time.Duration
	maxProcs   int64
	telemetry  bool
	otlpAddr   string
}

func newRunCommand(root *rootOptions) *cobra.Command {
	opts := &runOptions{root: root}

	cmd := &cobra.Command{
		Use:   "run [flags] -- command [args...]",
		Short: "Pipe input lines through a command, in order",
		Long: `Run reads lines from the input, feeds each line to one subprocess on
stdin, and prints each trimmed stdout in input order. With more than one
worker, lines are processed concurrently while output order is preserved.`,
		Example: `  # uppercase a file with 8 concurrent tr processes
  streamkit run --workers 8 --input words.txt -- tr a-z A-Z

  # drop lines the command rejects instead of stopping
  streamkit run --skip-failed -- ./check-line.sh`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd.Context(), cmd.OutOrStdout(), args)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.input, "input", "i", "-", `input file ("-" reads stdin)`)
	flags.StringVar(&opts.backend, "backend", "", "execution backend: sequential, workers, or conc")
	flags.IntVarP(&opts.workers, "workers", "w", 0, "concurrent subprocess slots")
	flags.IntVar(&opts.slack, "slack", 0, "pending results buffered per worker")
	flags.BoolVar(&opts.skipFailed, "skip-failed", false, "drop lines whose command fails instead of stopping")
	flags.IntVar(&opts.limit, "limit", 0, "stop after this many input lines (0 means all)")
	flags.BoolVar(&opts.distinct, "distinct", false, "drop duplicate input lines")
	flags.DurationVar(&opts.timeout, "timeout", 0, "per-line command timeout (0 means none)")
	flags.DurationVar(&opts.grace, "grace", 0, "SIGTERM to SIGKILL grace period")
	flags.Int64Var(&opts.maxProcs, "max-procs", 0, "cap on live subprocesses (0 means one per worker)")
	flags.BoolVar(&opts.telemetry, "telemetry", false, "export OTLP traces and metrics")
	flags.StringVar(&opts.otlpAddr, "otlp-endpoint", "", "OTLP HTTP endpoint host:port")

	return cmd
}

// applyConfig fills options the caller left unset from the loaded config.
// Flags win over config values.
func (o *runOptions) applyConfig(cfg *cliConfig) {
	if o.backend == "" {
		o.backend = cfg.Stage.Backend
	}
	if o.workers == 0 {
		o.workers = cfg.Stage.Workers
	}
	if o.slack == 0 {
		o.slack = cfg.Stage.Slack
	}
	if o.timeout == 0 {
		o.timeout = cfg.Process.Timeout
	}
	if o.grace == 0 {
		o.grace = cfg.Process.GracePeriod
	}
	if o.maxProcs == 0 {
		o.maxProcs = cfg.Process.MaxProcs
	}
	if !o.telemetry {
		o.telemetry = cfg.Telemetry.Enabled
	}
	if o.otlpAddr == "" {
		o.otlpAddr = cfg.Telemetry.Endpoint
	}
}

func (o *runOptions) run(ctx context.Context, out io.Writer, argv []string) error {
	cfg, err := loadConfig(o.root.configFile)
	if err != nil {
		return err
	}
	o.applyConfig(cfg)

	logger.Init(cfg.Logging)
	logger.RegisterDefaults("cli", "stage")
	log := logger.Get("cli")

	kind := executor.Kind(o.backend)
	if !kind.Valid() {
		return fmt.Errorf("unknown backend %q (want sequential, workers, or conc)", o.backend)
	}

	var metrics *observability.Metrics
	if o.telemetry {
		shutdown, m, err := o.initTelemetry(ctx, cfg)
		if err != nil {
			return err
		}
		defer shutdown()
		metrics = m
	}

	in, closeIn, err := openInput(o.input)
	if err != nil {
		return err
	}
	defer closeIn()

	mcfg := process.MapperConfig{
		Binary:      argv[0],
		Args:        argv[1:],
		Dir:         cfg.Process.Dir,
		Env:         cfg.Process.Env,
		Timeout:     o.timeout,
		GracePeriod: o.grace,
		MaxProcs:    o.maxProcs,
	}
	if err := validation.Validate(mcfg); err != nil {
		return fmt.Errorf("process config: %w", err)
	}
	fn := process.Mapper(mcfg)
	if metrics != nil {
		fn = observability.Stage("exec", metrics, fn)
	}

	p := stream.From[string](newLineIterator(in))
	if o.distinct {
		p = stream.Distinct(p)
	}
	if o.limit > 0 {
		p = stream.Limit(p, o.limit)
	}

	stageOpts := []stream.StageOption{
		stream.WithStageName("exec"),
		stream.WithLogger(logger.Get("stage")),
		stream.WithSlack(o.slack),
	}
	if kind != executor.KindSequential {
		stageOpts = append(stageOpts, stream.InParallel(kind, o.workers))
	}
	if o.skipFailed {
		stageOpts = append(stageOpts, stream.WithSkipFailed())
	}
	mapped := stream.Map(p, fn, stageOpts...)

	rc := observability.NewRunContext("run", metrics)
	ctx = observability.WithRunContext(ctx, rc)
	ctx = logger.ContextWithRunID(ctx, rc.RunID)
	ctx, span := rc.StartSpan(ctx)

	var delivered int
	err = stream.ForEach(ctx, mapped, func(_ context.Context, line string) error {
		delivered++
		_, werr := fmt.Fprintln(out, line)
		return werr
	})
	rc.End(ctx, span, err)
	if err != nil {
		return err
	}

	log.WithContext(ctx).Info("run finished", logger.MergeWithDuration(logger.Fields(
		"lines", delivered,
		"backend", o.backend,
		"workers", o.workers,
	), rc.Duration()))
	return nil
}

func (o *runOptions) initTelemetry(ctx context.Context, cfg *cliConfig) (func(), *observability.Metrics, error) {
	tcfg := observability.DefaultTracerConfig(cfg.Name)
	tcfg.ServiceVersion = version.Get().Version
	tcfg.Environment = cfg.Environment
	tcfg.Endpoint = o.otlpAddr

	tp, err := observability.InitTracer(ctx, &tcfg)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing tracer: %w", err)
	}

	mcfg := observability.DefaultMeterConfig(cfg.Name)
	mcfg.ServiceVersion = tcfg.ServiceVersion
	mcfg.Environment = cfg.Environment
	mcfg.Endpoint = o.otlpAddr

	mp, err := observability.InitMeter(ctx, &mcfg)
	if err != nil {
		_ = tp.Shutdown(context.Background())
		return nil, nil, fmt.Errorf("initializing meter: %w", err)
	}

	metrics, err := observability.NewMetrics(observability.Meter("streamkit/cli"))
	if err != nil {
		_ = mp.Shutdown(context.Background())
		_ = tp.Shutdown(context.Background())
		return nil, nil, fmt.Errorf("creating metrics: %w", err)
	}

	shutdown := func() {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mp.Shutdown(shCtx); err != nil {
			logger.Warn("meter shutdown failed", logger.ErrorFields("shutdown", err))
		}
		if err := tp.Shutdown(shCtx); err != nil {
			logger.Warn("tracer shutdown failed", logger.ErrorFields("shutdown", err))
		}
	}
	return shutdown, metrics, nil
}
