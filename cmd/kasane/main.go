// Package main provides the kasane CLI tool.
//
// Usage:
//
//	kasane [--plan=FILE] <command> [arguments]
//
// Commands:
//
//	resolve KEY          Print the resolved value of a single key
//	placeholders         Print every placeholder of the plan
//	render [TMPL] [OUT]  Substitute placeholders into a manifest template
//	watch                Render, then render again whenever a file source changes
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/agriguard/kasane"
	"github.com/agriguard/kasane/internal/logging"
	"github.com/agriguard/kasane/internal/plan"
	"github.com/agriguard/kasane/manifest"
	"github.com/agriguard/kasane/watcher"
)

const version = "0.1.0"

// ErrStrict is returned in strict mode when a value is the sentinel or a
// manifest placeholder has no value.
var ErrStrict = errors.New("strict mode")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "kasane: %v\n", err)
		os.Exit(1)
	}
}

type cli struct {
	stdout io.Writer
	stderr io.Writer

	planPath string
	logLevel string
	strict   bool

	resolveKey     string
	resolveDefault string
	resolveExplain bool

	reveal bool

	template string
	output   string
	debounce time.Duration
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	c := &cli{stdout: stdout, stderr: stderr}

	app := kingpin.New("kasane", "Layered configuration resolution for build placeholders")
	app.Version(version)
	app.UsageWriter(stderr)
	app.ErrorWriter(stderr)
	app.Flag("plan", "Path to YAML resolution plan").Short('p').Envar("KASANE_PLAN").StringVar(&c.planPath)
	app.Flag("log-level", "Log level (debug, info, warn, error)").StringVar(&c.logLevel)
	app.Flag("strict", "Fail when a value is the sentinel or a placeholder is left unresolved").BoolVar(&c.strict)

	resolveCmd := app.Command("resolve", "Print the resolved value of a key")
	resolveCmd.Arg("key", "Configuration key, e.g. flutter.mapsApiKey").Required().StringVar(&c.resolveKey)
	resolveCmd.Flag("default", "Value used when no source defines the key").StringVar(&c.resolveDefault)
	resolveCmd.Flag("explain", "Report the origin and skipped sources on stderr").BoolVar(&c.resolveExplain)

	placeholdersCmd := app.Command("placeholders", "Print every placeholder of the plan")
	placeholdersCmd.Flag("reveal", "Print values instead of masking them").BoolVar(&c.reveal)

	renderCmd := app.Command("render", "Substitute placeholders into a manifest template")
	renderCmd.Arg("template", "Template path (default: manifest.template from the plan)").StringVar(&c.template)
	renderCmd.Arg("output", "Output path (default: manifest.output from the plan)").StringVar(&c.output)

	watchCmd := app.Command("watch", "Render, then render again whenever a file source changes")
	watchCmd.Arg("template", "Template path (default: manifest.template from the plan)").StringVar(&c.template)
	watchCmd.Arg("output", "Output path (default: manifest.output from the plan)").StringVar(&c.output)
	watchCmd.Flag("debounce", "Quiet period before re-rendering").Default(watcher.DefaultDebounce.String()).DurationVar(&c.debounce)

	command, err := app.Parse(args)
	if err != nil {
		return err
	}

	p, err := c.loadPlan()
	if err != nil {
		return err
	}

	logger, err := logging.New(p.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	stack, err := p.Build()
	if err != nil {
		return err
	}
	resolver := p.Resolver(kasane.WithLogger(logger))

	switch command {
	case resolveCmd.FullCommand():
		return c.resolve(ctx, p, stack, resolver)
	case placeholdersCmd.FullCommand():
		return c.placeholders(ctx, p, stack, resolver)
	case renderCmd.FullCommand():
		return c.render(ctx, p, stack, resolver, logger)
	case watchCmd.FullCommand():
		return c.watch(ctx, p, stack, resolver, logger)
	}
	return fmt.Errorf("unknown command %q", command)
}

func (c *cli) loadPlan() (*plan.Plan, error) {
	overrides := map[string]any{}
	if c.logLevel != "" {
		overrides["log_level"] = c.logLevel
	}
	if c.strict {
		overrides["strict"] = true
	}
	return plan.NewLoader(plan.WithFile(c.planPath), plan.WithOverrides(overrides)).Load()
}

func (c *cli) resolve(ctx context.Context, p *plan.Plan, stack *plan.Stack, r *kasane.Resolver) error {
	res, err := r.Lookup(ctx, c.resolveKey, stack.Sources, c.resolveDefault)
	if err != nil {
		return err
	}

	if c.resolveExplain {
		fmt.Fprintln(c.stderr, res.String())
		for _, s := range res.Skipped {
			fmt.Fprintf(c.stderr, "  skipped %s: %v\n", s.Name, s.Err)
		}
	}
	if p.Strict && res.Sentinel {
		return fmt.Errorf("%w: %s resolved to the sentinel", ErrStrict, res.Key)
	}

	fmt.Fprintln(c.stdout, res.Value)
	return nil
}

func (c *cli) placeholders(ctx context.Context, p *plan.Plan, stack *plan.Stack, r *kasane.Resolver) error {
	values, resolutions, err := c.populate(ctx, p, stack, r)
	if values == nil {
		return err
	}

	names := stack.Bindings.Names()
	for i, res := range resolutions {
		v := res.Masked()
		if c.reveal {
			v = res.Value
		}
		fmt.Fprintf(c.stdout, "%s=%s\t# %s\n", names[i], v, res.Origin())
	}
	return err
}

// populate resolves the plan's placeholders. On strict or required failures
// it still returns the populated map alongside the error.
func (c *cli) populate(ctx context.Context, p *plan.Plan, stack *plan.Stack, r *kasane.Resolver) (kasane.Placeholders, []kasane.Resolution, error) {
	values, resolutions, err := r.Populate(ctx, stack.Bindings, stack.Sources)
	if values == nil {
		return nil, nil, err
	}

	var errs []error
	if err != nil {
		errs = append(errs, err)
	}
	if p.Strict {
		for i, res := range resolutions {
			if res.Sentinel {
				errs = append(errs, fmt.Errorf("%w: placeholder %s resolved to the sentinel", ErrStrict, stack.Bindings.Names()[i]))
			}
		}
	}
	return values, resolutions, errors.Join(errs...)
}

func (c *cli) manifestPaths(p *plan.Plan) (string, string, error) {
	tmpl, out := c.template, c.output
	if tmpl == "" {
		tmpl = p.Manifest.Template
	}
	if out == "" {
		out = p.Manifest.Output
	}
	if tmpl == "" || out == "" {
		return "", "", errors.New("manifest template and output are required (arguments or plan manifest section)")
	}
	return tmpl, out, nil
}

func (c *cli) render(ctx context.Context, p *plan.Plan, stack *plan.Stack, r *kasane.Resolver, logger *zap.Logger) error {
	tmpl, out, err := c.manifestPaths(p)
	if err != nil {
		return err
	}
	return c.renderOnce(ctx, p, stack, r, logger, tmpl, out)
}

func (c *cli) renderOnce(ctx context.Context, p *plan.Plan, stack *plan.Stack, r *kasane.Resolver, logger *zap.Logger, tmpl, out string) error {
	values, _, err := c.populate(ctx, p, stack, r)
	if err != nil {
		return err
	}

	res, err := manifest.RenderFile(tmpl, out, values, 0o644)
	if err != nil {
		return err
	}

	if !res.Complete() {
		logger.Warn("manifest placeholders without a value",
			zap.String("template", tmpl),
			zap.Strings("placeholders", res.Unknown),
		)
		if p.Strict {
			return fmt.Errorf("%w: unresolved manifest placeholders %v", ErrStrict, res.Unknown)
		}
	}
	logger.Info("manifest rendered",
		zap.String("output", out),
		zap.Strings("replaced", res.Replaced),
	)
	return nil
}

func (c *cli) watch(ctx context.Context, p *plan.Plan, stack *plan.Stack, r *kasane.Resolver, logger *zap.Logger) error {
	tmpl, out, err := c.manifestPaths(p)
	if err != nil {
		return err
	}
	if err := c.renderOnce(ctx, p, stack, r, logger, tmpl, out); err != nil {
		return err
	}

	subs := make([]watcher.Subscriber, 0, len(stack.Files))
	for _, f := range stack.Files {
		subs = append(subs, f)
	}

	onChange := func() {
		if err := c.renderOnce(ctx, p, stack, r, logger, tmpl, out); err != nil {
			logger.Error("re-render failed", zap.Error(err))
		}
	}
	onError := func(err error) {
		logger.Warn("watch error", zap.Error(err))
	}

	logger.Info("watching file sources", zap.Int("files", len(subs)))
	return watcher.Run(ctx, subs, onChange,
		watcher.WithDebounce(c.debounce),
		watcher.WithErrorHandler(onError),
	)
}
