package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/constraintd/constraintd/core"
	"github.com/constraintd/constraintd/loader/yamlloader"
	"github.com/constraintd/constraintd/pkg/activation"
	"github.com/constraintd/constraintd/pkg/composition"
	contextpkg "github.com/constraintd/constraintd/pkg/context"
	"github.com/constraintd/constraintd/pkg/logger"
	"github.com/constraintd/constraintd/pkg/matcher"
	"github.com/constraintd/constraintd/pkg/resolver"
	"github.com/constraintd/constraintd/pkg/telemetry"
	"github.com/constraintd/constraintd/resilience"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Construct the activation core and run a stdin/stdout demo loop",
	Long: `serve builds the activation core (library, resolver, matcher, composition
registry, activator) and reads lines of text from stdin as if each were a
user turn, printing the constraints activated by it to stdout.

This is a development harness, not a transport: the JSON-RPC surface named
in the constraint activation spec is out of scope here and must be built
by whatever process embeds this core.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := logger.NewSimpleLogger()
	log.SetLevel(cfg.Logging.Level)

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	lib, err := resilience.RetryLoad(ctx, yamlloader.New(cfg.Library.Path), resilience.DefaultRetryConfig())
	if err != nil {
		return fmt.Errorf("loading library %s: %w", cfg.Library.Path, err)
	}
	log.Info("library loaded", "path", cfg.Library.Path)

	m, err := matcher.New()
	if err != nil {
		return fmt.Errorf("building matcher: %w", err)
	}

	clock := core.SystemClock{}

	var telemetryProvider *telemetry.Provider
	var resolverOpts []resolver.Option
	if cfg.Telemetry.Enabled {
		telemetryProvider, err = telemetry.New(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
		if err != nil {
			return fmt.Errorf("building telemetry provider: %w", err)
		}
		resolverOpts = append(resolverOpts, resolver.WithMetricsRecorder(telemetryProvider))
		defer func() { _ = telemetryProvider.Shutdown(context.Background()) }()
	}

	r := resolver.New(lib, clock, log, resolverOpts...)
	if telemetryProvider != nil {
		telemetryProvider.RegisterResolverMetricsSource(r.Metrics)
	}

	activatorOpts := []activation.Option{activation.WithSoftDeadline(cfg.Activation.SoftDeadline)}
	if telemetryProvider != nil {
		activatorOpts = append(activatorOpts, activation.WithTracer(telemetryProvider.Tracer()))
	}

	sessions := composition.NewRegistry(composition.New())
	activator := activation.New(
		lib,
		contextpkg.New(),
		m,
		r,
		sessions,
		activation.NewFormatter(),
		clock,
		log,
		activatorOpts...,
	)

	return runDemoLoop(ctx, cmd, activator, telemetryProvider)
}

func runDemoLoop(ctx context.Context, cmd *cobra.Command, activator *activation.Activator, tel *telemetry.Provider) error {
	const sessionID = "cli-session"
	out := cmd.OutOrStdout()
	in := cmd.InOrStdin()

	fmt.Fprintln(out, "constraintd demo loop: type a line of context, Ctrl-D to exit")
	scanner := bufio.NewScanner(in)
	var interaction int64

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		interaction++

		raw := core.RawContext{UserInput: line}
		start := core.SystemClock{}.Now()
		result, err := activator.Activate(ctx, raw, sessionID, interaction)
		if err != nil {
			fmt.Fprintf(out, "activate error: %v\n", err)
			continue
		}
		if tel != nil {
			tel.RecordActivation(ctx, core.SystemClock{}.Now().Sub(start), result.BudgetExceeded)
		}

		if len(result.Activated) == 0 {
			fmt.Fprintln(out, "(no constraints activated)")
			continue
		}
		fmt.Fprintln(out, result.Message)
	}
	return scanner.Err()
}
