// Workload simulator for the oteltrpc interceptor
// Drives synthetic procedure calls through the full instrumentation path and
// exports the resulting spans, metrics, and logs via the OTel SDK
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/grafana/pyroscope-go"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/andrewh/oteltrpc/pkg/audit"
	"github.com/andrewh/oteltrpc/pkg/oteltrpc"
	"github.com/andrewh/oteltrpc/pkg/oteltrpc/logbridge"
	"github.com/andrewh/oteltrpc/pkg/telemetry"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "trpcsim",
		Short:        "Synthetic workload driver for the oteltrpc interceptor",
		SilenceUsage: true,
	}

	root.AddCommand(runCmd())
	root.AddCommand(validateCmd())
	root.AddCommand(statsCmd())
	root.AddCommand(versionCmd())

	return root
}

// newViper binds the given flags so OTELTRPC_* environment variables can
// override them (e.g. OTELTRPC_ENDPOINT, OTELTRPC_AUDIT_DB).
func newViper(cmd *cobra.Command, flags ...string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("OTELTRPC")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for _, name := range flags {
		if err := v.BindPFlag(name, cmd.Flags().Lookup(name)); err != nil {
			return nil, fmt.Errorf("binding flag %s: %w", name, err)
		}
	}
	return v, nil
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <workload.yaml>",
		Short: "Run a simulated workload through the interceptor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := newViper(cmd, "endpoint", "protocol", "stdout", "audit-db", "audit-dsn", "pyroscope")
			if err != nil {
				return err
			}
			return runSimulation(cmd.Context(), args[0], runOptions{
				endpoint:  v.GetString("endpoint"),
				protocol:  v.GetString("protocol"),
				stdout:    v.GetBool("stdout"),
				auditDB:   v.GetString("audit-db"),
				auditDSN:  v.GetString("audit-dsn"),
				pyroscope: v.GetString("pyroscope"),
			})
		},
	}

	cmd.Flags().String("endpoint", "", "OTLP endpoint (e.g. localhost:4318)")
	cmd.Flags().String("protocol", "http/protobuf", "OTLP protocol (http/protobuf or grpc)")
	cmd.Flags().Bool("stdout", false, "emit signals to stdout as JSON")
	cmd.Flags().String("audit-db", "", "record calls in a SQLite audit database at this path")
	cmd.Flags().String("audit-dsn", "", "record calls in a Postgres audit database at this DSN")
	cmd.Flags().String("pyroscope", "", "enable continuous profiling against this Pyroscope server")

	return cmd
}

type runOptions struct {
	endpoint  string
	protocol  string
	stdout    bool
	auditDB   string
	auditDSN  string
	pyroscope string
}

func runSimulation(ctx context.Context, workloadPath string, opts runOptions) error {
	workload, err := LoadWorkload(workloadPath)
	if err != nil {
		return err
	}
	if opts.auditDB != "" && opts.auditDSN != "" {
		return fmt.Errorf("--audit-db and --audit-dsn are mutually exclusive")
	}

	if opts.pyroscope != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "trpcsim",
			ServerAddress:   opts.pyroscope,
		})
		if err != nil {
			return fmt.Errorf("starting profiler: %w", err)
		}
		defer func() {
			if err := profiler.Stop(); err != nil {
				fmt.Fprintf(os.Stderr, "error stopping profiler: %v\n", err)
			}
		}()
	}

	providers, err := telemetry.New(ctx, telemetry.Config{
		ServiceName: "trpcsim",
		Endpoint:    opts.endpoint,
		Protocol:    opts.protocol,
		Stdout:      opts.stdout,
	})
	if err != nil {
		return fmt.Errorf("creating telemetry providers: %w", err)
	}
	defer func() {
		if err := providers.Shutdown(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "error shutting down telemetry: %v\n", err)
		}
	}()

	logger := logbridge.New(providers.Logger)

	icOpts := []oteltrpc.Option{oteltrpc.WithLogger(logger)}
	store, err := openAuditStore(ctx, opts)
	if err != nil {
		return err
	}
	if store != nil {
		defer func() {
			if err := store.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "error closing audit store: %v\n", err)
			}
		}()
		icOpts = append(icOpts, oteltrpc.WithObservers(audit.NewRecorder(store, logger)))
	}

	ic, err := oteltrpc.New(providers.Tracer, providers.Meter, icOpts...)
	if err != nil {
		return fmt.Errorf("creating interceptor: %w", err)
	}

	// Handle signals for graceful shutdown
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // synthetic workload, not security-sensitive
	stats := runWorkload(ctx, workload, ic, rng)

	return json.NewEncoder(os.Stderr).Encode(stats)
}

func openAuditStore(ctx context.Context, opts runOptions) (audit.Store, error) {
	switch {
	case opts.auditDB != "":
		store, err := audit.OpenSQLite(opts.auditDB)
		if err != nil {
			return nil, err
		}
		return store, nil
	case opts.auditDSN != "":
		store, err := audit.OpenPostgres(ctx, opts.auditDSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, nil
	}
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <workload.yaml>",
		Short: "Parse and validate a workload definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			workload, err := LoadWorkload(args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Workload valid: %d procedures, %s duration\n",
				len(workload.Procedures), workload.Duration)
			return nil
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <audit.db>",
		Short: "Print per-procedure aggregates from a SQLite audit database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := audit.OpenSQLite(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			summaries, err := store.Summarize(cmd.Context())
			if err != nil {
				return err
			}
			renderSummaries(cmd, summaries)
			return nil
		},
	}
}

func renderSummaries(cmd *cobra.Command, summaries []audit.PathSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"Path", "Type", "Calls", "Failures", "Internal", "Avg ms"})
	for _, s := range summaries {
		t.AppendRow(table.Row{s.Path, s.Type, s.Calls, s.Failures, s.Internal,
			fmt.Sprintf("%.2f", s.AvgDurationMs)})
	}
	t.Render()
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "trpcsim %s (commit: %s, built: %s)\n", version, commit, buildTime)
		},
	}
}
