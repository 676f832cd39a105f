package main

import (
	"fmt"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/attune-dev/attune/pkg/attune"
	"github.com/attune-dev/attune/pkg/devtools"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "attune-bench",
		Short: "Synthetic benchmarks for the attune reactive runtime",
		Long: `attune-bench drives an attune runtime through synthetic reactive
workloads and reports throughput, latency percentiles and GC impact.

The human-readable summary goes to stderr and the JSON report to
stdout (redirect with --json PATH). With --serve the devtools debug
endpoints (Prometheus metrics, graph stats, live event stream) stay
up for the duration of the run.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().DurationVar(&cfg.Duration, "duration", 5*time.Second, "How long each benchmark runs")
	rootCmd.PersistentFlags().IntVar(&cfg.SampleEvery, "sample-every", 64, "Record every Nth op's latency")
	rootCmd.PersistentFlags().StringVar(&cfg.JSONPath, "json", "-", `Write the JSON report to this path ("-" for stdout, "" to skip)`)
	rootCmd.PersistentFlags().StringVar(&cfg.Serve, "serve", "", "Serve devtools endpoints on this address during the run (e.g. localhost:6060)")

	rootCmd.AddCommand(
		signalCmd(),
		diamondCmd(),
		resourceCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("attune-bench %s (commit %s, built %s, %s %s/%s)\n",
				version, commit, date, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}

// newBenchRuntime builds the runtime under test. With --serve set it
// attaches a Prometheus collector and serves the devtools endpoints
// until the process exits; the collector's overhead is then part of
// the measured numbers.
func newBenchRuntime() (*attune.Runtime, func()) {
	if cfg.Serve == "" {
		return attune.NewRuntime(), func() {}
	}

	registry := prometheus.NewRegistry()
	collector := devtools.NewPrometheusCollector(devtools.WithRegistry(registry)).ObserveEvents()
	rt := attune.NewRuntime(attune.WithCollector(collector))
	server := devtools.NewServer(rt, devtools.WithGatherer(registry))
	go func() {
		if err := http.ListenAndServe(cfg.Serve, server); err != nil {
			fmt.Fprintf(os.Stderr, "devtools server: %v\n", err)
		}
	}()
	fmt.Fprintf(os.Stderr, "devtools listening on http://%s\n", cfg.Serve)
	return rt, server.Close
}
