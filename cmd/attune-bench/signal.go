package main

import (
	"fmt"
	"sync/atomic"

	"github.com/spf13/cobra"

	"github.com/attune-dev/attune/pkg/attune"
)

func signalCmd() *cobra.Command {
	var (
		writers int
		signals int
	)

	cmd := &cobra.Command{
		Use:   "signal",
		Short: "Measure raw signal write-and-flush throughput",
		Long: `Creates a pool of signals, each observed by one effect, and hammers
them with writes from concurrent workers. One op is one Set call,
timed until its flush settles. With several writers flushes coalesce,
so the effect_runs_per_op extra drops below 1.0 under contention.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSignalBench(writers, signals)
		},
	}

	cmd.Flags().IntVar(&writers, "writers", 4, "Concurrent writer goroutines")
	cmd.Flags().IntVar(&signals, "signals", 64, "Signals in the pool")

	return cmd
}

func runSignalBench(writers, signals int) error {
	if writers < 1 || signals < 1 {
		return fmt.Errorf("writers and signals must be at least 1")
	}

	rt, stop := newBenchRuntime()
	defer stop()

	pool := make([]*attune.Signal[uint64], signals)
	for i := range pool {
		pool[i] = attune.NewSignal(rt, uint64(0))
	}
	var observed atomic.Uint64
	for _, sig := range pool {
		attune.CreateEffect(rt, func() attune.Cleanup {
			sig.Get()
			observed.Add(1)
			return nil
		})
	}

	run := measure(writers, func(worker int, iter uint64) {
		// Distinct values per worker so no write is dropped as a
		// no-change set, even when workers share a signal.
		value := iter*uint64(writers) + uint64(worker) + 1
		pool[(uint64(worker)+iter*uint64(writers))%uint64(signals)].Set(value)
	})

	extras := map[string]float64{}
	if run.ops > 0 {
		// Initial effect runs are not write-driven; exclude them.
		extras["effect_runs_per_op"] = float64(observed.Load()-uint64(signals)) / float64(run.ops)
	}

	report := buildReport(workloadInfo{
		Bench:       "signal",
		Workers:     writers,
		DurationMS:  cfg.Duration.Milliseconds(),
		SampleEvery: cfg.SampleEvery,
		Signals:     signals,
	}, run, rt.Stats(), extras)
	return emitReport(report)
}
