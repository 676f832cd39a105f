package main

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/attune-dev/attune/pkg/features/resource"
)

func resourceCmd() *cobra.Command {
	var (
		resources  int
		workers    int
		fetchDelay time.Duration
	)

	cmd := &cobra.Command{
		Use:   "resource",
		Short: "Measure refetch round-trip latency",
		Long: `Creates a pool of resources backed by an in-process fetcher and
refetches them from concurrent workers. One op is one Refetch timed
until Wait observes the settled result, so the numbers cover the
fetch goroutine, the commit and the notifying flush. --fetch-delay
adds simulated I/O inside the fetcher.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResourceBench(resources, workers, fetchDelay)
		},
	}

	cmd.Flags().IntVar(&resources, "resources", 8, "Resources in the pool")
	cmd.Flags().IntVar(&workers, "workers", 4, "Concurrent refetching workers")
	cmd.Flags().DurationVar(&fetchDelay, "fetch-delay", 0, "Simulated fetch latency")

	return cmd
}

func runResourceBench(resources, workers int, fetchDelay time.Duration) error {
	if resources < 1 || workers < 1 {
		return fmt.Errorf("resources and workers must be at least 1")
	}

	rt, stop := newBenchRuntime()
	defer stop()
	ctx := context.Background()

	var fetches atomic.Uint64
	fetcher := func(fctx context.Context, info resource.FetchInfo[uint64]) (uint64, error) {
		if fetchDelay > 0 {
			timer := time.NewTimer(fetchDelay)
			defer timer.Stop()
			select {
			case <-fctx.Done():
				return 0, fctx.Err()
			case <-timer.C:
			}
		}
		return fetches.Add(1), nil
	}

	pool := make([]*resource.Resource[uint64], resources)
	for i := range pool {
		pool[i] = resource.New(rt, fetcher, resource.WithName[uint64](fmt.Sprintf("bench-%d", i)))
	}
	for i, r := range pool {
		if _, err := r.Wait(ctx); err != nil {
			return fmt.Errorf("warm up resource %d: %w", i, err)
		}
	}

	var waitErrs atomic.Uint64
	run := measure(workers, func(worker int, iter uint64) {
		r := pool[(uint64(worker)+iter*uint64(workers))%uint64(resources)]
		r.Refetch()
		if _, err := r.Wait(ctx); err != nil {
			waitErrs.Add(1)
		}
	})

	extras := map[string]float64{
		"fetches_total": float64(fetches.Load()),
	}
	if errs := waitErrs.Load(); errs > 0 {
		extras["wait_errors"] = float64(errs)
	}

	report := buildReport(workloadInfo{
		Bench:        "resource",
		Workers:      workers,
		DurationMS:   cfg.Duration.Milliseconds(),
		SampleEvery:  cfg.SampleEvery,
		Resources:    resources,
		FetchDelayUS: fetchDelay.Microseconds(),
	}, run, rt.Stats(), extras)
	return emitReport(report)
}
