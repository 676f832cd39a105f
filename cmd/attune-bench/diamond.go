package main

import (
	"fmt"
	"sync/atomic"

	"github.com/spf13/cobra"

	"github.com/attune-dev/attune/pkg/attune"
)

func diamondCmd() *cobra.Command {
	var width int

	cmd := &cobra.Command{
		Use:   "diamond",
		Short: "Measure settle latency through a diamond of memos",
		Long: `Builds a diamond graph (source signal -> N branch memos -> sink memo
-> effect) and writes the source in a tight loop from one worker.
Each write must settle the sink exactly once; the sink_runs_per_write
extra staying at 1.00 confirms no branch triggered a redundant run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiamondBench(width)
		},
	}

	cmd.Flags().IntVar(&width, "width", 16, "Branch memos between source and sink")

	return cmd
}

func runDiamondBench(width int) error {
	if width < 1 {
		return fmt.Errorf("width must be at least 1")
	}

	rt, stop := newBenchRuntime()
	defer stop()

	source := attune.NewSignal(rt, 0)
	branches := make([]*attune.Memo[int], width)
	for i := range branches {
		weight := i + 1
		branches[i] = attune.NewMemo(rt, func() int {
			return source.Get() * weight
		})
	}
	sink := attune.NewMemo(rt, func() int {
		total := 0
		for _, b := range branches {
			total += b.Get()
		}
		return total
	})
	var sinkRuns atomic.Uint64
	attune.CreateEffect(rt, func() attune.Cleanup {
		sink.Get()
		sinkRuns.Add(1)
		return nil
	})

	run := measure(1, func(worker int, iter uint64) {
		source.Set(int(iter) + 1)
	})

	extras := map[string]float64{}
	if run.ops > 0 {
		// The effect's initial run precedes the first write.
		extras["sink_runs_per_write"] = float64(sinkRuns.Load()-1) / float64(run.ops)
	}

	report := buildReport(workloadInfo{
		Bench:       "diamond",
		Workers:     1,
		DurationMS:  cfg.Duration.Milliseconds(),
		SampleEvery: cfg.SampleEvery,
		Width:       width,
	}, run, rt.Stats(), extras)
	return emitReport(report)
}
