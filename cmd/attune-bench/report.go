package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"runtime"
	"runtime/metrics"
	"sort"
	"sync"
	"time"

	"github.com/attune-dev/attune/pkg/attune"
)

type benchConfig struct {
	Duration    time.Duration
	SampleEvery int
	JSONPath    string
	Serve       string
}

var cfg benchConfig

type workerResult struct {
	ops     uint64
	samples []time.Duration
}

type benchRun struct {
	elapsed time.Duration
	ops     uint64
	sorted  []time.Duration

	before, after               runtime.MemStats
	beforeMetrics, afterMetrics runtimeMetricsSnapshot
}

// measure drives workers goroutines against op until cfg.Duration
// elapses. Each op call is timed; every cfg.SampleEvery-th latency is
// kept for the percentile report. GC stats are snapshotted around the
// run so the report isolates the workload's allocation behavior.
func measure(workers int, op func(worker int, iter uint64)) benchRun {
	runtime.GC()
	var before runtime.MemStats
	runtime.ReadMemStats(&before)
	beforeMetrics := readRuntimeMetrics()

	results := make([]workerResult, workers)
	every := uint64(cfg.SampleEvery)
	if every == 0 {
		every = 1
	}

	start := time.Now()
	deadline := start.Add(cfg.Duration)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(w int) {
			defer wg.Done()
			res := &results[w]
			for iter := uint64(0); ; iter++ {
				t0 := time.Now()
				if t0.After(deadline) {
					return
				}
				op(w, iter)
				if iter%every == 0 {
					res.samples = append(res.samples, time.Since(t0))
				}
				res.ops++
			}
		}(w)
	}
	wg.Wait()
	elapsed := time.Since(start)

	var after runtime.MemStats
	runtime.ReadMemStats(&after)
	afterMetrics := readRuntimeMetrics()

	var ops uint64
	var merged []time.Duration
	for i := range results {
		ops += results[i].ops
		merged = append(merged, results[i].samples...)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i] < merged[j] })

	return benchRun{
		elapsed:       elapsed,
		ops:           ops,
		sorted:        merged,
		before:        before,
		after:         after,
		beforeMetrics: beforeMetrics,
		afterMetrics:  afterMetrics,
	}
}

type benchReport struct {
	Version    string             `json:"version"`
	Run        runInfo            `json:"run"`
	Workload   workloadInfo       `json:"workload"`
	LatencyUS  latencyInfo        `json:"latency_us"`
	Throughput throughputInfo     `json:"throughput"`
	Graph      graphInfo          `json:"graph"`
	GC         gcInfo             `json:"gc"`
	Extras     map[string]float64 `json:"extras,omitempty"`
}

type runInfo struct {
	Timestamp string `json:"timestamp"`
	Go        string `json:"go"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	CPUCount  int    `json:"cpu_count"`
}

type workloadInfo struct {
	Bench        string `json:"bench"`
	Workers      int    `json:"workers"`
	DurationMS   int64  `json:"duration_ms"`
	SampleEvery  int    `json:"sample_every"`
	Signals      int    `json:"signals,omitempty"`
	Width        int    `json:"width,omitempty"`
	Resources    int    `json:"resources,omitempty"`
	FetchDelayUS int64  `json:"fetch_delay_us,omitempty"`
}

type latencyInfo struct {
	Samples int     `json:"samples"`
	Min     float64 `json:"min"`
	P50     float64 `json:"p50"`
	P95     float64 `json:"p95"`
	P99     float64 `json:"p99"`
	Max     float64 `json:"max"`
}

type throughputInfo struct {
	OpsTotal     uint64  `json:"ops_total"`
	OpsPerSec    float64 `json:"ops_per_sec"`
	OpsPerWorker float64 `json:"ops_per_sec_per_worker"`
}

type graphInfo struct {
	SignalsCreated int64  `json:"signals_created"`
	LiveMemos      int64  `json:"live_memos"`
	LiveEffects    int64  `json:"live_effects"`
	Flushes        uint64 `json:"flushes"`
	EffectRuns     uint64 `json:"effect_runs"`
}

type gcInfo struct {
	AllocMB       float64 `json:"alloc_mb"`
	HeapLiveMB    float64 `json:"heap_live_mb"`
	NumGC         uint32  `json:"num_gc"`
	PauseTotalMS  float64 `json:"pause_total_ms"`
	PauseAvgMS    float64 `json:"pause_avg_ms"`
	GCCPUFraction float64 `json:"gc_cpu_fraction"`
	AllocsObjects uint64  `json:"allocs_objects"`
}

func buildReport(workload workloadInfo, run benchRun, stats attune.Stats, extras map[string]float64) benchReport {
	elapsedSeconds := math.Max(0.001, run.elapsed.Seconds())
	opsPerSec := float64(run.ops) / elapsedSeconds

	latency := latencyInfo{}
	if len(run.sorted) > 0 {
		latency = latencyInfo{
			Samples: len(run.sorted),
			Min:     us(run.sorted[0]),
			P50:     us(percentile(run.sorted, 0.50)),
			P95:     us(percentile(run.sorted, 0.95)),
			P99:     us(percentile(run.sorted, 0.99)),
			Max:     us(run.sorted[len(run.sorted)-1]),
		}
	}

	pauseTotal := time.Duration(run.after.PauseTotalNs - run.before.PauseTotalNs)

	return benchReport{
		Version: "1",
		Run: runInfo{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			Go:        runtime.Version(),
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
			CPUCount:  runtime.NumCPU(),
		},
		Workload:  workload,
		LatencyUS: latency,
		Throughput: throughputInfo{
			OpsTotal:     run.ops,
			OpsPerSec:    opsPerSec,
			OpsPerWorker: opsPerSec / float64(workload.Workers),
		},
		Graph: graphInfo{
			SignalsCreated: stats.SignalsCreated,
			LiveMemos:      stats.LiveMemos,
			LiveEffects:    stats.LiveEffects,
			Flushes:        stats.Flushes,
			EffectRuns:     stats.EffectRuns,
		},
		GC: gcInfo{
			AllocMB:       float64(run.after.TotalAlloc-run.before.TotalAlloc) / (1024 * 1024),
			HeapLiveMB:    float64(run.after.HeapAlloc) / (1024 * 1024),
			NumGC:         run.after.NumGC - run.before.NumGC,
			PauseTotalMS:  ms(pauseTotal),
			PauseAvgMS:    ms(avgPause(run.after, run.before)),
			GCCPUFraction: cpuFraction(run.afterMetrics, run.beforeMetrics),
			AllocsObjects: run.afterMetrics.heapAllocsObjects - run.beforeMetrics.heapAllocsObjects,
		},
		Extras: extras,
	}
}

// emitReport writes the summary to stderr and the JSON report to
// cfg.JSONPath ("-" means stdout, empty skips JSON entirely).
func emitReport(report benchReport) error {
	writeSummary(os.Stderr, report)
	if cfg.JSONPath == "" {
		return nil
	}
	return writeJSON(cfg.JSONPath, report)
}

func writeSummary(w io.Writer, report benchReport) {
	fmt.Fprintln(w, "=== Attune Micro Benchmark ===")
	fmt.Fprintf(w, "Bench: %s\n", report.Workload.Bench)
	fmt.Fprintf(w, "Workers: %d\n", report.Workload.Workers)
	fmt.Fprintf(w, "Duration: %s\n", time.Duration(report.Workload.DurationMS)*time.Millisecond)
	if report.Workload.Signals > 0 {
		fmt.Fprintf(w, "Signals: %d\n", report.Workload.Signals)
	}
	if report.Workload.Width > 0 {
		fmt.Fprintf(w, "Diamond width: %d\n", report.Workload.Width)
	}
	if report.Workload.Resources > 0 {
		fmt.Fprintf(w, "Resources: %d\n", report.Workload.Resources)
	}
	if report.Workload.FetchDelayUS > 0 {
		fmt.Fprintf(w, "Fetch delay: %s\n", time.Duration(report.Workload.FetchDelayUS)*time.Microsecond)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Total ops: %d\n", report.Throughput.OpsTotal)
	fmt.Fprintf(w, "Throughput: %.1f ops/s (%.1f per worker)\n", report.Throughput.OpsPerSec, report.Throughput.OpsPerWorker)
	fmt.Fprintln(w)

	if report.LatencyUS.Samples == 0 {
		fmt.Fprintln(w, "No latency samples recorded.")
	} else {
		fmt.Fprintf(w, "Op latency (%d samples, op issued -> settled):\n", report.LatencyUS.Samples)
		fmt.Fprintf(w, "  min: %.2f µs\n", report.LatencyUS.Min)
		fmt.Fprintf(w, "  p50: %.2f µs\n", report.LatencyUS.P50)
		fmt.Fprintf(w, "  p95: %.2f µs\n", report.LatencyUS.P95)
		fmt.Fprintf(w, "  p99: %.2f µs\n", report.LatencyUS.P99)
		fmt.Fprintf(w, "  max: %.2f µs\n", report.LatencyUS.Max)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Graph:")
	fmt.Fprintf(w, "  signals:     %d\n", report.Graph.SignalsCreated)
	fmt.Fprintf(w, "  memos:       %d\n", report.Graph.LiveMemos)
	fmt.Fprintf(w, "  effects:     %d\n", report.Graph.LiveEffects)
	fmt.Fprintf(w, "  flushes:     %d\n", report.Graph.Flushes)
	fmt.Fprintf(w, "  effect runs: %d\n", report.Graph.EffectRuns)
	if len(report.Extras) > 0 {
		keys := make([]string, 0, len(report.Extras))
		for k := range report.Extras {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "  %s: %.2f\n", k, report.Extras[k])
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Go runtime / GC (process-wide):")
	fmt.Fprintf(w, "  alloc:     %.2f MB\n", report.GC.AllocMB)
	fmt.Fprintf(w, "  heap_live: %.2f MB\n", report.GC.HeapLiveMB)
	fmt.Fprintf(w, "  num_gc:    %d\n", report.GC.NumGC)
	fmt.Fprintf(w, "  gc_pause:  %.2f ms (total)\n", report.GC.PauseTotalMS)
	fmt.Fprintf(w, "  gc_pause:  %.2f ms (avg)\n", report.GC.PauseAvgMS)
	fmt.Fprintf(w, "  gc_cpu:    %.2f%%\n", report.GC.GCCPUFraction*100)
}

func writeJSON(path string, report benchReport) error {
	var out io.Writer
	if path == "-" {
		out = os.Stdout
	} else {
		file, err := os.Create(path)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	idx := int(math.Ceil(float64(len(sorted))*p)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func avgPause(after, before runtime.MemStats) time.Duration {
	gcCount := after.NumGC - before.NumGC
	if gcCount == 0 {
		return 0
	}
	return time.Duration((after.PauseTotalNs - before.PauseTotalNs) / uint64(gcCount))
}

func us(d time.Duration) float64 {
	return float64(d) / float64(time.Microsecond)
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

type runtimeMetricsSnapshot struct {
	cpuTotalSeconds float64
	cpuGCSeconds    float64

	heapAllocsObjects uint64
}

func readRuntimeMetrics() runtimeMetricsSnapshot {
	samples := []metrics.Sample{
		{Name: "/cpu/classes/total:cpu-seconds"},
		{Name: "/cpu/classes/gc/total:cpu-seconds"},
		{Name: "/gc/heap/allocs:objects"},
	}
	metrics.Read(samples)

	var out runtimeMetricsSnapshot
	for _, s := range samples {
		switch s.Name {
		case "/cpu/classes/total:cpu-seconds":
			out.cpuTotalSeconds = s.Value.Float64()
		case "/cpu/classes/gc/total:cpu-seconds":
			out.cpuGCSeconds = s.Value.Float64()
		case "/gc/heap/allocs:objects":
			out.heapAllocsObjects = s.Value.Uint64()
		}
	}
	return out
}

func cpuFraction(after, before runtimeMetricsSnapshot) float64 {
	total := after.cpuTotalSeconds - before.cpuTotalSeconds
	if total <= 0 {
		return 0
	}
	gc := after.cpuGCSeconds - before.cpuGCSeconds
	if gc < 0 {
		return 0
	}
	return gc / total
}
