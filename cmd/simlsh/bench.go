package main

import (
	"fmt"
	"math/rand/v2"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/simlsh/pkg/alg/stats"
	"github.com/Sumatoshi-tech/simlsh/pkg/lshindex"
	"github.com/Sumatoshi-tech/simlsh/pkg/minhash"
)

// uint64Size is the footprint of one hash value in a serialized sketch,
// used only for the bench report's humanized size column.
const uint64Size = 8

func benchCmd() *cobra.Command {
	var (
		k            int
		threshold    float64
		sets         int
		valuesPerSet int
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark Insert/Query latency against synthetic column sets",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runBench(k, threshold, sets, valuesPerSet)
		},
	}

	cmd.Flags().IntVar(&k, "k", 128, "sketch width")
	cmd.Flags().Float64Var(&threshold, "threshold", 0.5, "similarity threshold")
	cmd.Flags().IntVar(&sets, "sets", 1000, "number of synthetic sets to insert")
	cmd.Flags().IntVar(&valuesPerSet, "values", 50, "values per synthetic set")

	return cmd
}

func runBench(k int, threshold float64, sets, valuesPerSet int) error {
	idx, err := lshindex.FromThreshold[int](threshold, k)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}

	sketches := make([]*minhash.Sketch, sets)

	bar := progressbar.NewOptions(sets,
		progressbar.OptionSetDescription("building sketches"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWriter(os.Stderr),
	)

	for i := range sets {
		sketches[i], err = syntheticSketch(k, valuesPerSet)
		if err != nil {
			return fmt.Errorf("build sketch %d: %w", i, err)
		}

		_ = bar.Add(1)
	}

	insertDurations, insertEMA := timeInserts(idx, sketches)
	queryDurations, queryEMA := timeQueries(idx, sketches)

	renderBenchTable(k, threshold, sets, insertDurations, queryDurations, insertEMA, queryEMA)

	return nil
}

func syntheticSketch(k, valuesPerSet int) (*minhash.Sketch, error) {
	sketch, err := minhash.New(k)
	if err != nil {
		return nil, err
	}

	for range valuesPerSet {
		sketch.Update([]byte(strconv.FormatUint(rand.Uint64(), 36))) //nolint:gosec // synthetic benchmark data, not security-sensitive
	}

	return sketch, nil
}

// emaAlpha smooths the running latency estimate bench reports alongside the
// batch's p50/p95/mean, so a caller watching live output sees whether
// latency is still drifting or has settled.
const emaAlpha = 0.1

func timeInserts(idx *lshindex.Index[int], sketches []*minhash.Sketch) ([]float64, float64) {
	durations := make([]float64, len(sketches))
	ema := stats.NewEMA(emaAlpha)

	for i, sketch := range sketches {
		start := time.Now()

		_, _ = idx.Insert(i, sketch)

		durations[i] = time.Since(start).Seconds() * float64(time.Second/time.Microsecond)
		ema.Update(durations[i])
	}

	return durations, ema.Value()
}

func timeQueries(idx *lshindex.Index[int], sketches []*minhash.Sketch) ([]float64, float64) {
	durations := make([]float64, len(sketches))
	ema := stats.NewEMA(emaAlpha)

	for i, sketch := range sketches {
		start := time.Now()

		_, _ = idx.Query(sketch)

		durations[i] = time.Since(start).Seconds() * float64(time.Second/time.Microsecond)
		ema.Update(durations[i])
	}

	return durations, ema.Value()
}

func renderBenchTable(k int, threshold float64, sets int, insertDurations, queryDurations []float64, insertEMA, queryEMA float64) {
	cyan := color.New(color.FgCyan).SprintFunc()

	fmt.Fprintf(os.Stdout, "%s k=%d threshold=%.2f sets=%d sketch_size=%s\n",
		cyan("simlsh bench"), k, threshold, sets, humanize.Bytes(uint64(k*uint64Size))) //nolint:gosec // k is bench-supplied, always small

	tbl := table.NewWriter()
	tbl.SetOutputMirror(os.Stdout)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"OPERATION", "P50 (µs)", "P95 (µs)", "MEAN (µs)", "EMA (µs)"})

	tbl.AppendRow(table.Row{
		"Insert",
		fmt.Sprintf("%.2f", stats.Percentile(insertDurations, stats.PercentileMedian)),
		fmt.Sprintf("%.2f", stats.Percentile(insertDurations, stats.PercentileP95)),
		fmt.Sprintf("%.2f", stats.Mean(insertDurations)),
		fmt.Sprintf("%.2f", insertEMA),
	})
	tbl.AppendRow(table.Row{
		"Query",
		fmt.Sprintf("%.2f", stats.Percentile(queryDurations, stats.PercentileMedian)),
		fmt.Sprintf("%.2f", stats.Percentile(queryDurations, stats.PercentileP95)),
		fmt.Sprintf("%.2f", stats.Mean(queryDurations)),
		fmt.Sprintf("%.2f", queryEMA),
	})

	tbl.Render()
}
