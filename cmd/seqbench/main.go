package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/seqbench/seqbench/internal/config"
	"github.com/seqbench/seqbench/internal/engine"
	"github.com/seqbench/seqbench/internal/logging"
	"github.com/seqbench/seqbench/internal/report"
	"github.com/seqbench/seqbench/internal/results"
	"github.com/seqbench/seqbench/pkg/bench"
	"github.com/seqbench/seqbench/pkg/ops"
	"github.com/seqbench/seqbench/pkg/seq"
)

const usage = `Usage: seqbench <command> [flags]

Commands:
  run    execute a full benchmark sweep from a config file
  pilot  compare backends for one operation on a synthetic dataset
  ops    list the operation catalog
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "run":
		err = runCmd(ctx, os.Args[2:])
	case "pilot":
		err = pilotCmd(ctx, os.Args[2:])
	case "ops":
		err = opsCmd(os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "seqbench %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func runCmd(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := flags.String("config", "", "sweep configuration file (YAML), empty for the default sweep")
	resume := flags.Bool("resume", false, "resume from the checkpoint in the output directory")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.Output.Dir)
	if err != nil {
		return err
	}
	defer log.Close()

	eng, err := engine.New(cfg, log)
	if err != nil {
		return err
	}

	checkpointPath := filepath.Join(cfg.Output.Dir, cfg.Output.Checkpoint)
	if *resume {
		cp, err := engine.LoadCheckpoint(checkpointPath)
		if err != nil {
			return err
		}
		eng.Resume(cp)
	}

	log.Printf("starting sweep %s with %d planned experiments", cfg.Metadata.Name, len(eng.Plan().Experiments))
	reportData, err := eng.Run(ctx)
	if err != nil {
		return err
	}

	csvPath := filepath.Join(cfg.Output.Dir, cfg.Output.ResultsCSV)
	if err := results.WriteCSV(csvPath, reportData.Experiments); err != nil {
		return err
	}
	jsonPath := filepath.Join(cfg.Output.Dir, cfg.Output.ResultsJSON)
	if err := results.WriteJSON(jsonPath, reportData); err != nil {
		return err
	}
	planPath := filepath.Join(cfg.Output.Dir, cfg.Output.PlanSVG+".dot")
	if err := report.Draw(eng.Plan(), planPath); err != nil {
		return err
	}

	fmt.Printf("completed %d experiments\n", len(reportData.Experiments))
	fmt.Printf("results: %s, %s\n", csvPath, jsonPath)
	fmt.Printf("plan: %s (render with graphviz: dot -Tsvg %s)\n", planPath, planPath)

	return nil
}

func pilotCmd(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("pilot", flag.ExitOnError)
	opName := flags.String("op", "gc_content", "operation to benchmark")
	count := flags.Int("n", 10000, "number of synthetic sequences")
	length := flags.Int("len", 150, "sequence length")
	seed := flags.Int64("seed", 42, "generator seed")
	k := flags.Int("k", 0, "k-mer size override")
	runs := flags.Int("runs", 5, "measured runs per backend")
	workers := flags.Int("workers", 0, "worker count for the parallel backend, 0 for automatic")
	if err := flags.Parse(args); err != nil {
		return err
	}

	params := ops.DefaultParams()
	if *k > 0 {
		params.K = *k
	}
	registry := ops.DefaultRegistry(params)

	op, err := registry.Get(*opName)
	if err != nil {
		return err
	}

	records := seq.Generate(seq.GeneratorConfig{
		Seed:           *seed,
		NumSequences:   *count,
		SequenceLength: *length,
		Profile:        seq.QualityRealistic,
		NFraction:      0.01,
	})
	fmt.Printf("%s on %d sequences of %dbp (%s scale)\n\n",
		op.Name(), *count, *length, seq.ScaleOf(*count))

	var baseline bench.Result
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "backend\tmean\tmedian\tstddev\tseq/s\tMB/s\tspeedup")
	for _, backend := range op.Backends() {
		measurement, err := bench.Measure(ctx, op, records, ops.ExecConfig{
			Backend: backend,
			Workers: *workers,
		}, bench.Options{WarmupRuns: 1, MeasuredRuns: *runs})
		if err != nil {
			fmt.Fprintf(w, "%s\tfailed: %v\t\t\t\t\t\n", backend, err)
			continue
		}
		if backend == ops.BackendScalar {
			baseline = measurement
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.0f\t%.1f\t%.2fx\n",
			backend,
			measurement.Stats.Mean.Round(time.Microsecond),
			measurement.Stats.Median.Round(time.Microsecond),
			measurement.Stats.StdDev.Round(time.Microsecond),
			measurement.SequencesPerSecond,
			measurement.MBPerSecond,
			measurement.Speedup(baseline),
		)
	}

	return w.Flush()
}

func opsCmd(args []string) error {
	flags := flag.NewFlagSet("ops", flag.ExitOnError)
	category := flags.String("category", "", "only show one category")
	if err := flags.Parse(args); err != nil {
		return err
	}

	registry := ops.DefaultRegistry(ops.DefaultParams())
	names := registry.Names()
	if *category != "" {
		names = registry.ByCategory(ops.Category(*category))
		sort.Strings(names)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "name\tcategory\tcomplexity\tbackends\tdescription")
	for _, name := range names {
		meta, err := registry.MetadataFor(name)
		if err != nil {
			return err
		}
		backends := make([]string, 0, len(meta.Backends))
		for _, b := range meta.Backends {
			backends = append(backends, string(b))
		}
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\t%s\n",
			meta.Name, meta.Category, meta.Complexity, strings.Join(backends, ","), meta.Description)
	}

	return w.Flush()
}
