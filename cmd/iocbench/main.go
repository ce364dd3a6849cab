// Command iocbench measures registration and resolution throughput of an
// ioc.Container.
//
// Settings come from IOC_BENCH_* environment variables and an optional .env
// file:
//
//	IOC_BENCH_REGISTRATIONS=10000   keyed registrations per case
//	IOC_BENCH_RESOLVES=1000000      resolutions per resolve case
//	IOC_BENCH_ITERATIONS=1000       ResolveMany passes per resolve-many case
//	IOC_BENCH_CASES=                comma-separated case names, empty for all
//	IOC_BENCH_GRAPH=                dot or text to print the dependency graph
//	IOC_BENCH_METRICS=false         log the container's Prometheus metrics
//	IOC_BENCH_LOG_LEVEL=info
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/junioryono/ioc"
	"github.com/junioryono/ioc/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "iocbench:", err)
		os.Exit(1)
	}
}

// run loads the configuration from the env files in args and writes the
// results table to stdout.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := LoadConfig(args...)
	if err != nil {
		return err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return fmt.Errorf("IOC_BENCH_LOG_LEVEL: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	results, last, err := Run(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if last != nil {
		defer last.Close()
	}

	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CASE\tOPS\tELAPSED\tPER OP")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", r.Case, r.Ops, r.Elapsed, r.PerOp())
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if last == nil {
		return nil
	}

	switch cfg.Graph {
	case "dot":
		err = last.WriteGraph(stdout, ioc.GraphDOT)
	case "text":
		err = last.WriteGraph(stdout, ioc.GraphText)
	}
	if err != nil {
		return err
	}

	if cfg.Metrics {
		return logMetrics(logger, last)
	}
	return nil
}

func logMetrics(logger *slog.Logger, c *ioc.Container) error {
	reg := prometheus.NewRegistry()
	if err := reg.Register(metrics.NewCollector(c)); err != nil {
		return err
	}

	families, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			value := m.GetGauge().GetValue()
			if m.GetCounter() != nil {
				value = m.GetCounter().GetValue()
			}
			logger.Info("metric", "name", mf.GetName(), "value", value)
		}
	}
	return nil
}
