package main

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"time"

	"github.com/junioryono/ioc"
)

// Benchmarked is the service contract every case registers.
type Benchmarked interface {
	Benchmark() int
}

// BenchmarkClass is the implementation behind Benchmarked.
type BenchmarkClass struct{ n int }

func (b *BenchmarkClass) Benchmark() int { return b.n }

func newBenchmarkClass() *BenchmarkClass { return &BenchmarkClass{n: 1} }

var serviceTypes = []reflect.Type{
	reflect.TypeFor[Benchmarked](),
	reflect.TypeFor[*BenchmarkClass](),
}

// Result is the outcome of one case.
type Result struct {
	Case    string
	Ops     int
	Elapsed time.Duration
}

// PerOp returns the mean duration of one operation.
func (r Result) PerOp() time.Duration {
	if r.Ops == 0 {
		return 0
	}
	return r.Elapsed / time.Duration(r.Ops)
}

type benchCase struct {
	name string
	run  func(ctx context.Context, c *ioc.Container, cfg Config) (int, error)
}

var cases = []benchCase{
	{"register-transient", registerCase(ioc.Transient)},
	{"register-singleton", registerCase(ioc.Singleton)},
	{"resolve-transient", resolveCase(ioc.Transient)},
	{"resolve-singleton", resolveCase(ioc.Singleton)},
	{"resolve-many-transient", resolveManyCase(ioc.Transient)},
	{"resolve-many-singleton", resolveManyCase(ioc.Singleton)},
}

// CaseNames lists every case in run order.
func CaseNames() []string {
	names := make([]string, len(cases))
	for i, bc := range cases {
		names[i] = bc.name
	}
	return names
}

// registerKeyed adds n keyed registrations of BenchmarkClass.
func registerKeyed(c *ioc.Container, reuse ioc.Reuse, n int) error {
	for i := range n {
		if err := c.RegisterMany(serviceTypes, newBenchmarkClass, reuse, ioc.Keyed(i)); err != nil {
			return err
		}
	}
	return nil
}

func registerCase(reuse ioc.Reuse) func(context.Context, *ioc.Container, Config) (int, error) {
	return func(_ context.Context, c *ioc.Container, cfg Config) (int, error) {
		return cfg.Registrations, registerKeyed(c, reuse, cfg.Registrations)
	}
}

// resolveCase resolves the default contract while the registry also holds
// the keyed registrations.
func resolveCase(reuse ioc.Reuse) func(context.Context, *ioc.Container, Config) (int, error) {
	return func(ctx context.Context, c *ioc.Container, cfg Config) (int, error) {
		if err := c.RegisterMany(serviceTypes, newBenchmarkClass, reuse); err != nil {
			return 0, err
		}
		if err := registerKeyed(c, reuse, cfg.Registrations); err != nil {
			return 0, err
		}

		for range cfg.Resolves {
			if _, err := ioc.Resolve[Benchmarked](ctx, c); err != nil {
				return 0, err
			}
		}
		return cfg.Resolves, nil
	}
}

func resolveManyCase(reuse ioc.Reuse) func(context.Context, *ioc.Container, Config) (int, error) {
	return func(ctx context.Context, c *ioc.Container, cfg Config) (int, error) {
		for range max(cfg.Registrations, 1) {
			if err := c.RegisterMany(serviceTypes, newBenchmarkClass, reuse); err != nil {
				return 0, err
			}
		}

		for range cfg.Iterations {
			for _, err := range ioc.ResolveMany[Benchmarked](ctx, c) {
				if err != nil {
					return 0, err
				}
			}
		}
		return cfg.Iterations, nil
	}
}

// Run executes the selected cases, each on a fresh container, and returns
// the results with the container of the last case.
func Run(ctx context.Context, cfg Config, logger *slog.Logger) ([]Result, *ioc.Container, error) {
	for _, name := range cfg.Cases {
		if !slices.Contains(CaseNames(), name) {
			return nil, nil, fmt.Errorf("unknown case %q", name)
		}
	}

	var (
		results []Result
		last    *ioc.Container
	)
	for _, bc := range cases {
		if len(cfg.Cases) > 0 && !slices.Contains(cfg.Cases, bc.name) {
			continue
		}

		if last != nil {
			_ = last.Close()
		}
		last = ioc.New(ioc.WithLogger(logger))

		logger.Debug("running case", "case", bc.name)
		begin := time.Now()
		ops, err := bc.run(ctx, last, cfg)
		if err != nil {
			_ = last.Close()
			return results, nil, fmt.Errorf("%s: %w", bc.name, err)
		}

		r := Result{Case: bc.name, Ops: ops, Elapsed: time.Since(begin)}
		logger.Info("case finished", "case", r.Case, "ops", r.Ops, "elapsed", r.Elapsed, "per_op", r.PerOp())
		results = append(results, r)
	}

	return results, last, nil
}
