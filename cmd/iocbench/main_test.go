package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/junioryono/ioc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearBenchEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"IOC_BENCH_REGISTRATIONS", "IOC_BENCH_RESOLVES", "IOC_BENCH_ITERATIONS",
		"IOC_BENCH_CASES", "IOC_BENCH_GRAPH", "IOC_BENCH_METRICS", "IOC_BENCH_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func missingEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		clearBenchEnv(t)

		cfg, err := LoadConfig(missingEnvFile(t))
		require.NoError(t, err)
		assert.Equal(t, 10000, cfg.Registrations)
		assert.Equal(t, 1000000, cfg.Resolves)
		assert.Equal(t, 1000, cfg.Iterations)
		assert.Empty(t, cfg.Cases)
		assert.Empty(t, cfg.Graph)
		assert.False(t, cfg.Metrics)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("environment", func(t *testing.T) {
		clearBenchEnv(t)
		t.Setenv("IOC_BENCH_REGISTRATIONS", "5")
		t.Setenv("IOC_BENCH_CASES", "resolve-singleton, register-transient,")
		t.Setenv("IOC_BENCH_GRAPH", "DOT")
		t.Setenv("IOC_BENCH_METRICS", "true")

		cfg, err := LoadConfig(missingEnvFile(t))
		require.NoError(t, err)
		assert.Equal(t, 5, cfg.Registrations)
		assert.Equal(t, []string{"resolve-singleton", "register-transient"}, cfg.Cases)
		assert.Equal(t, "dot", cfg.Graph)
		assert.True(t, cfg.Metrics)
	})

	t.Run("env file", func(t *testing.T) {
		clearBenchEnv(t)
		// godotenv does not override variables that are already set.
		os.Unsetenv("IOC_BENCH_RESOLVES")
		os.Unsetenv("IOC_BENCH_LOG_LEVEL")
		t.Cleanup(func() {
			os.Unsetenv("IOC_BENCH_RESOLVES")
			os.Unsetenv("IOC_BENCH_LOG_LEVEL")
		})

		path := filepath.Join(t.TempDir(), "bench.env")
		require.NoError(t, os.WriteFile(path, []byte("IOC_BENCH_RESOLVES=42\nIOC_BENCH_LOG_LEVEL=debug\n"), 0o600))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 42, cfg.Resolves)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("malformed values", func(t *testing.T) {
		for key, value := range map[string]string{
			"IOC_BENCH_REGISTRATIONS": "many",
			"IOC_BENCH_ITERATIONS":    "-1",
			"IOC_BENCH_METRICS":       "sometimes",
			"IOC_BENCH_GRAPH":         "svg",
		} {
			t.Run(key, func(t *testing.T) {
				clearBenchEnv(t)
				t.Setenv(key, value)

				_, err := LoadConfig(missingEnvFile(t))
				require.Error(t, err)
				assert.Contains(t, err.Error(), key)
			})
		}
	})
}

func TestRun(t *testing.T) {
	small := Config{Registrations: 20, Resolves: 50, Iterations: 5}

	t.Run("every case", func(t *testing.T) {
		t.Parallel()

		results, last, err := Run(context.Background(), small, discardLogger())
		require.NoError(t, err)
		t.Cleanup(func() { _ = last.Close() })

		require.Len(t, results, len(CaseNames()))
		for i, r := range results {
			assert.Equal(t, CaseNames()[i], r.Case)
			assert.Positive(t, r.Ops)
		}
		assert.Equal(t, 5, results[len(results)-1].Ops)

		all, err := ioc.ResolveAll[Benchmarked](context.Background(), last)
		require.NoError(t, err)
		assert.Len(t, all, 20)
	})

	t.Run("selected cases", func(t *testing.T) {
		t.Parallel()

		cfg := small
		cfg.Cases = []string{"resolve-singleton"}
		results, last, err := Run(context.Background(), cfg, discardLogger())
		require.NoError(t, err)
		t.Cleanup(func() { _ = last.Close() })

		require.Len(t, results, 1)
		assert.Equal(t, 50, results[0].Ops)
		assert.Equal(t, 21*2+3, last.Count(), "default and keyed registrations under two types plus the container itself")
	})

	t.Run("unknown case", func(t *testing.T) {
		t.Parallel()

		cfg := small
		cfg.Cases = []string{"resolve-everything"}
		_, _, err := Run(context.Background(), cfg, discardLogger())
		assert.ErrorContains(t, err, "resolve-everything")
	})
}

func TestRunCommand(t *testing.T) {
	clearBenchEnv(t)
	t.Setenv("IOC_BENCH_REGISTRATIONS", "3")
	t.Setenv("IOC_BENCH_RESOLVES", "10")
	t.Setenv("IOC_BENCH_ITERATIONS", "2")
	t.Setenv("IOC_BENCH_CASES", "resolve-transient")
	t.Setenv("IOC_BENCH_GRAPH", "text")
	t.Setenv("IOC_BENCH_METRICS", "true")

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{missingEnvFile(t)}, &stdout, &stderr))

	out := stdout.String()
	assert.True(t, strings.HasPrefix(out, "CASE"))
	assert.Contains(t, out, "resolve-transient")
	assert.Contains(t, out, "Dependency Graph:")
	assert.Contains(t, stderr.String(), "ioc_container_resolutions_total")
}

func TestResultPerOp(t *testing.T) {
	t.Parallel()

	assert.Zero(t, Result{}.PerOp())
	assert.Equal(t, int64(10), int64(Result{Ops: 3, Elapsed: 30}.PerOp()))
}
