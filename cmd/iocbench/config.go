package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the benchmark settings. Every field is read from an
// IOC_BENCH_* environment variable, optionally loaded from a .env file.
type Config struct {
	// Registrations is the number of keyed registrations each case makes.
	Registrations int

	// Resolves is the number of single resolutions per resolve case.
	Resolves int

	// Iterations is the number of full ResolveMany passes per resolve-many case.
	Iterations int

	// Cases selects cases by name. Empty runs all of them.
	Cases []string

	// Graph writes the dependency graph of the last container after the run:
	// "dot", "text" or empty for none.
	Graph string

	// Metrics logs the Prometheus collector output of the last container.
	Metrics bool

	// LogLevel is one of debug, info, warn, error.
	LogLevel string
}

// LoadConfig reads the given .env files, or .env when none are given, and
// builds a Config from the environment. A missing file is not an error;
// malformed values are.
func LoadConfig(envFiles ...string) (Config, error) {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return Config{}, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	cfg := Config{
		Graph:    strings.ToLower(env("IOC_BENCH_GRAPH", "")),
		LogLevel: env("IOC_BENCH_LOG_LEVEL", "info"),
		Cases:    splitList(env("IOC_BENCH_CASES", "")),
	}

	var err error
	if cfg.Registrations, err = envInt("IOC_BENCH_REGISTRATIONS", 10000); err != nil {
		return Config{}, err
	}
	if cfg.Resolves, err = envInt("IOC_BENCH_RESOLVES", 1000000); err != nil {
		return Config{}, err
	}
	if cfg.Iterations, err = envInt("IOC_BENCH_ITERATIONS", 1000); err != nil {
		return Config{}, err
	}
	if cfg.Metrics, err = envBool("IOC_BENCH_METRICS", false); err != nil {
		return Config{}, err
	}

	switch cfg.Graph {
	case "", "dot", "text":
	default:
		return Config{}, fmt.Errorf("IOC_BENCH_GRAPH: unknown format %q", cfg.Graph)
	}

	return cfg, nil
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil || i < 0 {
		return 0, fmt.Errorf("%s: want a non-negative integer, got %q", key, v)
	}
	return i, nil
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
