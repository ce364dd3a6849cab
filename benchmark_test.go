package ioc

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"testing"
)

// Benchmark service types
type BenchService struct {
	Name string
}

type BenchDep1 struct{ Value int }
type BenchDep2 struct{ Value int }
type BenchDep3 struct{ Value int }
type BenchDep4 struct{ Value int }
type BenchDep5 struct{ Value int }

type BenchServiceWith1Dep struct {
	Dep1 *BenchDep1
}

type BenchServiceWith5Deps struct {
	Dep1 *BenchDep1
	Dep2 *BenchDep2
	Dep3 *BenchDep3
	Dep4 *BenchDep4
	Dep5 *BenchDep5
}

type BenchHandler interface{ Handle() int }

type benchPair[K comparable, V any] struct {
	Key   K
	Value V
}

func (d *BenchDep1) Handle() int { return d.Value }

func NewBenchService() *BenchService { return &BenchService{Name: "bench"} }

func NewBenchDep1() *BenchDep1 { return &BenchDep1{Value: 1} }
func NewBenchDep2() *BenchDep2 { return &BenchDep2{Value: 2} }
func NewBenchDep3() *BenchDep3 { return &BenchDep3{Value: 3} }
func NewBenchDep4() *BenchDep4 { return &BenchDep4{Value: 4} }
func NewBenchDep5() *BenchDep5 { return &BenchDep5{Value: 5} }

func NewBenchServiceWith1Dep(dep1 *BenchDep1) *BenchServiceWith1Dep {
	return &BenchServiceWith1Dep{Dep1: dep1}
}

func NewBenchServiceWith5Deps(dep1 *BenchDep1, dep2 *BenchDep2, dep3 *BenchDep3, dep4 *BenchDep4, dep5 *BenchDep5) *BenchServiceWith5Deps {
	return &BenchServiceWith5Deps{Dep1: dep1, Dep2: dep2, Dep3: dep3, Dep4: dep4, Dep5: dep5}
}

// setupBenchContainer creates a container with every constructor registered
// under the given reuse policy.
func setupBenchContainer(b *testing.B, reuse Reuse, deps int) *Container {
	b.Helper()

	c := New(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	b.Cleanup(func() { _ = c.Close() })

	ctors := []any{NewBenchDep1, NewBenchDep2, NewBenchDep3, NewBenchDep4, NewBenchDep5}
	for _, ctor := range ctors[:deps] {
		if err := c.RegisterMany(nil, ctor, reuse); err != nil {
			b.Fatalf("failed to register: %v", err)
		}
	}

	var main any
	switch deps {
	case 0:
		main = NewBenchService
	case 1:
		main = NewBenchServiceWith1Dep
	default:
		main = NewBenchServiceWith5Deps
	}
	if err := c.RegisterMany(nil, main, reuse); err != nil {
		b.Fatalf("failed to register: %v", err)
	}

	return c
}

// BenchmarkResolution tests resolution performance for different reuse
// policies and dependency counts
func BenchmarkResolution(b *testing.B) {
	cases := []struct {
		name   string
		reuse  Reuse
		deps   int
		target reflect.Type
	}{
		{"Singleton/0deps", Singleton, 0, reflect.TypeFor[*BenchService]()},
		{"Singleton/5deps", Singleton, 5, reflect.TypeFor[*BenchServiceWith5Deps]()},
		{"Scoped/0deps", Scoped, 0, reflect.TypeFor[*BenchService]()},
		{"Scoped/5deps", Scoped, 5, reflect.TypeFor[*BenchServiceWith5Deps]()},
		{"Transient/0deps", Transient, 0, reflect.TypeFor[*BenchService]()},
		{"Transient/1dep", Transient, 1, reflect.TypeFor[*BenchServiceWith1Dep]()},
		{"Transient/5deps", Transient, 5, reflect.TypeFor[*BenchServiceWith5Deps]()},
	}

	for _, tc := range cases {
		b.Run(tc.name, func(b *testing.B) {
			c := setupBenchContainer(b, tc.reuse, tc.deps)
			ctx, scope := c.BeginScope(context.Background())
			defer scope.Finish(ctx)

			// Warm up the fast path and the scoped slots
			_, _ = c.Resolve(ctx, tc.target)

			b.ResetTimer()
			b.ReportAllocs()

			for b.Loop() {
				_, _ = c.Resolve(ctx, tc.target)
			}
		})
	}
}

// BenchmarkConcurrentResolution tests concurrent resolution performance
func BenchmarkConcurrentResolution(b *testing.B) {
	for _, reuse := range []Reuse{Singleton, Scoped, Transient} {
		b.Run(reuse.String(), func(b *testing.B) {
			c := setupBenchContainer(b, reuse, 5)
			target := reflect.TypeFor[*BenchServiceWith5Deps]()

			b.ResetTimer()
			b.RunParallel(func(pb *testing.PB) {
				ctx, scope := c.BeginScope(context.Background())
				defer scope.Finish(ctx)

				_, _ = c.Resolve(ctx, target)
				for pb.Next() {
					_, _ = c.Resolve(ctx, target)
				}
			})
		})
	}
}

// BenchmarkScopeWithResolution tests the full scope lifecycle with resolution
func BenchmarkScopeWithResolution(b *testing.B) {
	c := setupBenchContainer(b, Scoped, 5)
	target := reflect.TypeFor[*BenchServiceWith5Deps]()

	b.ReportAllocs()
	for b.Loop() {
		ctx, scope := c.BeginScope(context.Background())
		_, _ = c.Resolve(ctx, target)
		_ = scope.Finish(ctx)
	}
}

// BenchmarkResolveMany tests iterating every registration of a service type
func BenchmarkResolveMany(b *testing.B) {
	for _, n := range []int{1, 10, 100} {
		b.Run(fmt.Sprintf("%dregistrations", n), func(b *testing.B) {
			c := New(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
			b.Cleanup(func() { _ = c.Close() })
			for range n {
				_ = Register[BenchHandler](c, NewBenchDep1, Singleton)
			}

			ctx := context.Background()
			b.ReportAllocs()
			for b.Loop() {
				for _, err := range ResolveMany[BenchHandler](ctx, c) {
					if err != nil {
						b.Fatal(err)
					}
				}
			}
		})
	}
}

// BenchmarkGenericResolve tests the generic Resolve function
func BenchmarkGenericResolve(b *testing.B) {
	c := setupBenchContainer(b, Singleton, 0)
	ctx := context.Background()

	b.ReportAllocs()
	for b.Loop() {
		_, _ = Resolve[*BenchService](ctx, c)
	}
}

// BenchmarkOpenGenericResolve tests resolution served by an open registration
func BenchmarkOpenGenericResolve(b *testing.B) {
	c := New(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	b.Cleanup(func() { _ = c.Close() })
	if err := c.RegisterOpen(OpenTypeOf[*benchPair[string, any]](), Allocate, Singleton); err != nil {
		b.Fatal(err)
	}

	ctx := context.Background()
	b.ReportAllocs()
	for b.Loop() {
		_, _ = Resolve[*benchPair[string, int]](ctx, c)
	}
}

// BenchmarkRegistrationChurn tests resolving while the registry keeps changing
func BenchmarkRegistrationChurn(b *testing.B) {
	c := setupBenchContainer(b, Singleton, 0)
	ctx := context.Background()
	target := reflect.TypeFor[*BenchService]()

	b.ReportAllocs()
	for b.Loop() {
		_ = c.RegisterInstance(reflect.TypeFor[*BenchDep1](), &BenchDep1{})
		_, _ = c.Resolve(ctx, target)
		c.Unregister(reflect.TypeFor[*BenchDep1]())
	}
}
