package reflection

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"sync"
	"time"
)

// In marks a parameter object. A constructor whose only parameter is a struct
// (or pointer to struct) embedding In receives that struct with every exported
// field resolved individually.
type In struct{}

var (
	inType       = reflect.TypeOf((*In)(nil)).Elem()
	errType      = reflect.TypeOf((*error)(nil)).Elem()
	contextType  = reflect.TypeOf((*context.Context)(nil)).Elem()
	binderType   = reflect.TypeOf((*lazyBinder)(nil)).Elem()
	durationType = reflect.TypeOf(time.Duration(0))
	boolType     = reflect.TypeOf(false)
)

var (
	ErrNotFunction          = errors.New("constructor must be a function")
	ErrInvalidReturns       = errors.New("constructor must return T or (T, error)")
	ErrUnsupportedParameter = errors.New("parameter type cannot be injected")
	ErrNotAllocatable       = errors.New("type has no constructor and cannot be allocated")
	ErrTypeMismatch         = errors.New("resolved value is not assignable to parameter")
)

// BindingKind selects how a single constructor argument is produced.
type BindingKind int

const (
	// KindSingle resolves exactly one service and fails when it is unresolved.
	KindSingle BindingKind = iota

	// KindDefault resolves one service and falls back to a declared default.
	KindDefault

	// KindSlice resolves every registration eagerly into a slice.
	KindSlice

	// KindSeq yields registrations lazily through an iter.Seq.
	KindSeq

	// KindSeq2 yields registrations lazily through an iter.Seq2 with errors.
	KindSeq2

	// KindLazy defers a single resolution until first dereference.
	KindLazy

	// KindFunc resolves a fresh value on every call of the injected function.
	KindFunc

	// KindContext receives the context of the resolution in progress.
	KindContext
)

func (k BindingKind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindDefault:
		return "default"
	case KindSlice:
		return "slice"
	case KindSeq:
		return "seq"
	case KindSeq2:
		return "seq2"
	case KindLazy:
		return "lazy"
	case KindFunc:
		return "func"
	case KindContext:
		return "context"
	default:
		return "unknown(" + strconv.Itoa(int(k)) + ")"
	}
}

// Binding describes how one parameter (or parameter-object field) is bound.
type Binding struct {
	Kind BindingKind

	// Type is the declared parameter or field type.
	Type reflect.Type

	// Target is the service type that gets resolved.
	Target reflect.Type

	// Key is the contract key from a name tag, nil otherwise.
	Key any

	// Default is the fallback for KindDefault. An invalid Value means the zero value.
	Default reflect.Value

	// FuncTakesContext and FuncReturnsError describe KindFunc signatures.
	FuncTakesContext bool
	FuncReturnsError bool

	// Field is the struct field index for parameter objects, -1 otherwise.
	Field int
	Name  string
}

// Signature is the analysis of a constructor function type. It depends only
// on the type, so one Signature is shared by every function of that type.
type Signature struct {
	Type         reflect.Type
	Out          reflect.Type
	ReturnsError bool
	Bindings     []Binding

	// ParamObject is the declared In struct type when the constructor takes one.
	ParamObject reflect.Type
}

// NumParams reports the number of injected arguments, counting parameter object fields.
func (s *Signature) NumParams() int {
	return len(s.Bindings)
}

// Analyzer performs reflection-based analysis of constructor types.
// It caches analysis results for performance.
type Analyzer struct {
	mu    sync.RWMutex
	cache map[reflect.Type]*Signature
}

// New creates a new Analyzer.
func New() *Analyzer {
	return &Analyzer{
		cache: make(map[reflect.Type]*Signature),
	}
}

// Analyze analyzes the type of a constructor function.
func (a *Analyzer) Analyze(fnType reflect.Type) (*Signature, error) {
	if fnType == nil || fnType.Kind() != reflect.Func {
		return nil, ErrNotFunction
	}

	a.mu.RLock()
	if cached, ok := a.cache[fnType]; ok {
		a.mu.RUnlock()
		return cached, nil
	}
	a.mu.RUnlock()

	sig, err := analyze(fnType)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.cache[fnType] = sig
	a.mu.Unlock()

	return sig, nil
}

// CacheSize returns the number of cached analyses.
func (a *Analyzer) CacheSize() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.cache)
}

func analyze(fnType reflect.Type) (*Signature, error) {
	sig := &Signature{Type: fnType}

	switch fnType.NumOut() {
	case 1:
		if fnType.Out(0) == errType {
			return nil, ErrInvalidReturns
		}
	case 2:
		if fnType.Out(0) == errType || fnType.Out(1) != errType {
			return nil, ErrInvalidReturns
		}
		sig.ReturnsError = true
	default:
		return nil, ErrInvalidReturns
	}
	sig.Out = fnType.Out(0)

	if fnType.IsVariadic() {
		return nil, fmt.Errorf("%w: variadic constructor %s", ErrUnsupportedParameter, fnType)
	}

	if fnType.NumIn() == 1 && isParamObject(fnType.In(0)) {
		sig.ParamObject = fnType.In(0)
		bindings, err := analyzeParamObject(fnType.In(0))
		if err != nil {
			return nil, err
		}
		sig.Bindings = bindings
		return sig, nil
	}

	sig.Bindings = make([]Binding, 0, fnType.NumIn())
	for i := 0; i < fnType.NumIn(); i++ {
		b, err := classify(fnType.In(i))
		if err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i, err)
		}
		b.Field = -1
		sig.Bindings = append(sig.Bindings, b)
	}

	return sig, nil
}

func analyzeParamObject(paramType reflect.Type) ([]Binding, error) {
	structType := paramType
	if structType.Kind() == reflect.Pointer {
		structType = structType.Elem()
	}

	bindings := make([]Binding, 0, structType.NumField())
	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)

		if !field.IsExported() {
			continue
		}

		if field.Anonymous && field.Type == inType {
			continue
		}

		if val, ok := field.Tag.Lookup("inject"); ok && val == "-" {
			continue
		}

		b, err := classify(field.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}
		b.Field = i
		b.Name = field.Name

		if name, ok := field.Tag.Lookup("name"); ok && name != "" {
			b.Key = name
		}

		if lit, ok := field.Tag.Lookup("default"); ok {
			if b.Kind != KindSingle {
				return nil, fmt.Errorf("field %s: %w: default tag on %s binding", field.Name, ErrUnsupportedParameter, b.Kind)
			}
			def, err := parseDefault(field.Type, lit)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", field.Name, err)
			}
			b.Kind = KindDefault
			b.Default = def
		} else if val, ok := field.Tag.Lookup("optional"); ok && val == "true" && b.Kind == KindSingle {
			b.Kind = KindDefault
		}

		bindings = append(bindings, b)
	}

	return bindings, nil
}

// classify chooses the binding strategy from the declared parameter type.
func classify(t reflect.Type) (Binding, error) {
	b := Binding{Kind: KindSingle, Type: t, Target: t}

	switch {
	case t == contextType:
		b.Kind = KindContext
		return b, nil

	case t.Kind() == reflect.Pointer && t.Implements(binderType):
		b.Kind = KindLazy
		b.Target = reflect.Zero(t).Interface().(lazyBinder).lazyTarget()
		return b, nil

	case t.Kind() == reflect.Slice:
		b.Kind = KindSlice
		b.Target = t.Elem()
		return b, nil

	case t.Kind() == reflect.Func:
		if elem, ok := seqElem(t); ok {
			b.Kind = KindSeq
			b.Target = elem
			return b, nil
		}
		if elem, ok := seq2Elem(t); ok {
			b.Kind = KindSeq2
			b.Target = elem
			return b, nil
		}
		if target, takesCtx, returnsErr, ok := funcShape(t); ok {
			b.Kind = KindFunc
			b.Target = target
			b.FuncTakesContext = takesCtx
			b.FuncReturnsError = returnsErr
			return b, nil
		}
		if t.IsVariadic() {
			return b, fmt.Errorf("%w: %s", ErrUnsupportedParameter, t)
		}
		return b, nil

	case t.Kind() == reflect.Chan, t.Kind() == reflect.UnsafePointer, t.Kind() == reflect.Invalid:
		return b, fmt.Errorf("%w: %s", ErrUnsupportedParameter, t)
	}

	return b, nil
}

// seqElem matches func(yield func(T) bool).
func seqElem(t reflect.Type) (reflect.Type, bool) {
	if t.NumIn() != 1 || t.NumOut() != 0 {
		return nil, false
	}
	yield := t.In(0)
	if yield.Kind() != reflect.Func || yield.NumIn() != 1 || yield.NumOut() != 1 || yield.Out(0) != boolType {
		return nil, false
	}
	return yield.In(0), true
}

// seq2Elem matches func(yield func(T, error) bool).
func seq2Elem(t reflect.Type) (reflect.Type, bool) {
	if t.NumIn() != 1 || t.NumOut() != 0 {
		return nil, false
	}
	yield := t.In(0)
	if yield.Kind() != reflect.Func || yield.NumIn() != 2 || yield.NumOut() != 1 ||
		yield.Out(0) != boolType || yield.In(1) != errType {
		return nil, false
	}
	return yield.In(0), true
}

// funcShape matches func() T, func() (T, error), func(context.Context) T
// and func(context.Context) (T, error).
func funcShape(t reflect.Type) (target reflect.Type, takesCtx, returnsErr, ok bool) {
	if t.IsVariadic() {
		return nil, false, false, false
	}
	switch t.NumIn() {
	case 0:
	case 1:
		if t.In(0) != contextType {
			return nil, false, false, false
		}
		takesCtx = true
	default:
		return nil, false, false, false
	}

	switch t.NumOut() {
	case 1:
		if t.Out(0) == errType {
			return nil, false, false, false
		}
	case 2:
		if t.Out(0) == errType || t.Out(1) != errType {
			return nil, false, false, false
		}
		returnsErr = true
	default:
		return nil, false, false, false
	}

	return t.Out(0), takesCtx, returnsErr, true
}

func isParamObject(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t.Kind() != reflect.Struct {
		return false
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Anonymous && field.Type == inType {
			return true
		}
	}

	return false
}

// parseDefault converts a default tag literal into a value of type t.
func parseDefault(t reflect.Type, lit string) (reflect.Value, error) {
	if t == durationType {
		d, err := time.ParseDuration(lit)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("invalid default %q for %s: %w", lit, t, err)
		}
		return reflect.ValueOf(d), nil
	}

	v := reflect.New(t).Elem()
	var err error

	switch t.Kind() {
	case reflect.String:
		v.SetString(lit)
	case reflect.Bool:
		var b bool
		if b, err = strconv.ParseBool(lit); err == nil {
			v.SetBool(b)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		var n int64
		if n, err = strconv.ParseInt(lit, 0, t.Bits()); err == nil {
			v.SetInt(n)
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		var n uint64
		if n, err = strconv.ParseUint(lit, 0, t.Bits()); err == nil {
			v.SetUint(n)
		}
	case reflect.Float32, reflect.Float64:
		var f float64
		if f, err = strconv.ParseFloat(lit, t.Bits()); err == nil {
			v.SetFloat(f)
		}
	default:
		return reflect.Value{}, fmt.Errorf("%w: default tag is not supported for %s", ErrUnsupportedParameter, t)
	}

	if err != nil {
		return reflect.Value{}, fmt.Errorf("invalid default %q for %s: %w", lit, t, err)
	}

	return v, nil
}
