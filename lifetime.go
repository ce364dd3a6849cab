package ioc

import (
	"encoding/json"
	"fmt"
)

// Reuse specifies how instances produced by a factory are cached.
type Reuse int

const (
	// Transient creates a new instance on every resolution.
	Transient Reuse = iota

	// Singleton creates one instance on first resolution and shares it for the
	// lifetime of the factory. Clones of a container share their singletons.
	Singleton

	// Scoped creates one instance per logical scope. The scope travels in the
	// context.Context passed to Resolve; instances implementing Disposable or
	// DisposableWithContext are closed when the scope finishes.
	Scoped
)

// String returns the string representation of the Reuse.
func (r Reuse) String() string {
	switch r {
	case Transient:
		return "Transient"
	case Singleton:
		return "Singleton"
	case Scoped:
		return "Scoped"
	default:
		return fmt.Sprintf("Unknown(%d)", int(r))
	}
}

// IsValid checks if the reuse policy is valid.
func (r Reuse) IsValid() bool {
	return r >= Transient && r <= Scoped
}

// MarshalText implements encoding.TextMarshaler.
func (r Reuse) MarshalText() ([]byte, error) {
	if !r.IsValid() {
		return nil, ReuseError{Value: int(r)}
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Reuse) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Transient", "transient":
		*r = Transient
	case "Singleton", "singleton":
		*r = Singleton
	case "Scoped", "scoped":
		*r = Scoped
	default:
		return ReuseError{Value: string(text)}
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (r Reuse) MarshalJSON() ([]byte, error) {
	text, err := r.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Reuse) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	return r.UnmarshalText([]byte(s))
}

// IfUnresolved selects what a single-item resolve does when it does not find
// exactly one registration.
type IfUnresolved int

const (
	// Throw returns a ResolutionError. This is the default.
	Throw IfUnresolved = iota

	// ReturnDefault returns the zero value of the requested type and no error.
	ReturnDefault
)

func (u IfUnresolved) String() string {
	switch u {
	case Throw:
		return "Throw"
	case ReturnDefault:
		return "ReturnDefault"
	default:
		return fmt.Sprintf("Unknown(%d)", int(u))
	}
}
