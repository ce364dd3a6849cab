package reflection

import (
	"reflect"
	"strings"
)

// SplitGenericName splits the name of an instantiated generic type, such as
// "Pair[int,map[string]int]", into its base name and type arguments.
// ok is false for names without type arguments.
func SplitGenericName(name string) (base string, args []string, ok bool) {
	open := strings.IndexByte(name, '[')
	if open <= 0 || !strings.HasSuffix(name, "]") {
		return name, nil, false
	}

	base = name[:open]
	inner := name[open+1 : len(name)-1]
	if inner == "" {
		return name, nil, false
	}

	depth := 0
	start := 0
	for i := 0; i < len(inner); i++ {
		switch inner[i] {
		case '[', '(', '{':
			depth++
		case ']', ')', '}':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(inner[start:i]))
				start = i + 1
			}
		}
	}
	args = append(args, strings.TrimSpace(inner[start:]))

	return base, args, true
}

// GenericOrigin describes the generic type a closed type was instantiated from.
type GenericOrigin struct {
	PkgPath string
	Name    string

	// Pointers counts the pointer indirections around the named type.
	Pointers int
}

// OriginOf returns the generic origin of t together with the canonical key of
// its type arguments. ok is false when t is not an instantiated generic type.
func OriginOf(t reflect.Type) (origin GenericOrigin, argKey string, ok bool) {
	if t == nil {
		return GenericOrigin{}, "", false
	}

	for t.Kind() == reflect.Pointer && t.Name() == "" {
		origin.Pointers++
		t = t.Elem()
	}

	base, args, ok := SplitGenericName(t.Name())
	if !ok {
		return GenericOrigin{}, "", false
	}

	origin.PkgPath = t.PkgPath()
	origin.Name = base
	return origin, strings.Join(args, ","), true
}
