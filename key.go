package ioc

import (
	"fmt"
	"reflect"
)

// ServiceKey identifies one contract: a service type plus an optional
// contract key. Key is nil for the default contract.
type ServiceKey struct {
	Type reflect.Type
	Key  any
}

func (k ServiceKey) String() string {
	if k.Key == nil {
		return formatType(k.Type)
	}
	return fmt.Sprintf("%s[%v]", formatType(k.Type), k.Key)
}

// openKey is the ServiceKey counterpart for open generic registrations.
type openKey struct {
	Type OpenType
	Key  any
}

func validateKey(key any) error {
	if key == nil {
		return nil
	}
	if !reflect.TypeOf(key).Comparable() {
		return fmt.Errorf("%w: %T", ErrKeyNotComparable, key)
	}
	return nil
}
