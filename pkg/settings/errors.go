package settings

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrUnknownKey  = errors.New("unknown generation config key")
	ErrInvalidType = errors.New("invalid generation config value type")
	ErrOutOfRange  = errors.New("generation config value out of range")
)

// KeyError reports an unknown generation config key, listing the valid ones.
type KeyError struct {
	Key       string
	ValidKeys []string
}

func (e *KeyError) Error() string {
	if e == nil {
		return ErrUnknownKey.Error()
	}
	return fmt.Sprintf("%s: %q (valid keys: %v)", ErrUnknownKey, e.Key, e.ValidKeys)
}

func (e *KeyError) Is(target error) bool { return target == ErrUnknownKey }

// TypeError reports a value that could not be coerced to the key's declared
// type.
type TypeError struct {
	Key   string
	Value string
	Want  ValueType
}

func (e *TypeError) Error() string {
	if e == nil {
		return ErrInvalidType.Error()
	}
	return fmt.Sprintf("%s: %s must be %s, got %q", ErrInvalidType, e.Key, e.Want, e.Value)
}

func (e *TypeError) Is(target error) bool { return target == ErrInvalidType }

// RangeError reports a value outside the key's inclusive bounds.
type RangeError struct {
	Key      string
	Value    float64
	Min, Max float64
}

func (e *RangeError) Error() string {
	if e == nil {
		return ErrOutOfRange.Error()
	}
	return fmt.Sprintf("%s: %s must be between %v and %v, got %v", ErrOutOfRange, e.Key, e.Min, e.Max, e.Value)
}

func (e *RangeError) Is(target error) bool { return target == ErrOutOfRange }
