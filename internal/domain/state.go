// Package domain contains pure, dependency-free domain models and types
// for the majority judgment ranking engine.
package domain

import (
	"fmt"
	"maps"
	"reflect"
	"sort"
)

// Key represents a type-safe generic key for accessing values in State.
// The type parameter T ensures compile-time type safety when getting and
// setting values, eliminating the need for runtime type assertions.
type Key[T any] struct{ name string }

// NewKey creates a new Key with the specified name and type.
// This function is provided for creating keys outside of the domain package.
func NewKey[T any](name string) Key[T] {
	return Key[T]{name: name}
}

// Name returns the string form of the key.
func (k Key[T]) Name() string { return k.name }

// Predefined state keys used by the ranking units.
var (
	// KeyQuestion stores the identifier of the question being ranked.
	KeyQuestion = Key[string]{"question"}

	// KeyOptions stores the options of the question with their rank sequences.
	KeyOptions = Key[[]Option]{"options"}

	// KeyScale stores the grade scale the ranks refer to.
	KeyScale = Key[GradeScale]{"scale"}

	// KeyRanking stores the current ranked result. The percentile ranker
	// writes it and the consistency repairer rewrites it in place.
	KeyRanking = Key[RankedResult]{"ranking"}

	// KeyShares stores the cumulative share table for the ranked options.
	KeyShares = Key[ShareTable]{"shares"}

	// KeyRepair stores the outcome of the consistency repair pass.
	KeyRepair = Key[*RepairReport]{"repair"}

	// KeyExecutionID stores a unique identifier for one ranking pass,
	// useful for log correlation and tracing.
	KeyExecutionID = Key[string]{"execution.execution_id"}
)

// deepCopyValue creates a deep copy of a value to ensure true immutability.
// It handles slices, maps, pointers, and structs that would otherwise
// allow external modification of State data.
func deepCopyValue(value any) any {
	if value == nil {
		return nil
	}

	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Slice:
		if v.IsNil() {
			return value
		}
		newSlice := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			copied := deepCopyValue(v.Index(i).Interface())
			if copied == nil {
				continue
			}
			newSlice.Index(i).Set(reflect.ValueOf(copied))
		}
		return newSlice.Interface()

	case reflect.Map:
		if v.IsNil() {
			return value
		}
		newMap := reflect.MakeMapWithSize(v.Type(), v.Len())
		for _, key := range v.MapKeys() {
			copied := deepCopyValue(v.MapIndex(key).Interface())
			if copied == nil {
				newMap.SetMapIndex(key, reflect.Zero(v.Type().Elem()))
				continue
			}
			newMap.SetMapIndex(key, reflect.ValueOf(copied))
		}
		return newMap.Interface()

	case reflect.Ptr:
		if v.IsNil() {
			return value
		}
		newPtr := reflect.New(v.Elem().Type())
		newPtr.Elem().Set(reflect.ValueOf(deepCopyValue(v.Elem().Interface())))
		return newPtr.Interface()

	case reflect.Struct:
		// Unexported fields are carried over by the shallow copy; types with
		// unexported state (GradeScale) are immutable by construction.
		newStruct := reflect.New(v.Type()).Elem()
		newStruct.Set(v)
		for i := 0; i < v.NumField(); i++ {
			field := newStruct.Field(i)
			if !field.CanSet() {
				continue
			}
			copied := deepCopyValue(v.Field(i).Interface())
			if copied == nil {
				continue
			}
			field.Set(reflect.ValueOf(copied))
		}
		return newStruct.Interface()

	default:
		return value
	}
}

// State represents an immutable collection of ranking data that flows
// through the pipeline. It uses copy-on-write semantics so that units never
// observe each other's intermediate mutations.
type State struct {
	data map[string]any
}

// NewState creates a new empty State.
func NewState() State {
	return State{
		data: make(map[string]any),
	}
}

// Get retrieves a value from the State with compile-time type safety.
// It returns the value and a boolean indicating whether the key exists
// and contains a value of the correct type. The returned value is a deep
// copy to maintain immutability.
//
// Example:
//
//	ranking, ok := Get(state, KeyRanking)
//	if !ok {
//	    // handle missing value
//	}
func Get[T any](s State, key Key[T]) (T, bool) {
	var zero T
	value, exists := s.data[key.name]
	if !exists {
		return zero, false
	}

	copied := deepCopyValue(value)
	val, ok := copied.(T)
	return val, ok
}

// MustGet is like Get but reports a missing or mistyped key as a
// *StateError wrapping ErrKeyNotFound or ErrTypeMismatch.
func MustGet[T any](s State, key Key[T]) (T, error) {
	var zero T
	value, exists := s.data[key.name]
	if !exists {
		return zero, NewStateError(key.name, "Get", ErrKeyNotFound)
	}
	val, ok := deepCopyValue(value).(T)
	if !ok {
		return zero, NewStateError(key.name, "Get", ErrTypeMismatch)
	}
	return val, nil
}

// With creates a new State with the specified key-value pair added or
// updated. The original State is left unchanged.
//
// Example:
//
//	newState := With(state, KeyQuestion, "Service quality")
func With[T any](s State, key Key[T], value T) State {
	newData := maps.Clone(s.data)
	if newData == nil {
		newData = make(map[string]any)
	}
	newData[key.name] = deepCopyValue(value)
	return State{data: newData}
}

// WithMultiple creates a new State with multiple key-value pairs added
// or updated in a single clone.
func (s State) WithMultiple(updates map[string]any) State {
	newData := maps.Clone(s.data)
	if newData == nil {
		newData = make(map[string]any, len(updates))
	}
	for k, v := range updates {
		newData[k] = deepCopyValue(v)
	}
	return State{data: newData}
}

// Keys returns all keys present in the State in sorted order.
func (s State) Keys() []string {
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String returns a string representation of the State for debugging purposes.
func (s State) String() string {
	return fmt.Sprintf("State%v", s.data)
}

// NewQuestionState seeds a State with everything a ranking pass needs for
// one question.
func NewQuestionState(executionID string, scale GradeScale, q Question) State {
	return NewState().WithMultiple(map[string]any{
		KeyExecutionID.name: executionID,
		KeyScale.name:       scale,
		KeyQuestion.name:    q.ID,
		KeyOptions.name:     q.Options,
	})
}
