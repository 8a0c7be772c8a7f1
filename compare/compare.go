// Package compare supplies the total order the B-tree sorts values under.
//
// The tree is value-agnostic: it never inspects a stored value except
// through a Comparator supplied at construction, keeping key ordering as a
// pure function entirely separate from tree structure.
package compare

import (
	"fmt"
	"reflect"
)

// Comparator is a total order: negative if a < b, zero if a == b, positive
// if a > b. The tree never assumes anything about the concrete type of its
// arguments beyond what the Comparator itself imposes.
type Comparator func(a, b any) int

// Natural orders int, int64, and float64 values among themselves, and string
// values among themselves, using their normal ordering. Numbers compare by value rather than by
// concrete type, since a value that round-trips through storage comes back
// as float64 regardless of what numeric type it went in as. It panics on
// unsupported types, or when a and b are not both numeric or both strings;
// use CrossType for a comparator that can order mixed and unfamiliar types
// instead of failing.
func Natural(a, b any) int {
	switch a.(type) {
	case int, int64, float64:
		if !isNumeric(b) {
			panic(fmt.Sprintf("compare: mismatched types %T and %T", a, b))
		}
		x, y := numeric(a), numeric(b)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		default:
			return 0
		}
	case string:
		y, ok := b.(string)
		if !ok {
			panic(fmt.Sprintf("compare: mismatched types %T and %T", a, b))
		}
		x := a.(string)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		default:
			return 0
		}
	default:
		panic(fmt.Sprintf("compare: unsupported type %T", a))
	}
}

// typeRank fixes an arbitrary but stable order between Go kinds so that
// CrossType can compare values of different types instead of panicking.
// Tuples (slices) rank after strings and are compared element-wise; any
// other type ranks after tuples.
func typeRank(v any) int {
	switch v.(type) {
	case bool:
		return 0
	case int, int64, float64:
		return 1
	case string:
		return 2
	default:
		if reflect.TypeOf(v) != nil && reflect.TypeOf(v).Kind() == reflect.Slice {
			return 3
		}
		return 4
	}
}

func isNumeric(v any) bool {
	switch v.(type) {
	case int, int64, float64:
		return true
	default:
		return false
	}
}

func numeric(v any) float64 {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case float64:
		return x
	default:
		return 0
	}
}

// CrossType is a total order over heterogeneous values (booleans, numbers,
// strings, and tuples represented as slices). Values of different kinds are
// ordered by a fixed kind rank; values of the same kind use their natural
// order, recursing element-wise for tuples.
func CrossType(a, b any) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		return ra - rb
	}
	switch ra {
	case 0:
		x, y := a.(bool), b.(bool)
		if x == y {
			return 0
		}
		if !x {
			return -1
		}
		return 1
	case 1:
		x, y := numeric(a), numeric(b)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		default:
			return 0
		}
	case 2:
		x, y := a.(string), b.(string)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		default:
			return 0
		}
	case 3:
		return compareTuples(a, b)
	default:
		return compareTuples(a, b)
	}
}

func compareTuples(a, b any) int {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	n := va.Len()
	if vb.Len() < n {
		n = vb.Len()
	}
	for i := 0; i < n; i++ {
		if c := CrossType(va.Index(i).Interface(), vb.Index(i).Interface()); c != 0 {
			return c
		}
	}
	return va.Len() - vb.Len()
}
