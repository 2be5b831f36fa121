package utils

import (
	"golang.org/x/exp/slices"
)

// Alias1D returns true if x and y share the same base array.
// Taken from http://golang.org/src/pkg/math/big/nat.go#L340 .
func Alias1D[V any](x, y []V) bool {
	return cap(x) > 0 && cap(y) > 0 && &x[0:cap(x)][cap(x)-1] == &y[0:cap(y)][cap(y)-1]
}

// IsDistinct returns true if no value appears twice in v.
func IsDistinct[V comparable](v []V) bool {
	for i := range v {
		if slices.Contains(v[i+1:], v[i]) {
			return false
		}
	}
	return true
}

// Zero sets all the elements of s to the zero value.
func Zero[V any](s []V) {
	var z V
	for i := range s {
		s[i] = z
	}
}
