package collection

import "iter"

// Values returns a sequence over the elements of s, in order.
func Values[T any](s []T) iter.Seq[any] {
	return func(yield func(any) bool) {
		for _, v := range s {
			if !yield(v) {
				return
			}
		}
	}
}

// Seq returns a sequence over the given values.
func Seq(values ...any) iter.Seq[any] {
	return Values(values)
}
