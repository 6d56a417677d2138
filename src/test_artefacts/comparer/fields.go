package comparer

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// IgnoreFieldsFor drops the named struct fields of T from a comparison, used
// to skip database-assigned values like ids and timestamps.
func IgnoreFieldsFor[T any](fields ...string) cmp.Option {
	var zero T
	return cmpopts.IgnoreFields(zero, fields...)
}
