package util

import (
	"regexp"
	"strings"
)

var listSeparator = regexp.MustCompile(`,\s*`)

// TransformSlice applies the converter to each element in the input slice and returns a new slice.
func TransformSlice[T any, R any](in []T, converter func(T) R) []R {
	out := make([]R, len(in))
	for i, v := range in {
		out[i] = converter(v)
	}
	return out
}

// FilterSlice returns the elements of in for which keep returns true, preserving order.
func FilterSlice[T any](in []T, keep func(T) bool) []T {
	var out []T
	for _, v := range in {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// SplitList splits a comma separated list such as "name, email" and trims
// every element. Empty elements are dropped.
func SplitList(s string) []string {
	var out []string
	for _, elem := range listSeparator.Split(s, -1) {
		if trimmed := strings.TrimSpace(elem); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// SplitLines splits newline separated values, ignoring blank lines.
func SplitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(strings.Trim(s, "\n"), "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
