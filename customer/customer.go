// Package customer picks the customers a deletion scenario removes: those
// whose name length is closest to the average name length of the table.
package customer

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/wanmail/xyzbank"
)

// ErrEmptyInputSet is returned for an empty name list. It matches
// xyzbank.ErrPreconditionViolation: an empty table must be handled by the
// caller before asking for candidates.
var ErrEmptyInputSet = fmt.Errorf("%w: empty customer name list", xyzbank.ErrPreconditionViolation)

// Length is the length of name in characters.
func Length(name string) int {
	return utf8.RuneCountInString(name)
}

// AverageLength returns the mean length of names.
func AverageLength(names []string) (float64, error) {
	if len(names) == 0 {
		return 0, ErrEmptyInputSet
	}
	total := 0
	for _, n := range names {
		total += Length(n)
	}
	return float64(total) / float64(len(names)), nil
}

// Deviation is the absolute difference between the length of name and avg.
func Deviation(name string, avg float64) float64 {
	return math.Abs(float64(Length(name)) - avg)
}

// SelectDeletionCandidateIndexes returns the positions in names of every
// name whose deviation from the average length is minimal, in increasing
// order. Ties are all returned, and so is each occurrence of a repeated
// name. Deviations are compared exactly.
func SelectDeletionCandidateIndexes(names []string) ([]int, error) {
	avg, err := AverageLength(names)
	if err != nil {
		return nil, err
	}
	devs := make([]float64, len(names))
	minDev := math.Inf(1)
	for i, n := range names {
		devs[i] = Deviation(n, avg)
		if devs[i] < minDev {
			minDev = devs[i]
		}
	}
	var idx []int
	for i, d := range devs {
		if d == minDev {
			idx = append(idx, i)
		}
	}
	return idx, nil
}

// SelectDeletionCandidates is SelectDeletionCandidateIndexes returning the
// names instead of their positions.
func SelectDeletionCandidates(names []string) ([]string, error) {
	idx, err := SelectDeletionCandidateIndexes(names)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = names[j]
	}
	return out, nil
}

// SelectDeletionCandidate returns the first of SelectDeletionCandidates.
func SelectDeletionCandidate(names []string) (string, error) {
	c, err := SelectDeletionCandidates(names)
	if err != nil {
		return "", err
	}
	return c[0], nil
}
