package utils

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"
)

// SortedZeroLogArray renders the elements as strings, sorted, so repeated log lines for the same
// set compare equal.
func SortedZeroLogArray[T fmt.Stringer](elems []T) *zerolog.Array {
	strs := make([]string, 0, len(elems))

	for _, elem := range elems {
		strs = append(strs, elem.String())
	}

	sort.Strings(strs)

	arr := zerolog.Arr()

	for _, s := range strs {
		arr = arr.Str(s)
	}

	return arr
}
