package version

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Compare compares two major.minor.patch versions, with or without a leading
// v. It returns 1 when a is newer, -1 when b is newer and 0 otherwise.
func Compare(a, b string) (int, error) {
	av, err := parse(a)
	if err != nil {
		return 0, err
	}
	bv, err := parse(b)
	if err != nil {
		return 0, err
	}

	for _, pair := range lo.Zip2(av[:], bv[:]) {
		switch {
		case pair.A > pair.B:
			return 1, nil
		case pair.A < pair.B:
			return -1, nil
		}
	}
	return 0, nil
}

func parse(s string) ([3]int, error) {
	var v [3]int
	if _, err := fmt.Sscanf(strings.TrimPrefix(s, "v"), "%d.%d.%d", &v[0], &v[1], &v[2]); err != nil {
		return v, fmt.Errorf("parse version %q: %w", s, err)
	}
	return v, nil
}
