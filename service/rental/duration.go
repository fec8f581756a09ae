package rental

import (
	"regexp"
	"strconv"
)

// Two deliberately different parsing policies. Request creation is
// lenient and falls back to two weeks when the duration is
// unparsable; extension is strict and rejects anything that is not
// "<N> Week(s)". Do not unify them.

const defaultRequestWeeks = 2

var (
	anyInt      = regexp.MustCompile(`(\d+)`)
	strictWeeks = regexp.MustCompile(`^\s*(\d+)\s*[Ww]eeks?\s*$`)
)

// parseRequestDuration extracts the first integer from a free-form
// duration ("2 Weeks", "3wk"), defaulting to two weeks.
func parseRequestDuration(s string) int {
	m := anyInt.FindStringSubmatch(s)
	if m == nil {
		return defaultRequestWeeks
	}
	weeks, err := strconv.Atoi(m[1])
	if err != nil || weeks <= 0 {
		return defaultRequestWeeks
	}
	return weeks
}

// parseExtensionDuration accepts only "<N> Week" / "<N> Weeks".
func parseExtensionDuration(s string) (int, error) {
	m := strictWeeks.FindStringSubmatch(s)
	if m == nil {
		return 0, makeErr(ErrInvalidDurationFormat, "duration must look like \"3 Weeks\"")
	}
	weeks, err := strconv.Atoi(m[1])
	if err != nil || weeks <= 0 {
		return 0, makeErr(ErrInvalidDurationFormat, "duration must be a positive number of weeks")
	}
	return weeks, nil
}
