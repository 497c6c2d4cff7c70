package report

import (
	"fmt"
	"regexp"
	"strings"
)

// MonthKey is a canonical year-month bucket ("YYYY-MM"). It doubles as the
// selection predicate for receipts (left-anchored prefix match on the stored
// bill date) and as part of the generated report's identity.
type MonthKey string

var monthKeyPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// DeriveMonthKey truncates a date string to its calendar month. It is total:
// strings shorter than 7 characters yield a degenerate key that matches no
// well-formed date during filtering, which is the intended behavior rather
// than an error.
func DeriveMonthKey(date string) MonthKey {
	if len(date) < 7 {
		return MonthKey(date)
	}
	return MonthKey(date[:7])
}

// ParseMonthKey validates the exact YYYY-MM textual form accepted at the API
// boundary. The rendering core itself stays permissive (an unmatched key just
// produces the empty report), so rejection of malformed keys happens here,
// before a report request reaches the composer.
func ParseMonthKey(s string) (MonthKey, error) {
	if !monthKeyPattern.MatchString(s) {
		return "", fmt.Errorf("invalid month key %q: expected YYYY-MM", s)
	}
	return MonthKey(s), nil
}

// Matches reports whether a stored bill date falls in this month.
func (k MonthKey) Matches(billDate string) bool {
	return strings.HasPrefix(billDate, string(k))
}

func (k MonthKey) String() string {
	return string(k)
}
