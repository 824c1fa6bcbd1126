package extract

import (
	"regexp"
	"strconv"
)

var (
	mobilePattern = regexp.MustCompile(`1\d{10}`)
	leadingDigits = regexp.MustCompile(`^\s*(\d+)`)
)

// FindPhone returns the first 11-digit run starting with 1 in text, or "".
// Full-width digits are folded first.
func FindPhone(text string) string {
	return mobilePattern.FindString(narrow(text))
}

// Admissible reports whether phone can enter a batch.
func Admissible(phone string) bool {
	return phone != "" && phone[0] == '1'
}

// parseCount reads the leading integer of a badge such as "3" or "+3个".
// Anything unparsable counts as zero.
func parseCount(text string) int {
	s := narrow(text)
	for len(s) > 0 && (s[0] == '+' || s[0] == ' ') {
		s = s[1:]
	}
	m := leadingDigits.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 0 {
		return 0
	}
	return n
}
