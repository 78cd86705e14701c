package recipe

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var leadingAmount = regexp.MustCompile(`^([\d./]+)`)

// ScaleAmount multiplies the leading numeric token of a free-text
// amount ("2", "1.5", "1/2") by factor and re-renders it, preferring
// common kitchen fractions. Amounts without a parseable leading number
// pass through unchanged; the function never fails on user input.
func ScaleAmount(amount string, factor float64) string {
	if amount == "" {
		return ""
	}
	match := leadingAmount.FindStringSubmatch(amount)
	if match == nil {
		return amount
	}
	num, ok := parseAmount(match[1])
	if !ok {
		return amount
	}
	return formatAmount(num * factor)
}

// parseAmount parses an integer, decimal or "n/d" fraction.
func parseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if strings.Contains(s, "/") {
		parts := strings.SplitN(s, "/", 2)
		num, err1 := strconv.ParseFloat(parts[0], 64)
		den, err2 := strconv.ParseFloat(parts[1], 64)
		if err1 != nil || err2 != nil || den == 0 {
			return 0, false
		}
		return num / den, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// commonFractions are the renderings preferred over decimals.
var commonFractions = []struct {
	value float64
	text  string
}{
	{0.25, "1/4"},
	{0.33, "1/3"},
	{0.5, "1/2"},
	{0.66, "2/3"},
	{0.75, "3/4"},
}

const fractionTolerance = 0.05

func formatAmount(v float64) string {
	if v == 0 {
		return ""
	}
	for _, f := range commonFractions {
		if math.Abs(v-f.value) < fractionTolerance {
			return f.text
		}
	}
	if v == math.Trunc(v) {
		return strconv.Itoa(int(v))
	}
	return strings.TrimSuffix(strconv.FormatFloat(v, 'f', 1, 64), ".0")
}
