package services

import (
	"strconv"
	"strings"
)

// NextExecutionName derives the next execution name from the stored name and
// the caller-supplied name. A family of executions keeps a shared prefix
// while each name stays unique within the engine's per-name scope, without a
// separate counter store.
//
// The stored name is read as base-suffix on its first two "-" tokens. When
// the supplied name matches the base, the stored name's trailing digit run is
// incremented ("checkout-3" -> "checkout-4"); with no trailing digits a new
// run starts at 1 ("checkout" -> "checkout-1"). When the supplied name
// differs, it adopts the stored suffix token ("billing" + "checkout-3" ->
// "billing-3"); with no stored suffix the supplied name is used as is.
func NextExecutionName(existingName, name string) string {
	parts := strings.SplitN(existingName, "-", 3)
	base := parts[0]
	suffix := ""
	if len(parts) > 1 {
		suffix = parts[1]
	}

	if name == base {
		return incrementTrailingDigits(existingName)
	}
	if suffix != "" {
		return name + "-" + suffix
	}
	return name
}

// incrementTrailingDigits bumps the decimal run at the end of s by one, or
// appends "-1" when s does not end in digits.
func incrementTrailingDigits(s string) string {
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	if i == len(s) {
		return s + "-1"
	}
	n, err := strconv.Atoi(s[i:])
	if err != nil {
		// Digit run too long for an int; restart the run.
		return s + "-1"
	}
	return s[:i] + strconv.Itoa(n+1)
}
