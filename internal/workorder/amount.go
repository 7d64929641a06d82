package workorder

import (
	"errors"
	"strconv"
	"strings"
)

var ErrInvalidAmount = errors.New("amount must be a positive number with at most two decimals")

// maxAmountCents caps a single expense at 1,000,000.00.
const maxAmountCents = 100_000_000

// ParseAmount converts a decimal string such as "12.5" into cents.
func ParseAmount(value string) (int64, error) {
	value = strings.TrimSpace(value)
	whole, frac, hasFrac := strings.Cut(value, ".")
	if whole == "" || !allDigits(whole) {
		return 0, ErrInvalidAmount
	}
	if hasFrac && (frac == "" || len(frac) > 2 || !allDigits(frac)) {
		return 0, ErrInvalidAmount
	}
	if len(whole) > 9 {
		return 0, ErrInvalidAmount
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	var cents int64
	if hasFrac {
		if len(frac) == 1 {
			frac += "0"
		}
		cents, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, ErrInvalidAmount
		}
	}

	total := units*100 + cents
	if total <= 0 || total > maxAmountCents {
		return 0, ErrInvalidAmount
	}
	return total, nil
}

func allDigits(value string) bool {
	for i := 0; i < len(value); i++ {
		if value[i] < '0' || value[i] > '9' {
			return false
		}
	}
	return true
}
