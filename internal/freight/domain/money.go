package domain

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Money is an amount in cents. It encodes to JSON as a decimal number with
// two fraction digits (45000 -> 450.00).
type Money int64

var ErrInvalidMoney = errors.New("invalid money amount")

// ParseMoney accepts decimal text such as "450", "450.5" or "450.00".
func ParseMoney(s string) (Money, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > 1e13 {
		return 0, ErrInvalidMoney
	}
	return Money(math.Round(f * 100)), nil
}

func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign, v = "-", -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(bytes.TrimSpace(b), `"`)
	if string(b) == "null" || len(b) == 0 {
		*m = 0
		return nil
	}
	v, err := ParseMoney(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
