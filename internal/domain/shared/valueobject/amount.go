package valueobject

import (
	"database/sql/driver"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/erp/tradecore/internal/domain/shared"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Scale is the number of minor units per major unit (4 fractional digits)
const Scale int64 = 10_000

// ScaleDigits is the number of fractional digits represented by Scale
const ScaleDigits int32 = 4

// DefaultDisplayDecimals is the number of fraction digits used by FormatDefault
const DefaultDisplayDecimals int32 = 2

var (
	scaleDecimal = decimal.NewFromInt(Scale)
	maxMinor     = decimal.NewFromInt(math.MaxInt64)
	minMinor     = decimal.NewFromInt(math.MinInt64)
	hundred      = decimal.NewFromInt(100)

	groupingPrinter = message.NewPrinter(language.English)
)

// Amount is an exact monetary amount stored as an integer count of minor units.
// All sums and comparisons are performed on the integer; decimals only appear
// at input and display boundaries.
type Amount int64

// ZeroAmount is the zero amount
const ZeroAmount Amount = 0

// ToMinor converts a decimal major-unit value to minor units.
// The value is scaled and rounded to the nearest integer, ties away from zero.
// Values that do not fit into int64 are rejected with INVALID_AMOUNT.
func ToMinor(d decimal.Decimal) (Amount, error) {
	scaled := d.Mul(scaleDecimal).Round(0)
	if scaled.GreaterThan(maxMinor) || scaled.LessThan(minMinor) {
		return 0, invalidAmount(d.String(), "out of range")
	}
	return Amount(scaled.IntPart()), nil
}

// ParseAmount converts a human decimal string such as "1234.5" to minor units.
// Empty input yields zero. Malformed input fails with INVALID_AMOUNT instead of
// being coerced to zero.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, invalidAmount(s, "not a decimal number")
	}
	return ToMinor(d)
}

// AmountFromFloat converts a float major-unit value to minor units.
// Only meant for legacy inputs; NaN and infinities are rejected.
func AmountFromFloat(f float64) (Amount, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, invalidAmount(strconv.FormatFloat(f, 'g', -1, 64), "not a finite number")
	}
	return ToMinor(decimal.NewFromFloat(f))
}

// AmountFromMajor creates an amount from a whole number of major units
func AmountFromMajor(major int64) Amount {
	return Amount(major * Scale)
}

// ToMajor converts minor units back to an exact decimal major-unit value
func ToMajor(a Amount) decimal.Decimal {
	return decimal.New(int64(a), -ScaleDigits)
}

// Major returns the amount as an exact decimal in major units
func (a Amount) Major() decimal.Decimal {
	return ToMajor(a)
}

// Minor returns the raw minor-unit count
func (a Amount) Minor() int64 {
	return int64(a)
}

// Add returns a + b
func (a Amount) Add(b Amount) Amount {
	return a + b
}

// Sub returns a - b
func (a Amount) Sub(b Amount) Amount {
	return a - b
}

// Mul returns a * factor
func (a Amount) Mul(factor int64) Amount {
	return a * Amount(factor)
}

// Neg returns -a
func (a Amount) Neg() Amount {
	return -a
}

// Abs returns |a|
func (a Amount) Abs() Amount {
	if a < 0 {
		return -a
	}
	return a
}

// IsZero returns true if the amount is zero
func (a Amount) IsZero() bool {
	return a == 0
}

// IsPositive returns true if the amount is greater than zero
func (a Amount) IsPositive() bool {
	return a > 0
}

// IsNegative returns true if the amount is less than zero
func (a Amount) IsNegative() bool {
	return a < 0
}

// ClampZero returns the amount, or zero if it is negative
func (a Amount) ClampZero() Amount {
	if a < 0 {
		return 0
	}
	return a
}

// String renders the amount with the default display precision
func (a Amount) String() string {
	return FormatDefault(a)
}

// Value implements driver.Valuer; amounts are persisted as integer minor units
func (a Amount) Value() (driver.Value, error) {
	return int64(a), nil
}

// Scan implements sql.Scanner. NULL scans as zero.
func (a *Amount) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*a = 0
	case int64:
		*a = Amount(v)
	case int32:
		*a = Amount(v)
	case []byte:
		n, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid minor-unit value %q: %w", v, err)
		}
		*a = Amount(n)
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid minor-unit value %q: %w", v, err)
		}
		*a = Amount(n)
	default:
		return fmt.Errorf("cannot scan %T into Amount", value)
	}
	return nil
}

// SumAmounts adds all amounts
func SumAmounts(amounts ...Amount) Amount {
	var total Amount
	for _, a := range amounts {
		total += a
	}
	return total
}

// MaxAmount returns the larger of a and b
func MaxAmount(a, b Amount) Amount {
	if a > b {
		return a
	}
	return b
}

// Percent returns part/whole*100 rounded to places fraction digits (ties away from zero).
// A zero whole yields zero rather than an error.
func Percent(part, whole Amount, places int32) decimal.Decimal {
	if whole == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(part)).Mul(hundred).DivRound(decimal.NewFromInt(int64(whole)), places)
}

// Format renders the amount in major units with thousands separators and the
// given number of fraction digits, e.g. 12345678900 -> "1,234,567.89".
// Display only: nothing parses this string back.
func Format(a Amount, decimals int32) string {
	if decimals < 0 {
		decimals = 0
	}
	rounded := ToMajor(a).Round(decimals)

	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Abs()
	}

	whole := groupingPrinter.Sprintf("%d", rounded.IntPart())
	if decimals == 0 {
		return sign + whole
	}

	fixed := rounded.StringFixed(decimals)
	fraction := fixed[strings.IndexByte(fixed, '.')+1:]
	return sign + whole + "." + fraction
}

// FormatDefault renders the amount with two fraction digits
func FormatDefault(a Amount) string {
	return Format(a, DefaultDisplayDecimals)
}

func invalidAmount(input, reason string) error {
	return shared.NewDomainError(shared.CodeInvalidAmount, fmt.Sprintf("Invalid amount %q: %s", input, reason))
}
