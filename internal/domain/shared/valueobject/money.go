package valueobject

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	CNY Currency = "CNY" // Chinese Yuan
	USD Currency = "USD" // US Dollar
	EUR Currency = "EUR" // Euro
	GBP Currency = "GBP" // British Pound
	JPY Currency = "JPY" // Japanese Yen
	HKD Currency = "HKD" // Hong Kong Dollar
	KWD Currency = "KWD" // Kuwaiti Dinar (3 decimals)
)

// DefaultCurrency is the default currency for the system
const DefaultCurrency = USD

// Money is a value object pairing an exact minor-unit amount with its currency.
// It is immutable - all operations return new Money instances
type Money struct {
	amount   Amount
	currency Currency
}

// NewMoney creates a new Money with the specified amount and currency
func NewMoney(amount Amount, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, errors.New("currency cannot be empty")
	}
	return Money{
		amount:   amount,
		currency: currency,
	}, nil
}

// NewMoneyFromString parses a decimal major-unit string into Money
func NewMoneyFromString(amount string, currency Currency) (Money, error) {
	a, err := ParseAmount(amount)
	if err != nil {
		return Money{}, err
	}
	return NewMoney(a, currency)
}

// NewMoneyFromDecimal converts a decimal major-unit value into Money
func NewMoneyFromDecimal(amount decimal.Decimal, currency Currency) (Money, error) {
	a, err := ToMinor(amount)
	if err != nil {
		return Money{}, err
	}
	return NewMoney(a, currency)
}

// Zero returns a zero-value Money in the specified currency
func Zero(currency Currency) Money {
	return Money{amount: 0, currency: currency}
}

// Amount returns the minor-unit amount
func (m Money) Amount() Amount {
	return m.amount
}

// Currency returns the currency code
func (m Money) Currency() Currency {
	return m.currency
}

// IsZero returns true if the amount is zero
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// IsPositive returns true if the amount is positive
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// IsNegative returns true if the amount is negative
func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

// Add returns a new Money with the sum of both amounts
// Returns error if currencies don't match
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("cannot add money with different currencies: %s and %s", m.currency, other.currency)
	}
	return Money{
		amount:   m.amount.Add(other.amount),
		currency: m.currency,
	}, nil
}

// Subtract returns a new Money with the difference
// Returns error if currencies don't match
func (m Money) Subtract(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("cannot subtract money with different currencies: %s and %s", m.currency, other.currency)
	}
	return Money{
		amount:   m.amount.Sub(other.amount),
		currency: m.currency,
	}, nil
}

// MultiplyByInt returns a new Money multiplied by an integer
func (m Money) MultiplyByInt(factor int64) Money {
	return Money{
		amount:   m.amount.Mul(factor),
		currency: m.currency,
	}
}

// Negate returns a new Money with the sign reversed
func (m Money) Negate() Money {
	return Money{
		amount:   m.amount.Neg(),
		currency: m.currency,
	}
}

// ConvertTo expresses m in target currency at rate (target units per unit of m's currency),
// rounding half away from zero to the minor unit
func (m Money) ConvertTo(target Currency, rate decimal.Decimal) (Money, error) {
	if target == "" {
		return Money{}, errors.New("currency cannot be empty")
	}
	if !rate.IsPositive() {
		return Money{}, fmt.Errorf("exchange rate must be positive, got %s", rate)
	}
	if target == m.currency {
		if !rate.Equal(decimal.NewFromInt(1)) {
			return Money{}, fmt.Errorf("exchange rate from %s to itself must be 1, got %s", m.currency, rate)
		}
		return m, nil
	}
	return NewMoneyFromDecimal(m.amount.Major().Mul(rate), target)
}

// Equals returns true if both Money values are equal (same amount and currency)
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount == other.amount
}

// LessThan returns true if this Money is less than the other
// Returns error if currencies don't match
func (m Money) LessThan(other Money) (bool, error) {
	if m.currency != other.currency {
		return false, fmt.Errorf("cannot compare money with different currencies: %s and %s", m.currency, other.currency)
	}
	return m.amount < other.amount, nil
}

// GreaterThan returns true if this Money is greater than the other
func (m Money) GreaterThan(other Money) (bool, error) {
	if m.currency != other.currency {
		return false, fmt.Errorf("cannot compare money with different currencies: %s and %s", m.currency, other.currency)
	}
	return m.amount > other.amount, nil
}

// String returns a string representation of the Money
func (m Money) String() string {
	return fmt.Sprintf("%s %s", FormatDefault(m.amount), m.currency)
}

// MarshalJSON implements json.Marshaler.
// The exact minor-unit count travels alongside a decimal rendering for readers.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   string   `json:"amount"`
		Minor    int64    `json:"minor"`
		Currency Currency `json:"currency"`
	}{
		Amount:   m.amount.Major().StringFixed(ScaleDigits),
		Minor:    m.amount.Minor(),
		Currency: m.currency,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
// The decimal "amount" field is authoritative; "minor" is ignored on input.
func (m *Money) UnmarshalJSON(data []byte) error {
	var v struct {
		Amount   string   `json:"amount"`
		Currency Currency `json:"currency"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	amount, err := ParseAmount(v.Amount)
	if err != nil {
		return err
	}
	parsed, err := NewMoney(amount, v.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
