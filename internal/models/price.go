package models

import (
	"bytes"
	"database/sql/driver"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MaxPrice is the largest value a NUMERIC(5,2) column can hold, in cents
const MaxPrice Price = 99999

var ErrInvalidPrice = errors.New("price must be a number between 0 and 999.99 with at most 2 decimal places")

// Price is a fixed-point amount stored in cents and persisted as NUMERIC(5,2)
type Price int64

// ParsePrice parses a decimal string such as "10.99" or "5"
func ParsePrice(s string) (Price, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return 0, ErrInvalidPrice
	}
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return 0, ErrInvalidPrice
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 || !isDigits(whole) || (frac != "" && !isDigits(frac)) {
		return 0, ErrInvalidPrice
	}
	for len(frac) < 2 {
		frac += "0"
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || units > int64(MaxPrice/100) {
		return 0, ErrInvalidPrice
	}
	cents, _ := strconv.ParseInt(frac, 10, 64)
	p := Price(units*100 + cents)
	if p > MaxPrice {
		return 0, ErrInvalidPrice
	}
	return p, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func (p Price) String() string {
	return fmt.Sprintf("%d.%02d", int64(p)/100, int64(p)%100)
}

// Float returns the price in currency units
func (p Price) Float() float64 {
	return float64(p) / 100
}

// MarshalJSON renders the price as a two-decimal string
func (p Price) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(p.String())), nil
}

// UnmarshalJSON accepts "10.99" or 10.99
func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return ErrInvalidPrice
	}
	s := string(data)
	if len(data) > 0 && data[0] == '"' {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return ErrInvalidPrice
		}
		s = unquoted
	}
	parsed, err := ParsePrice(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Value implements the driver.Valuer interface
func (p Price) Value() (driver.Value, error) {
	return p.String(), nil
}

// Scan implements the sql.Scanner interface
func (p *Price) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*p = 0
		return nil
	case int64:
		*p = Price(v * 100)
		return nil
	case float64:
		*p = Price(math.Round(v * 100))
		return nil
	case []byte:
		return p.scanString(string(v))
	case string:
		return p.scanString(v)
	default:
		return fmt.Errorf("cannot scan %T into Price", value)
	}
}

func (p *Price) scanString(s string) error {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("cannot scan %q into Price: %w", s, err)
	}
	*p = Price(math.Round(f * 100))
	return nil
}
