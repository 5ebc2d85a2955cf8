// Package ethunit holds exact ETH amounts. Everything is carried as a
// big-integer count of wei; decimal ether strings only appear at the
// edges (JSON and display), where shopspring/decimal does the scaling.
package ethunit

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Decimals is the number of wei digits in one ether.
const Decimals = 18

var weiPerEther = new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals), nil)

var (
	ErrInvalidAmount = errors.New("ethunit: invalid amount")
	ErrTooPrecise    = errors.New("ethunit: more than 18 decimal places")
)

// WeiPerEther returns a fresh copy of 10^18.
func WeiPerEther() *big.Int {
	return new(big.Int).Set(weiPerEther)
}

// FormatEther renders wei as a decimal ether string with trailing zeros
// trimmed: 2500000000000000000 -> "2.5".
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -Decimals).String()
}

// ParseEther converts a decimal ether string ("1.25", "3", "1.5e-3") to
// wei. Values that do not land on a whole wei are rejected.
func ParseEther(s string) (*big.Int, error) {
	wei, err := shiftEther(s)
	if err != nil {
		return nil, err
	}
	if !wei.IsInteger() {
		return nil, fmt.Errorf("%w: %q", ErrTooPrecise, s)
	}
	return wei.BigInt(), nil
}

// RoundEther is ParseEther for amounts computed by the server, which may
// carry float noise below one wei. They are rounded half away from zero.
func RoundEther(s string) (*big.Int, error) {
	wei, err := shiftEther(s)
	if err != nil {
		return nil, err
	}
	return wei.Round(0).BigInt(), nil
}

func shiftEther(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	for _, ch := range s {
		switch {
		case ch >= '0' && ch <= '9':
		case ch == '.', ch == '-', ch == '+', ch == 'e', ch == 'E':
		default:
			return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return d.Shift(Decimals), nil
}

// rawNumber strips JSON quoting so both "123" and 123 decode the same way.
func rawNumber(data []byte) (string, bool, error) {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return "", true, nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", false, err
		}
		return s, false, nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return "", false, err
	}
	return n.String(), false, nil
}
