package ethunit

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Wei is an integer amount of wei. The zero value is 0.
type Wei struct {
	v *big.Int
}

// NewWei copies i; the result never aliases the caller's value.
func NewWei(i *big.Int) Wei {
	if i == nil {
		return Wei{}
	}
	return Wei{v: new(big.Int).Set(i)}
}

func WeiFromInt64(i int64) Wei {
	return Wei{v: big.NewInt(i)}
}

func (w Wei) int() *big.Int {
	if w.v == nil {
		return new(big.Int)
	}
	return w.v
}

// ParseWei accepts a base-10 integer, or an exponent form such as "1e18"
// as long as it is integral.
func ParseWei(s string) (Wei, error) {
	s = strings.TrimSpace(s)
	if i, ok := new(big.Int).SetString(s, 10); ok {
		return Wei{v: i}, nil
	}
	if strings.ContainsAny(s, "/xXbBoO_") {
		return Wei{}, fmt.Errorf("%w: wei %q", ErrInvalidAmount, s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsInteger() {
		return Wei{}, fmt.Errorf("%w: wei %q", ErrInvalidAmount, s)
	}
	return Wei{v: d.BigInt()}, nil
}

// Int returns a copy of the amount.
func (w Wei) Int() *big.Int {
	return new(big.Int).Set(w.int())
}

func (w Wei) Sign() int {
	return w.int().Sign()
}

func (w Wei) Cmp(o Wei) int {
	return w.int().Cmp(o.int())
}

// Mul returns w * n.
func (w Wei) Mul(n int64) Wei {
	return Wei{v: new(big.Int).Mul(w.int(), big.NewInt(n))}
}

func (w Wei) Add(o Wei) Wei {
	return Wei{v: new(big.Int).Add(w.int(), o.int())}
}

func (w Wei) String() string {
	return w.int().String()
}

// Ether renders the amount in ether.
func (w Wei) Ether() string {
	return FormatEther(w.int())
}

func (w *Wei) UnmarshalJSON(data []byte) error {
	s, null, err := rawNumber(data)
	if err != nil {
		return fmt.Errorf("wei: %w", err)
	}
	if null || s == "" {
		*w = Wei{}
		return nil
	}
	parsed, err := ParseWei(s)
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// MarshalJSON writes the amount as a string, which survives consumers
// that decode numbers into float64.
func (w Wei) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.int().String())
}
