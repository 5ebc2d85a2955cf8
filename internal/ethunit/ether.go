package ethunit

import (
	"encoding/json"
	"fmt"
	"math/big"
)

// Ether is an exact decimal ether amount, stored as wei. It is the type of
// balances, withdrawal amounts and log amounts, which the API exchanges in
// ether rather than wei.
type Ether struct {
	wei Wei
}

func EtherFromWei(w Wei) Ether {
	return Ether{wei: w}
}

func MustParse(s string) Ether {
	e, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return e
}

func Parse(s string) (Ether, error) {
	wei, err := ParseEther(s)
	if err != nil {
		return Ether{}, err
	}
	return Ether{wei: Wei{v: wei}}, nil
}

func (e Ether) Wei() Wei {
	return e.wei
}

func (e Ether) Sign() int {
	return e.wei.Sign()
}

func (e Ether) Cmp(o Ether) int {
	return e.wei.Cmp(o.wei)
}

func (e Ether) Neg() Ether {
	return Ether{wei: Wei{v: new(big.Int).Neg(e.wei.int())}}
}

func (e Ether) String() string {
	return e.wei.Ether()
}

// Number returns the amount as an exact JSON number.
func (e Ether) Number() json.Number {
	return json.Number(e.String())
}

// UnmarshalJSON accepts server amounts, rounding anything finer than one
// wei. Use Parse for user input, which must be exact.
func (e *Ether) UnmarshalJSON(data []byte) error {
	s, null, err := rawNumber(data)
	if err != nil {
		return fmt.Errorf("ether: %w", err)
	}
	if null || s == "" {
		*e = Ether{}
		return nil
	}
	wei, err := RoundEther(s)
	if err != nil {
		return err
	}
	*e = Ether{wei: Wei{v: wei}}
	return nil
}

func (e Ether) MarshalJSON() ([]byte, error) {
	return []byte(e.String()), nil
}
