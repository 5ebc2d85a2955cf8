package internal

import "encoding/json"

// Receipt is the server acknowledgement of a checkout or withdrawal. The
// known fields are decoded for display; Raw holds the body verbatim.
type Receipt struct {
	Message    string          `json:"message"`
	TransferTx string          `json:"transferTx,omitempty"`
	FiatValue  json.RawMessage `json:"fiatValue,omitempty"`
	Raw        json.RawMessage `json:"-"`
}

func (r *Receipt) UnmarshalJSON(data []byte) error {
	type alias Receipt
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*r = Receipt(a)
	r.Raw = append(json.RawMessage(nil), data...)
	return nil
}
