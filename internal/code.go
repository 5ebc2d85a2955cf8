package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Code is an opaque identifier (userCode, productCode, id) that the API
// sends either as a JSON string or as a JSON number. It is kept in its
// string form and marshals back as a string.
type Code string

func (c Code) String() string {
	return string(c)
}

func (c Code) IsZero() bool {
	return c == ""
}

func (c *Code) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Code(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("code: expected string or number, got %s", data)
	}
	*c = Code(n.String())
	return nil
}

func (c Code) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(c))
}
