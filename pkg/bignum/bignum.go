package bignum

import (
	"database/sql/driver"
	"fmt"
	"math/big"
)

// Int is a non-negative arbitrary-precision integer that persists as a
// decimal string column. Token amounts routinely exceed uint64, so every
// currency figure in the ledger goes through this type.
type Int struct {
	v big.Int
}

func New(i int64) Int {
	var n Int
	n.v.SetInt64(i)
	return n
}

func FromBig(b *big.Int) Int {
	var n Int
	if b != nil {
		n.v.Set(b)
	}
	return n
}

// Big returns a copy; mutating the result never touches the stored value.
func (n Int) Big() *big.Int { return new(big.Int).Set(&n.v) }

func (n Int) String() string { return n.v.String() }

func (n Int) Sign() int { return n.v.Sign() }

func (n Int) Cmp(other Int) int { return n.v.Cmp(&other.v) }

func (n Int) Value() (driver.Value, error) { return n.v.String(), nil }

func (n *Int) Scan(src any) error {
	switch s := src.(type) {
	case nil:
		n.v.SetInt64(0)
		return nil
	case int64:
		n.v.SetInt64(s)
		return nil
	case string:
		return n.setString(s)
	case []byte:
		return n.setString(string(s))
	default:
		return fmt.Errorf("bignum: cannot scan %T", src)
	}
}

func (n *Int) setString(s string) error {
	if s == "" {
		n.v.SetInt64(0)
		return nil
	}
	if _, ok := n.v.SetString(s, 10); !ok {
		return fmt.Errorf("bignum: invalid decimal %q", s)
	}
	return nil
}

func (n Int) MarshalJSON() ([]byte, error) {
	return []byte(`"` + n.v.String() + `"`), nil
}

func (n *Int) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if s == "null" {
		return nil
	}
	return n.setString(s)
}
