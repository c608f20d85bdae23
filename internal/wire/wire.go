// Package wire holds small JSON helpers shared by the boundary layers.
package wire

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// DecodeList normalizes the two list shapes the pharmacy backend produces:
// a bare JSON array, or a paginated object carrying the items under
// "results". Anything else is rejected instead of being silently treated as
// an empty list.
func DecodeList(d *jx.Decoder, item func(d *jx.Decoder) error) error {
	switch tt := d.Next(); tt {
	case jx.Array:
		return d.Arr(item)
	case jx.Object:
		found := false
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			if key == "results" {
				found = true
				return d.Arr(item)
			}
			return d.Skip()
		}); err != nil {
			return err
		}
		if !found {
			return errors.New(`malformed list response: object without "results"`)
		}
		return nil
	default:
		return errors.Errorf("malformed list response: unexpected %s", tt)
	}
}

// DecodeDecimal reads a monetary value that the backend serializes either as
// a JSON number or as a decimal string.
func DecodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch tt := d.Next(); tt {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		v, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, errors.Wrap(err, "parse decimal")
		}
		return v, nil
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		v, err := decimal.NewFromString(n.String())
		if err != nil {
			return decimal.Zero, errors.Wrap(err, "parse decimal")
		}
		return v, nil
	default:
		return decimal.Zero, errors.Errorf("decimal: unexpected %s", tt)
	}
}

// EncodeDecimal writes a decimal as a plain JSON number, keeping full
// precision without float round-tripping.
func EncodeDecimal(e *jx.Encoder, v decimal.Decimal) {
	e.Num(jx.Num(v.String()))
}
