package payment

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// parseEvent decodes the processor event envelope:
//
//	{"id": "...", "type": "...", "data": {"object": {<payment intent>}}}
//
// Unknown fields are skipped so new processor API versions don't break
// webhook handling.
func parseEvent(raw []byte) (*Event, error) {
	var ev Event

	d := jx.DecodeBytes(raw)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			v, err := d.Str()
			if err != nil {
				return err
			}
			ev.ID = v
			return nil
		case "type":
			v, err := d.Str()
			if err != nil {
				return err
			}
			ev.Type = v
			return nil
		case "data":
			return d.Obj(func(d *jx.Decoder, key string) error {
				if key != "object" {
					return d.Skip()
				}
				return decodeIntent(d, &ev.Intent)
			})
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "parse webhook event")
	}
	if ev.Type == "" {
		return nil, errors.New("webhook event has no type")
	}
	return &ev, nil
}

func decodeIntent(d *jx.Decoder, intent *Intent) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			v, err := d.Str()
			if err != nil {
				return err
			}
			intent.ID = v
			return nil
		case "amount":
			v, err := d.Int64()
			if err != nil {
				return err
			}
			intent.Amount = v
			return nil
		case "currency":
			v, err := d.Str()
			if err != nil {
				return err
			}
			intent.Currency = v
			return nil
		case "status":
			v, err := d.Str()
			if err != nil {
				return err
			}
			intent.Status = v
			return nil
		case "metadata":
			intent.Metadata = make(map[string]string)
			return d.Obj(func(d *jx.Decoder, key string) error {
				v, err := d.Str()
				if err != nil {
					return err
				}
				intent.Metadata[key] = v
				return nil
			})
		default:
			return d.Skip()
		}
	})
}
