package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	fieldID          = "id"
	fieldCode        = "code"
	fieldTitle       = "title"
	fieldDescription = "description"
	fieldThumbnail   = "thumbnail"
	fieldPrice       = "price"
	fieldStock       = "stock"
)

// Prices outside these bounds expand to absurd textual forms on every save.
const (
	maxPriceExponent = 64
	maxPriceDigits   = 64
)

// Product is one catalog record. Fields the catalog does not know about are
// kept in Extra and written back unchanged.
type Product struct {
	ID          string
	Code        string
	Title       string
	Description string
	Thumbnail   string
	Price       decimal.Decimal
	Stock       int64

	Extra map[string]any
}

// Fields is a partial update keyed by JSON field name.
type Fields map[string]any

type productJSON struct {
	ID          string      `json:"id"`
	Code        string      `json:"code"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Thumbnail   string      `json:"thumbnail"`
	Price       json.Number `json:"price"`
	Stock       int64       `json:"stock"`
}

func isKnownField(name string) bool {
	switch name {
	case fieldID, fieldCode, fieldTitle, fieldDescription, fieldThumbnail, fieldPrice, fieldStock:
		return true
	}
	return false
}

func (p Product) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(productJSON{
		ID:          p.ID,
		Code:        p.Code,
		Title:       p.Title,
		Description: p.Description,
		Thumbnail:   p.Thumbnail,
		Price:       json.Number(p.Price.String()),
		Stock:       p.Stock,
	})
	if err != nil {
		return nil, err
	}

	extra := make(map[string]any, len(p.Extra))
	for k, v := range p.Extra {
		if !isKnownField(k) {
			extra[k] = v
		}
	}
	if len(extra) == 0 {
		return base, nil
	}

	tail, err := json.Marshal(extra)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(base)+len(tail))
	out = append(out, base[:len(base)-1]...)
	out = append(out, ',')
	out = append(out, tail[1:]...)
	return out, nil
}

// UnmarshalJSON decodes onto the receiver: keys present in data overwrite,
// keys absent leave the current value alone. Update relies on this.
func (p *Product) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return errors.New("product must be a JSON object")
	}

	for k, v := range raw {
		var err error
		switch k {
		case fieldID:
			err = json.Unmarshal(v, &p.ID)
		case fieldCode:
			err = json.Unmarshal(v, &p.Code)
		case fieldTitle:
			err = json.Unmarshal(v, &p.Title)
		case fieldDescription:
			err = json.Unmarshal(v, &p.Description)
		case fieldThumbnail:
			err = json.Unmarshal(v, &p.Thumbnail)
		case fieldPrice:
			if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
				continue
			}
			if err = p.Price.UnmarshalJSON(v); err == nil {
				err = checkPrice(p.Price)
			}
		case fieldStock:
			err = json.Unmarshal(v, &p.Stock)
		default:
			var val any
			dec := json.NewDecoder(bytes.NewReader(v))
			dec.UseNumber()
			if err = dec.Decode(&val); err == nil {
				if p.Extra == nil {
					p.Extra = make(map[string]any)
				}
				p.Extra[k] = val
			}
		}
		if err != nil {
			return fmt.Errorf("field %q: %w", k, err)
		}
	}
	return nil
}

func checkPrice(d decimal.Decimal) error {
	if e := d.Exponent(); e > maxPriceExponent || e < -maxPriceExponent {
		return fmt.Errorf("%w: price exponent %d out of range", ErrInvalidField, e)
	}
	if n := d.NumDigits(); n > maxPriceDigits {
		return fmt.Errorf("%w: price has %d digits", ErrInvalidField, n)
	}
	return nil
}

// clone deep-copies p, dropping Extra keys that shadow known fields.
func (p Product) clone() Product {
	out := p
	if p.Extra != nil {
		out.Extra = make(map[string]any, len(p.Extra))
		for k, v := range p.Extra {
			if !isKnownField(k) {
				out.Extra[k] = cloneValue(v)
			}
		}
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, vv := range t {
			m[k] = cloneValue(vv)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, vv := range t {
			s[i] = cloneValue(vv)
		}
		return s
	default:
		return v
	}
}

// apply merges f over p. The id key is ignored.
func (f Fields) apply(p Product) (Product, error) {
	patch := make(map[string]any, len(f))
	for k, v := range f {
		if k != fieldID {
			patch[k] = v
		}
	}

	data, err := json.Marshal(patch)
	if err != nil {
		return Product{}, fmt.Errorf("%w: %v", ErrInvalidField, err)
	}

	out := p.clone()
	if err := out.UnmarshalJSON(data); err != nil {
		return Product{}, fmt.Errorf("%w: %v", ErrInvalidField, err)
	}
	out.ID = p.ID
	return out, nil
}
