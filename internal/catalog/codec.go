package catalog

import (
	"bytes"
	"encoding/json"
)

// EncodeLines renders products as JSON lines, one product per line, each
// line terminated by a newline.
func EncodeLines(products []Product) ([]byte, error) {
	var buf bytes.Buffer
	for _, p := range products {
		b, err := json.Marshal(p)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// DecodeLines parses a JSON lines snapshot. Blank lines are skipped. The first
// bad line aborts the whole decode with a *DecodeError.
func DecodeLines(data []byte) ([]Product, error) {
	lines := bytes.Split(data, []byte("\n"))
	out := make([]Product, 0, len(lines))

	for i, line := range lines {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		p, err := decodeProduct(line)
		if err != nil {
			return nil, &DecodeError{Line: i + 1, Err: err}
		}
		out = append(out, p)
	}
	return out, nil
}

func decodeProduct(doc []byte) (Product, error) {
	var p Product
	if err := json.Unmarshal(doc, &p); err != nil {
		return Product{}, err
	}
	return p, nil
}
