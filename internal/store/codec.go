package store

import (
	"bytes"
	"encoding/gob"
)

// encodeBlob gob-encodes v into a byte slice for storage in a packdb
// blob column. Every aggregate row type in this package (account, sale,
// treasury, admission; not the sale-id counter) stores its domain struct
// as a single snappy-compressed blob column rather than flattening
// nested maps/slices across packdb columns, the same way the original
// contract kept each account/sale as one serialized envelope (its
// Borsh VAccount/VSale) rather than spreading subscriptions and
// balances across separate rows.
func encodeBlob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeBlob(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}
