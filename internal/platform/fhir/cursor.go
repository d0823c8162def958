package fhir

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// Cursor marks a position in a result set ordered by a monotonic key. ID
// names the resource holding Key, so a cursor whose halves disagree can be
// told apart from a genuine one.
type Cursor struct {
	Key int64  `json:"k"`
	ID  string `json:"id"`
}

// EncodeCursor renders the position of resource id at key as an opaque,
// URL-safe token.
func EncodeCursor(key int64, id string) string {
	data, _ := json.Marshal(Cursor{Key: key, ID: id})
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeCursor parses a token made by EncodeCursor. A token without a
// resource id is rejected.
func DecodeCursor(token string) (Cursor, error) {
	var c Cursor
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("cursor encoding: %w", err)
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return Cursor{}, fmt.Errorf("cursor payload: %w", err)
	}
	if c.ID == "" {
		return Cursor{}, errors.New("cursor has no resource id")
	}
	return c, nil
}
