// Package cursor encodes the opaque pagination cursors of journal listings.
package cursor

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/lherron/syncp/internal/domain"
)

// Cursor marks the last event id of a page. Scope ties it to the filter
// that produced the page.
type Cursor struct {
	LastID int64  `json:"last_id"`
	Scope  string `json:"scope,omitempty"`
}

// New returns a cursor positioned after lastID
func New(lastID int64, scope string) *Cursor {
	return &Cursor{LastID: lastID, Scope: scope}
}

// Encode serializes the cursor to an opaque base64 string
func (c *Cursor) Encode() (string, error) {
	if c.LastID <= 0 {
		return "", fmt.Errorf("cursor missing last ID")
	}

	jsonData, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cursor: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(jsonData), nil
}

// Decode deserializes a cursor and checks it belongs to scope
func Decode(encoded, scope string) (*Cursor, error) {
	if encoded == "" {
		return nil, domain.NewValueError("empty cursor string")
	}

	jsonData, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, domain.NewValueError("invalid cursor encoding: %v", err)
	}

	var c Cursor
	if err := json.Unmarshal(jsonData, &c); err != nil {
		return nil, domain.NewValueError("invalid cursor format: %v", err)
	}
	if c.LastID <= 0 {
		return nil, domain.NewValueError("cursor missing last ID")
	}
	if c.Scope != scope {
		return nil, domain.NewValueError("cursor was issued for a different query")
	}

	return &c, nil
}
