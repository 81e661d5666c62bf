package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// StringList is a JSON-encoded ordered list of IDs. Attachment order matters
// to callers, so a jsonb array is used instead of a join table index column.
type StringList []string

// Scan implements sql.Scanner for reading from database
func (l *StringList) Scan(value any) error {
	if value == nil {
		*l = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return fmt.Errorf("failed to scan StringList: expected []byte, got %T", value)
		}
	}
	return json.Unmarshal(bytes, l)
}

// Value implements driver.Valuer for writing to database
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	bytes, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(bytes), nil
}

// Metadata is a JSON-encoded string map of free-form user attributes.
type Metadata map[string]string

// Scan implements sql.Scanner for reading from database
func (m *Metadata) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return fmt.Errorf("failed to scan Metadata: expected []byte, got %T", value)
		}
	}
	return json.Unmarshal(bytes, m)
}

// Value implements driver.Valuer for writing to database
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	bytes, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(bytes), nil
}

// Document is a JSON-encoded policy document.
type Document map[string]any

// Scan implements sql.Scanner for reading from database
func (d *Document) Scan(value any) error {
	if value == nil {
		*d = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return fmt.Errorf("failed to scan Document: expected []byte, got %T", value)
		}
	}
	return json.Unmarshal(bytes, d)
}

// Value implements driver.Valuer for writing to database
func (d Document) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	bytes, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(bytes), nil
}

// AccessKeyItem is the JSON shape of one stored access key.
type AccessKeyItem struct {
	Key        string     `json:"key"`
	SecretHash string     `json:"secret_hash"`
	Active     bool       `json:"active"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpireAt   *time.Time `json:"expire_at,omitempty"`
}

// AccessKeyList is a JSON-encoded ordered list of access keys.
type AccessKeyList []AccessKeyItem

// Scan implements sql.Scanner for reading from database
func (l *AccessKeyList) Scan(value any) error {
	if value == nil {
		*l = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return fmt.Errorf("failed to scan AccessKeyList: expected []byte, got %T", value)
		}
	}
	return json.Unmarshal(bytes, l)
}

// Value implements driver.Valuer for writing to database
func (l AccessKeyList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	bytes, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(bytes), nil
}

// RevisionItem is the JSON shape of one role history entry.
type RevisionItem struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RevisionList is a JSON-encoded ordered role revision log.
type RevisionList []RevisionItem

// Scan implements sql.Scanner for reading from database
func (l *RevisionList) Scan(value any) error {
	if value == nil {
		*l = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return fmt.Errorf("failed to scan RevisionList: expected []byte, got %T", value)
		}
	}
	return json.Unmarshal(bytes, l)
}

// Value implements driver.Valuer for writing to database
func (l RevisionList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	bytes, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(bytes), nil
}
