package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// StringList is an ordered list of strings that is never null. Input that is
// not a sequence of strings decodes to an empty list rather than failing.
type StringList []string

// Normalize returns the list itself, or an empty list when it is nil.
func (l StringList) Normalize() StringList {
	if l == nil {
		return StringList{}
	}
	return l
}

// MarshalJSON renders a nil list as [].
func (l StringList) MarshalJSON() ([]byte, error) {
	return json.Marshal([]string(l.Normalize()))
}

// UnmarshalJSON accepts a JSON array of strings; anything else yields an empty list.
func (l *StringList) UnmarshalJSON(data []byte) error {
	var items []string
	if len(bytes.TrimSpace(data)) == 0 || json.Unmarshal(data, &items) != nil {
		*l = StringList{}
		return nil
	}
	*l = StringList(items).Normalize()
	return nil
}

// UnmarshalYAML accepts a YAML sequence of strings; anything else yields an empty list.
func (l *StringList) UnmarshalYAML(value *yaml.Node) error {
	var items []string
	if value.Kind != yaml.SequenceNode || value.Decode(&items) != nil {
		*l = StringList{}
		return nil
	}
	*l = StringList(items).Normalize()
	return nil
}

// Value stores the list as a JSON array in a text column.
func (l StringList) Value() (driver.Value, error) {
	data, err := json.Marshal([]string(l.Normalize()))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan reads a JSON array written by Value.
func (l *StringList) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("unsupported type for StringList: %T", src)
	}
	return l.UnmarshalJSON(data)
}
