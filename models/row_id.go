package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
)

// RowID is a primary key that may arrive as a JSON number (serial columns)
// or a string (uuid/text columns). It remembers which form it was read in
// and writes the same form back.
type RowID struct {
	value   string
	numeric bool
}

func NumericRowID(n int64) RowID {
	return RowID{value: strconv.FormatInt(n, 10), numeric: true}
}

func TextRowID(s string) RowID {
	return RowID{value: s}
}

func (id RowID) String() string {
	return id.value
}

func (id RowID) IsZero() bool {
	return id.value == ""
}

// Numeric reports whether the id was read as a number.
func (id RowID) Numeric() bool {
	return id.numeric
}

func (id *RowID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*id = RowID{}
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = TextRowID(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("row id: %w", err)
		}
		*id = RowID{value: n.String(), numeric: true}
	}
	return nil
}

func (id RowID) MarshalJSON() ([]byte, error) {
	switch {
	case id.value == "":
		return []byte("null"), nil
	case id.numeric:
		return []byte(id.value), nil
	default:
		return json.Marshal(id.value)
	}
}

// Scan implements sql.Scanner for integer, uuid and text key columns.
func (id *RowID) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*id = RowID{}
	case int64:
		*id = NumericRowID(v)
	case string:
		*id = TextRowID(v)
	case []byte:
		*id = TextRowID(string(v))
	default:
		return fmt.Errorf("row id: unsupported column type %T", value)
	}
	return nil
}

// Value implements driver.Valuer. Numeric ids are sent as integers.
func (id RowID) Value() (driver.Value, error) {
	if id.value == "" {
		return nil, nil
	}
	if id.numeric {
		if n, err := strconv.ParseInt(id.value, 10, 64); err == nil {
			return n, nil
		}
	}
	return id.value, nil
}

// GormDataType matches the bigserial key of site_settings.
func (RowID) GormDataType() string {
	return "int"
}
