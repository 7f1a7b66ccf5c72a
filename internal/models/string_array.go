package models

import (
	"database/sql/driver"
	"strings"
)

// StringArray is a custom type for PostgreSQL text[] that implements Scanner and Valuer.
// The "{a,b,c}" text form also round-trips through SQLite, which stores it verbatim.
type StringArray []string

// Scan implements the sql.Scanner interface for reading from database
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}

	str, ok := value.(string)
	if !ok {
		if bytes, ok := value.([]byte); ok {
			str = string(bytes)
		} else {
			*a = nil
			return nil
		}
	}

	str = strings.TrimPrefix(str, "{")
	str = strings.TrimSuffix(str, "}")

	if str == "" {
		*a = []string{}
		return nil
	}

	// Split by comma (simple case - doesn't handle quoted values with commas)
	*a = strings.Split(str, ",")
	return nil
}

// Value implements the driver.Valuer interface for writing to database
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	if len(a) == 0 {
		return "{}", nil
	}
	return "{" + strings.Join(a, ",") + "}", nil
}

// Lowercased returns an element-wise lowercase copy.
func (a StringArray) Lowercased() StringArray {
	if a == nil {
		return nil
	}
	out := make(StringArray, len(a))
	for i, s := range a {
		out[i] = strings.ToLower(s)
	}
	return out
}

// ContainsFold reports whether the array contains s, case-insensitively.
func (a StringArray) ContainsFold(s string) bool {
	s = strings.ToLower(s)
	for _, v := range a {
		if strings.ToLower(v) == s {
			return true
		}
	}
	return false
}
