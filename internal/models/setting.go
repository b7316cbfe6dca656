package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

const (
	SettingString  = "string"
	SettingNumber  = "number"
	SettingBoolean = "boolean"
	SettingJSON    = "json"
)

// Setting is a key/value row from the settings table; Type tags how Value is interpreted.
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	Category  string    `json:"category"`
	Type      string    `json:"type"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Typed decodes Value according to Type.
func (s *Setting) Typed() (any, error) {
	switch s.Type {
	case "", SettingString:
		return s.Value, nil
	case SettingNumber:
		f, err := strconv.ParseFloat(s.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("setting %s: not a number: %w", s.Key, err)
		}
		return f, nil
	case SettingBoolean:
		b, err := strconv.ParseBool(s.Value)
		if err != nil {
			return nil, fmt.Errorf("setting %s: not a boolean: %w", s.Key, err)
		}
		return b, nil
	case SettingJSON:
		var v any
		if err := json.Unmarshal([]byte(s.Value), &v); err != nil {
			return nil, fmt.Errorf("setting %s: invalid json: %w", s.Key, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("setting %s: unknown type %q", s.Key, s.Type)
	}
}
