package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// TagSet ist eine Liste von Schlagworten, als JSON-Text gespeichert.
//
// Drei Zustände: nil (NULL, noch nicht berechnet), leer ("[]", berechnet ohne
// Treffer) und gefüllt. Ältere Datensätze enthalten teils einen einzelnen
// String statt einer Liste; Scan macht daraus eine einelementige Menge.
type TagSet []string

// GormDataType legt den Spaltentyp fest, damit LIKE-Filter auf allen Treibern funktionieren.
func (TagSet) GormDataType() string {
	return "text"
}

// Value implementiert driver.Valuer.
func (t TagSet) Value() (driver.Value, error) {
	if t == nil {
		return nil, nil
	}
	b, err := json.Marshal([]string(t))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implementiert sql.Scanner.
func (t *TagSet) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*t = nil
		return nil
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	default:
		return fmt.Errorf("tagset: unsupported source type %T", src)
	}
}

func (t *TagSet) parse(raw string) error {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "" || raw == "null":
		*t = nil
	case strings.HasPrefix(raw, "["):
		var list []string
		if err := json.Unmarshal([]byte(raw), &list); err != nil {
			// Kaputte Liste wie Altformat behandeln, sonst blockiert ein Datensatz jeden Find.
			zap.L().Warn("Unreadable tag list, keeping raw value", zap.String("raw", raw), zap.Error(err))
			*t = TagSet{raw}
			return nil
		}
		if list == nil {
			list = []string{}
		}
		*t = list
	case strings.HasPrefix(raw, `"`):
		// Altformat: ein einzelner JSON-String
		var s string
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return fmt.Errorf("tagset: %w", err)
		}
		*t = TagSet{s}
	default:
		*t = TagSet{raw}
	}
	return nil
}

// MarshalJSON gibt auch den unberechneten Zustand als [] aus.
func (t TagSet) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(t))
}

// UnmarshalJSON akzeptiert eine Liste oder einen einzelnen String.
func (t *TagSet) UnmarshalJSON(data []byte) error {
	return t.parse(string(data))
}

// Contains prüft, ob value enthalten ist.
func (t TagSet) Contains(value string) bool {
	for _, v := range t {
		if v == value {
			return true
		}
	}
	return false
}
