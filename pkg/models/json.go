package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// The store keeps structured model/note/session attributes as JSON text
// columns. These helper types give sqlx a Valuer/Scanner pair per shape so
// repositories can read and write them like plain columns.

func jsonValue(v any) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func jsonScan(dest any, src any) error {
	switch s := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(s, dest)
	case string:
		return json.Unmarshal([]byte(s), dest)
	default:
		return fmt.Errorf("cannot scan %T into JSON column", src)
	}
}

// FieldMap maps field names to their text values.
type FieldMap map[string]string

func (m FieldMap) Value() (driver.Value, error) { return jsonValue(m) }
func (m *FieldMap) Scan(src any) error          { return jsonScan(m, src) }

// Tags is a note's tag list.
type Tags []string

func (t Tags) Value() (driver.Value, error) { return jsonValue(t) }
func (t *Tags) Scan(src any) error          { return jsonScan(t, src) }

// FieldDefs is a model's ordered field list.
type FieldDefs []FieldDef

func (f FieldDefs) Value() (driver.Value, error) { return jsonValue(f) }
func (f *FieldDefs) Scan(src any) error          { return jsonScan(f, src) }

// TemplateDefs is a model's ordered template list.
type TemplateDefs []TemplateDef

func (t TemplateDefs) Value() (driver.Value, error) { return jsonValue(t) }
func (t *TemplateDefs) Scan(src any) error          { return jsonScan(t, src) }

// SessionWords is a study session's ordered card slots.
type SessionWords []SessionWord

func (w SessionWords) Value() (driver.Value, error) { return jsonValue(w) }
func (w *SessionWords) Scan(src any) error          { return jsonScan(w, src) }

// SessionIDs is the session map's list of known session ids.
type SessionIDs []string

func (s SessionIDs) Value() (driver.Value, error) { return jsonValue(s) }
func (s *SessionIDs) Scan(src any) error          { return jsonScan(s, src) }
