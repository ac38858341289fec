package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// StringList is a JSON-backed string slice, implements driver.Valuer and
// sql.Scanner so it can be stored in a single column.
type StringList []string

// Value return json value, implement driver.Valuer interface
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	ba, err := json.Marshal([]string(l))
	return string(ba), err
}

// Scan scan value into the list, implements sql.Scanner interface
func (l *StringList) Scan(val interface{}) error {
	var ba []byte
	switch v := val.(type) {
	case []byte:
		ba = v
	case string:
		ba = []byte(v)
	case nil:
		*l = nil
		return nil
	default:
		return errors.New(fmt.Sprint("failed to unmarshal JSON value:", val))
	}
	t := make([]string, 0)
	err := json.Unmarshal(ba, &t)
	*l = StringList(t)
	return err
}

// GormDataType gorm common data type
func (l StringList) GormDataType() string {
	return "stringlist"
}

// GormDBDataType gorm db data type
func (StringList) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	switch db.Dialector.Name() {
	case "sqlite":
		return "JSON"
	case "mysql":
		return "JSON"
	case "postgres":
		return "JSONB"
	}
	return ""
}

// ReactionMap maps an emoji to the ordered list of distinct reactor names.
type ReactionMap map[string][]string

// Value return json value, implement driver.Valuer interface
func (m ReactionMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	ba, err := json.Marshal(map[string][]string(m))
	return string(ba), err
}

// Scan scan value into the map, implements sql.Scanner interface
func (m *ReactionMap) Scan(val interface{}) error {
	var ba []byte
	switch v := val.(type) {
	case []byte:
		ba = v
	case string:
		ba = []byte(v)
	case nil:
		*m = nil
		return nil
	default:
		return errors.New(fmt.Sprint("failed to unmarshal JSON value:", val))
	}
	t := map[string][]string{}
	err := json.Unmarshal(ba, &t)
	*m = ReactionMap(t)
	return err
}

// GormDataType gorm common data type
func (m ReactionMap) GormDataType() string {
	return "reactionmap"
}

// GormDBDataType gorm db data type
func (ReactionMap) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	switch db.Dialector.Name() {
	case "sqlite":
		return "JSON"
	case "mysql":
		return "JSON"
	case "postgres":
		return "JSONB"
	}
	return ""
}
