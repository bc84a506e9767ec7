package models

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Vector3 is a fixed three-element indicator vector stored as a
// Postgres double precision[] column (text on other dialects). The
// element order is [period-5, period-20, period-60].
type Vector3 [3]float64

// Value encodes the vector as a Postgres array literal.
func (v Vector3) Value() (driver.Value, error) {
	return fmt.Sprintf("{%s,%s,%s}",
		strconv.FormatFloat(v[0], 'g', -1, 64),
		strconv.FormatFloat(v[1], 'g', -1, 64),
		strconv.FormatFloat(v[2], 'g', -1, 64),
	), nil
}

// Scan decodes a {a,b,c} array literal.
func (v *Vector3) Scan(src interface{}) error {
	if src == nil {
		*v = Vector3{}
		return nil
	}

	var s string
	switch raw := src.(type) {
	case string:
		s = raw
	case []byte:
		s = string(raw)
	default:
		return fmt.Errorf("cannot scan %T into Vector3", src)
	}

	s = strings.TrimPrefix(strings.TrimSuffix(strings.TrimSpace(s), "}"), "{")
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return fmt.Errorf("expected 3 vector elements, got %d in %q", len(parts), src)
	}

	var out Vector3
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return fmt.Errorf("parse vector element %q: %w", part, err)
		}
		out[i] = f
	}
	*v = out
	return nil
}

// GormDataType implements schema.GormDataTypeInterface.
func (Vector3) GormDataType() string {
	return "vector3"
}

// GormDBDataType picks the column type per dialect.
func (Vector3) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "double precision[]"
	}
	return "text"
}
