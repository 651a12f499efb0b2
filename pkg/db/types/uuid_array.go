package dbtypes

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// UUIDArray maps a Postgres uuid[] column. A withdrawal stores the commission
// set it claims this way. SQLite keeps the same literal as text, so both
// drivers round-trip through the "{a,b}" form.
type UUIDArray []uuid.UUID

func (UUIDArray) GormDataType() string {
	return "uuid[]"
}

func (a *UUIDArray) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = UUIDArray{}
		return nil
	case string:
		return a.parse(v)
	case []byte:
		return a.parse(string(v))
	default:
		return fmt.Errorf("UUIDArray: unsupported Scan type %T", src)
	}
}

func (a UUIDArray) Value() (driver.Value, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, id := range a {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(id.String())
	}
	b.WriteByte('}')
	return b.String(), nil
}

// UUIDs returns a copy detached from the model.
func (a UUIDArray) UUIDs() []uuid.UUID {
	out := make([]uuid.UUID, len(a))
	copy(out, a)
	return out
}

func (a *UUIDArray) parse(literal string) error {
	body := strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(literal), "{"), "}")
	fields := strings.FieldsFunc(body, func(r rune) bool { return r == ',' })
	out := make(UUIDArray, 0, len(fields))
	for _, field := range fields {
		field = strings.TrimSpace(strings.Trim(field, `"`))
		if field == "" {
			continue
		}
		id, err := uuid.Parse(field)
		if err != nil {
			return fmt.Errorf("UUIDArray: parse %q: %w", field, err)
		}
		out = append(out, id)
	}
	*a = out
	return nil
}
