// Package types defines the shared value objects of the slate entity API.
package types

// Entity type names known to the server schema.
const (
	TypeProject   = "Project"
	TypeHumanUser = "HumanUser"
	TypeShot      = "Shot"
	TypeAsset     = "Asset"
	TypeVersion   = "Version"
)

// Entity is a typed record from the tracking domain. Every entity carries at
// least an "id" and a "type" key; the remaining keys are domain fields.
// Entities are plain values copied from whatever the server returned; they
// hold no reference back to the client that fetched them.
type Entity map[string]any

// ID returns the entity's numeric identifier, or 0 if unset.
// JSON decoding yields float64 numbers, so both forms are accepted.
func (e Entity) ID() int {
	switch v := e["id"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

// Type returns the entity's type name, or "" if unset.
func (e Entity) Type() string {
	s, _ := e["type"].(string)
	return s
}

// Keys returns the entity's field names.
func (e Entity) Keys() []string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	return keys
}

// Filter is a single filter clause in the api3 wire form
// [field, operator, value].
type Filter []any

// Eq builds an equality clause: [field, "is", value].
func Eq(field string, value any) Filter {
	return Filter{field, "is", value}
}

// Field returns the clause's field name.
func (f Filter) Field() string {
	if len(f) < 1 {
		return ""
	}
	s, _ := f[0].(string)
	return s
}

// Operator returns the clause's operator.
func (f Filter) Operator() string {
	if len(f) < 2 {
		return ""
	}
	s, _ := f[1].(string)
	return s
}

// Value returns the clause's comparison value.
func (f Filter) Value() any {
	if len(f) < 3 {
		return nil
	}
	return f[2]
}
