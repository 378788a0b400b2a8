package types

import "encoding/json"

// NullableString distinguishes an absent JSON field (Set is false), an explicit
// null (Set is true, Valid is false) and a value.
type NullableString struct {
	Value string
	Valid bool // Valid is true if Value is not nil
	Set   bool // Set is true if the field was present in the document
}

func NewNullableString(v string) NullableString {
	return NullableString{Value: v, Valid: true, Set: true}
}

func (ns NullableString) String() string {
	if ns.Valid {
		return ns.Value
	}
	return ""
}

func (ns NullableString) IsNil() bool {
	return !ns.Valid
}

// Ptr returns nil for a null value.
func (ns NullableString) Ptr() *string {
	if !ns.Valid {
		return nil
	}
	v := ns.Value
	return &v
}

var _ json.Marshaler = &NullableString{}
var _ json.Unmarshaler = &NullableString{}
var _ Nullable = &NullableString{}

func (ns NullableString) MarshalJSON() ([]byte, error) {
	if ns.Valid {
		return json.Marshal(ns.Value)
	}
	return json.Marshal(nil)
}

func (ns *NullableString) UnmarshalJSON(data []byte) error {
	ns.Set = true
	if len(data) == 0 || string(data) == "null" {
		ns.Value = ""
		ns.Valid = false
		return nil
	}
	ns.Valid = true
	return json.Unmarshal(data, &ns.Value)
}
