package domain

import (
	"encoding/json"
	"fmt"
)

// MarshalEntity encodes an entity with its concreteType discriminator
func MarshalEntity(e Entity) ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	concrete, err := json.Marshal(e.Type().ConcreteType())
	if err != nil {
		return nil, err
	}
	fields["concreteType"] = concrete
	return json.Marshal(fields)
}

// UnmarshalEntity decodes an entity using its concreteType discriminator
func UnmarshalEntity(data []byte) (Entity, error) {
	var probe struct {
		ConcreteType string `json:"concreteType"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to decode entity: %w", err)
	}
	t, ok := EntityTypeFromConcrete(probe.ConcreteType)
	if !ok {
		return nil, NewValueError("not able to copy this type of entity: %q", probe.ConcreteType)
	}
	e, err := NewEntity(t)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, e); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", t, err)
	}
	return e, nil
}

// EntityEnvelope carries an entity inside a larger JSON document
type EntityEnvelope struct {
	Entity Entity
}

// MarshalJSON implements json.Marshaler
func (env EntityEnvelope) MarshalJSON() ([]byte, error) {
	if env.Entity == nil {
		return []byte("null"), nil
	}
	return MarshalEntity(env.Entity)
}

// UnmarshalJSON implements json.Unmarshaler
func (env *EntityEnvelope) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		env.Entity = nil
		return nil
	}
	e, err := UnmarshalEntity(data)
	if err != nil {
		return err
	}
	env.Entity = e
	return nil
}
