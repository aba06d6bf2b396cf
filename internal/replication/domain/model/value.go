package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Value is a payload value tagged with the declared type of its property
type Value struct {
	Type PropertyType
	Raw  interface{}
}

// defaultValues supplies the substitute for a null payload value, keyed by declared type.
// Date and Datetime are filled from the projection clock instead.
var defaultValues = map[PropertyType]interface{}{
	PropertyTypeBool:    false,
	PropertyTypeInteger: int64(0),
	PropertyTypeFloat:   float64(0),
	PropertyTypeDecimal: "0",
	PropertyTypeText:    "",
	PropertyTypeString:  "",
	PropertyTypeJSON:    "",
}

// DefaultValue returns the value substituted for null in a property of type t
func DefaultValue(t PropertyType, now time.Time) interface{} {
	switch t {
	case PropertyTypeDate, PropertyTypeDatetime:
		return now.UTC().Format(time.RFC3339)
	}
	return defaultValues[t]
}

// Native converts the raw JSON value into what is written to the store
func (v Value) Native() interface{} {
	n, ok := v.Raw.(json.Number)
	if !ok {
		return v.Raw
	}
	switch v.Type {
	case PropertyTypeDecimal:
		return n.String()
	case PropertyTypeFloat:
		if f, err := n.Float64(); err == nil {
			return f
		}
	default:
		if i, err := n.Int64(); err == nil {
			return i
		}
		if f, err := n.Float64(); err == nil {
			return f
		}
	}
	return n.String()
}

// Projection is a payload keyed by friendly property name
type Projection map[string]Value

// Document renders the projection as a store document
func (p Projection) Document() Document {
	doc := make(Document, len(p))
	for name, v := range p {
		doc[name] = v.Native()
	}
	return doc
}

// Project translates a payload keyed by property id into friendly names. Properties
// missing from the payload are omitted, null values receive the type default.
func Project(schema Schema, dataJSON string, now time.Time) (Projection, error) {
	projection := Projection{}
	trimmed := strings.TrimSpace(dataJSON)
	if trimmed == "" || trimmed == "null" {
		return projection, nil
	}

	var payload map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader([]byte(trimmed)))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("invalid record payload: %w", err)
	}

	for _, prop := range schema.Properties {
		raw, ok := payload[prop.ID]
		if !ok {
			continue
		}
		if raw == nil {
			raw = DefaultValue(prop.Type, now)
		}
		projection[prop.Name] = Value{Type: prop.Type, Raw: raw}
	}
	return projection, nil
}
