package model

import "fmt"

// VersionIDsField is the reserved golden document field listing the version ids it represents
const VersionIDsField = "_versionIds"

// Document is a schemaless store document
type Document map[string]interface{}

// VersionIDs reads the reserved version id list. ok is false when the field is absent.
func (d Document) VersionIDs() (ids []string, ok bool, err error) {
	raw, present := d[VersionIDsField]
	if !present || raw == nil {
		return nil, false, nil
	}
	switch list := raw.(type) {
	case []string:
		return append([]string(nil), list...), true, nil
	case []interface{}:
		ids = make([]string, 0, len(list))
		for _, item := range list {
			s, isString := item.(string)
			if !isString {
				return nil, false, fmt.Errorf("%s contains non-string value %v", VersionIDsField, item)
			}
			ids = append(ids, s)
		}
		return ids, true, nil
	default:
		return nil, false, fmt.Errorf("%s has unexpected type %T", VersionIDsField, raw)
	}
}

// WithVersionIDs returns a copy of d carrying ids in the reserved field
func (d Document) WithVersionIDs(ids []string) Document {
	out := make(Document, len(d)+1)
	for k, v := range d {
		out[k] = v
	}
	out[VersionIDsField] = append([]string{}, ids...)
	return out
}

// Difference returns the ids in a that are not in b, keeping a's order
func Difference(a, b []string) []string {
	keep := make(map[string]struct{}, len(b))
	for _, id := range b {
		keep[id] = struct{}{}
	}
	var out []string
	seen := make(map[string]struct{}, len(a))
	for _, id := range a {
		if _, ok := keep[id]; ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
