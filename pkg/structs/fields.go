// Package structs reads struct fields by name.
package structs

import (
	"github.com/oleiade/reflections"
	"github.com/pkg/errors"
)

// GetField returns the value of the provided obj field. obj can whether be a structure or pointer to structure.
// Fields of embedded structures are reachable by their own name.
func GetField(obj any, name string) (any, error) {
	v, err := reflections.GetField(obj, name)
	return v, errors.Wrapf(err, "field %s", name)
}

// Fields returns the names of the exported fields of obj, embedded structures flattened.
func Fields(obj any) ([]string, error) {
	return reflections.FieldsDeep(obj)
}

// Project returns the given fields of obj indexed by name.
// All the exported fields are returned when no field is given.
func Project(obj any, fields ...string) (map[string]any, error) {
	if len(fields) == 0 {
		var err error
		if fields, err = Fields(obj); err != nil {
			return nil, errors.Wrap(err, "could not list fields")
		}
	}

	projection := make(map[string]any, len(fields))
	for _, field := range fields {
		v, err := GetField(obj, field)
		if err != nil {
			return nil, err
		}
		projection[field] = v
	}
	return projection, nil
}
