/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entity

import (
	"fmt"
	"reflect"
	"time"

	"github.com/go-openapi/strfmt"

	storeerrors "github.com/suparena/storekit/errors"
)

// Access reads and writes the persisted properties of one entity instance
// through its mapping. Property values cross this boundary in semantic
// form: strings, int64, float64, bool, time.Time, []byte and key slices.
type Access struct {
	meta  *PersistentEntity
	v     reflect.Value
	prior int64
}

// NewAccess binds a mapping to an entity instance. The entity must be a
// non-nil pointer to the mapped struct type.
func NewAccess(meta *PersistentEntity, e any) (*Access, error) {
	rv := reflect.ValueOf(e)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return nil, storeerrors.NewValidationError("", "entity must be a non-nil pointer")
	}
	rv = rv.Elem()
	if rv.Type() != meta.Type {
		return nil, storeerrors.NewValidationError("", fmt.Sprintf("entity type %s does not match mapping for %s", rv.Type(), meta.Type))
	}
	return &Access{meta: meta, v: rv}, nil
}

// Meta returns the mapping this access was built from.
func (a *Access) Meta() *PersistentEntity {
	return a.meta
}

// Entity returns the bound entity as a pointer to the mapped struct.
func (a *Access) Entity() any {
	return a.v.Addr().Interface()
}

// Get returns the semantic value of a property. Nil pointer fields
// yield nil.
func (a *Access) Get(p *Property) (any, error) {
	fv := a.v.Field(p.index)
	if p.Ptr {
		if fv.IsNil() {
			return nil, nil
		}
		fv = fv.Elem()
	}

	switch p.Kind {
	case KindString:
		return fv.String(), nil
	case KindInt:
		switch fv.Kind() {
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return int64(fv.Uint()), nil
		default:
			return fv.Int(), nil
		}
	case KindFloat:
		return fv.Float(), nil
	case KindBool:
		return fv.Bool(), nil
	case KindTime:
		return fv.Convert(timeType).Interface().(time.Time), nil
	case KindBytes:
		src := fv.Bytes()
		out := make([]byte, len(src))
		copy(out, src)
		return out, nil
	case KindKeyList:
		return keyListOf(p, fv)
	default:
		return fv.Interface(), nil
	}
}

// Set assigns the semantic value of a property, converting to the declared
// field type. A nil value zeroes the field.
func (a *Access) Set(p *Property, value any) error {
	fv := a.v.Field(p.index)
	if value == nil {
		fv.Set(reflect.Zero(fv.Type()))
		return nil
	}

	ft := fv.Type()
	if p.Ptr {
		ft = ft.Elem()
	}

	cv, err := convertValue(p, ft, value)
	if err != nil {
		return err
	}

	if p.Ptr {
		nv := reflect.New(ft)
		nv.Elem().Set(cv)
		fv.Set(nv)
	} else {
		fv.Set(cv)
	}
	return nil
}

// Identifier returns the entity's key value.
func (a *Access) Identifier() (any, error) {
	return a.Get(a.meta.Identity)
}

// SetIdentifier assigns the entity's key value.
func (a *Access) SetIdentifier(v any) error {
	return a.Set(a.meta.Identity, v)
}

// Version returns the entity's current version counter.
func (a *Access) Version() (int64, error) {
	if !a.meta.Versioned() {
		return 0, storeerrors.NewValidationError("", fmt.Sprintf("entity %s is not versioned", a.meta.Name))
	}
	v, err := a.Get(a.meta.Version)
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, nil
	}
	return v.(int64), nil
}

// SetVersion assigns the entity's version counter.
func (a *Access) SetVersion(v int64) error {
	if !a.meta.Versioned() {
		return storeerrors.NewValidationError("", fmt.Sprintf("entity %s is not versioned", a.meta.Name))
	}
	return a.Set(a.meta.Version, v)
}

// PriorVersion returns the stored version captured before the write in
// flight. Adapters with native compare-and-set read it to build their
// write condition.
func (a *Access) PriorVersion() int64 {
	return a.prior
}

// SetPriorVersion records the stored version the write in flight was
// checked against.
func (a *Access) SetPriorVersion(v int64) {
	a.prior = v
}

func keyListOf(p *Property, fv reflect.Value) (any, error) {
	elem := fv.Type().Elem()
	switch kindOf(elem) {
	case KindString:
		out := make([]string, fv.Len())
		for i := 0; i < fv.Len(); i++ {
			out[i] = fv.Index(i).String()
		}
		return out, nil
	case KindInt:
		out := make([]int64, fv.Len())
		for i := 0; i < fv.Len(); i++ {
			out[i] = fv.Index(i).Int()
		}
		return out, nil
	default:
		return nil, storeerrors.NewConversionError(p.Name, fv.Interface(), "key list", "unsupported key element type")
	}
}

func convertValue(p *Property, ft reflect.Type, value any) (reflect.Value, error) {
	switch p.Kind {
	case KindString:
		s, ok := value.(string)
		if !ok {
			return reflect.Value{}, storeerrors.NewConversionError(p.Name, value, ft.String(), "not a string")
		}
		return reflect.ValueOf(s).Convert(ft), nil

	case KindInt:
		i, ok := toInt64(value)
		if !ok {
			return reflect.Value{}, storeerrors.NewConversionError(p.Name, value, ft.String(), "not an integer")
		}
		return reflect.ValueOf(i).Convert(ft), nil

	case KindFloat:
		f, ok := toFloat64(value)
		if !ok {
			return reflect.Value{}, storeerrors.NewConversionError(p.Name, value, ft.String(), "not a number")
		}
		return reflect.ValueOf(f).Convert(ft), nil

	case KindBool:
		b, ok := value.(bool)
		if !ok {
			return reflect.Value{}, storeerrors.NewConversionError(p.Name, value, ft.String(), "not a bool")
		}
		return reflect.ValueOf(b).Convert(ft), nil

	case KindTime:
		var ts time.Time
		switch v := value.(type) {
		case time.Time:
			ts = v
		case strfmt.DateTime:
			ts = time.Time(v)
		case string:
			parsed, err := time.Parse(time.RFC3339Nano, v)
			if err != nil {
				return reflect.Value{}, storeerrors.NewConversionError(p.Name, value, ft.String(), "not an RFC3339 timestamp")
			}
			ts = parsed
		default:
			return reflect.Value{}, storeerrors.NewConversionError(p.Name, value, ft.String(), "not a timestamp")
		}
		return reflect.ValueOf(ts).Convert(ft), nil

	case KindBytes:
		b, ok := value.([]byte)
		if !ok {
			return reflect.Value{}, storeerrors.NewConversionError(p.Name, value, ft.String(), "not a byte slice")
		}
		out := make([]byte, len(b))
		copy(out, b)
		return reflect.ValueOf(out), nil

	case KindKeyList:
		return convertKeyList(p, ft, value)

	default:
		rv := reflect.ValueOf(value)
		if rv.Type().AssignableTo(ft) {
			return rv, nil
		}
		if rv.Type().ConvertibleTo(ft) {
			return rv.Convert(ft), nil
		}
		return reflect.Value{}, storeerrors.NewConversionError(p.Name, value, ft.String(), "incompatible types")
	}
}

func convertKeyList(p *Property, ft reflect.Type, value any) (reflect.Value, error) {
	elem := ft.Elem()
	fail := func() (reflect.Value, error) {
		return reflect.Value{}, storeerrors.NewConversionError(p.Name, value, ft.String(), "not a key list")
	}

	switch src := value.(type) {
	case []string:
		if kindOf(elem) != KindString {
			return fail()
		}
		out := reflect.MakeSlice(ft, len(src), len(src))
		for i, s := range src {
			out.Index(i).Set(reflect.ValueOf(s).Convert(elem))
		}
		return out, nil

	case []int64:
		if kindOf(elem) != KindInt {
			return fail()
		}
		out := reflect.MakeSlice(ft, len(src), len(src))
		for i, n := range src {
			out.Index(i).Set(reflect.ValueOf(n).Convert(elem))
		}
		return out, nil

	case []any:
		out := reflect.MakeSlice(ft, len(src), len(src))
		for i, raw := range src {
			switch kindOf(elem) {
			case KindString:
				s, ok := raw.(string)
				if !ok {
					return fail()
				}
				out.Index(i).Set(reflect.ValueOf(s).Convert(elem))
			case KindInt:
				n, ok := toInt64(raw)
				if !ok {
					return fail()
				}
				out.Index(i).Set(reflect.ValueOf(n).Convert(elem))
			default:
				return fail()
			}
		}
		return out, nil

	default:
		return fail()
	}
}

func toInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int16:
		return int64(v), true
	case int8:
		return int64(v), true
	case uint64:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint:
		return int64(v), true
	case float64:
		if v == float64(int64(v)) {
			return int64(v), true
		}
		return 0, false
	default:
		return 0, false
	}
}

func toFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	default:
		return 0, false
	}
}
