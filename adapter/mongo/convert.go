/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mongo

import (
	"reflect"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/google/uuid"

	"github.com/suparena/storekit/entity"
	storeerrors "github.com/suparena/storekit/errors"
)

// CreateNewEntry returns an empty document.
func (a *Adapter) CreateNewEntry(meta *entity.PersistentEntity) Entry {
	return Entry{}
}

// GetEntryValue reads one property in semantic form. Values decoded from
// BSON arrive as int32/int64, primitive.DateTime, primitive.Binary or
// primitive.A, so each kind accepts both the fresh and the decoded form.
func (a *Adapter) GetEntryValue(entry Entry, p *entity.Property) (any, error) {
	if entry == nil {
		return nil, storeerrors.NewConversionError(p.Name, nil, p.Kind.String(), "nil record")
	}
	v, ok := entry[p.Name]
	if !ok || v == nil {
		return nil, nil
	}

	switch p.Kind {
	case entity.KindString:
		s, ok := v.(string)
		if !ok {
			return nil, storeerrors.NewConversionError(p.Name, v, "string", "stored value is not a string")
		}
		return s, nil

	case entity.KindInt:
		n, ok := asInt64(v)
		if !ok {
			return nil, storeerrors.NewConversionError(p.Name, v, "int64", "stored value is not an integer")
		}
		return n, nil

	case entity.KindFloat:
		switch n := v.(type) {
		case float64:
			return n, nil
		case int32:
			return float64(n), nil
		case int64:
			return float64(n), nil
		default:
			return nil, storeerrors.NewConversionError(p.Name, v, "float64", "stored value is not a number")
		}

	case entity.KindBool:
		b, ok := v.(bool)
		if !ok {
			return nil, storeerrors.NewConversionError(p.Name, v, "bool", "stored value is not a bool")
		}
		return b, nil

	case entity.KindTime:
		switch ts := v.(type) {
		case time.Time:
			return ts, nil
		case primitive.DateTime:
			return ts.Time().UTC(), nil
		default:
			return nil, storeerrors.NewConversionError(p.Name, v, "time.Time", "stored value is not a BSON date")
		}

	case entity.KindBytes:
		switch b := v.(type) {
		case []byte:
			return b, nil
		case primitive.Binary:
			out := make([]byte, len(b.Data))
			copy(out, b.Data)
			return out, nil
		default:
			return nil, storeerrors.NewConversionError(p.Name, v, "bytes", "stored value is not binary")
		}

	case entity.KindKeyList:
		return keyListValue(p, v)

	default:
		return v, nil
	}
}

// SetEntryValue writes one property in its BSON form. Timestamps become
// BSON dates, which carry millisecond precision.
func (a *Adapter) SetEntryValue(entry Entry, p *entity.Property, value any) error {
	if entry == nil {
		return storeerrors.NewConversionError(p.Name, value, p.Kind.String(), "nil record")
	}

	switch p.Kind {
	case entity.KindTime:
		ts, ok := value.(time.Time)
		if !ok {
			return storeerrors.NewConversionError(p.Name, value, "time.Time", "not a timestamp")
		}
		entry[p.Name] = primitive.NewDateTimeFromTime(ts.UTC())

	case entity.KindInt:
		n, ok := asInt64(value)
		if !ok {
			return storeerrors.NewConversionError(p.Name, value, "int64", "not an integer")
		}
		entry[p.Name] = n

	case entity.KindBytes:
		b, ok := value.([]byte)
		if !ok {
			return storeerrors.NewConversionError(p.Name, value, "bytes", "not a byte slice")
		}
		out := make([]byte, len(b))
		copy(out, b)
		entry[p.Name] = primitive.Binary{Data: out}

	case entity.KindKeyList:
		switch keys := value.(type) {
		case []string:
			out := make([]string, len(keys))
			copy(out, keys)
			entry[p.Name] = out
		case []int64:
			out := make([]int64, len(keys))
			copy(out, keys)
			entry[p.Name] = out
		default:
			return storeerrors.NewConversionError(p.Name, value, "key list", "not a key list")
		}

	default:
		entry[p.Name] = value
	}
	return nil
}

func keyListValue(p *entity.Property, v any) (any, error) {
	wantString := p.Type.Elem().Kind() == reflect.String

	switch keys := v.(type) {
	case []string:
		out := make([]string, len(keys))
		copy(out, keys)
		return out, nil
	case []int64:
		out := make([]int64, len(keys))
		copy(out, keys)
		return out, nil
	case primitive.A:
		if wantString {
			out := make([]string, 0, len(keys))
			for _, raw := range keys {
				s, ok := raw.(string)
				if !ok {
					return nil, storeerrors.NewConversionError(p.Name, v, "key list", "stored key is not a string")
				}
				out = append(out, s)
			}
			return out, nil
		}
		out := make([]int64, 0, len(keys))
		for _, raw := range keys {
			n, ok := asInt64(raw)
			if !ok {
				return nil, storeerrors.NewConversionError(p.Name, v, "key list", "stored key is not an integer")
			}
			out = append(out, n)
		}
		return out, nil
	default:
		return nil, storeerrors.NewConversionError(p.Name, v, "key list", "stored value is not a key list")
	}
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}

func newUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
