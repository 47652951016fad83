/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entity

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-openapi/strfmt"

	storeerrors "github.com/suparena/storekit/errors"
)

// Kind classifies a property by the semantic value type adapters convert
// to and from a store's native representation.
type Kind int

const (
	KindAny Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindTime
	KindBytes
	KindKeyList
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	case KindBytes:
		return "bytes"
	case KindKeyList:
		return "keylist"
	default:
		return "any"
	}
}

var (
	timeType   = reflect.TypeOf(time.Time{})
	strfmtType = reflect.TypeOf(strfmt.DateTime{})
	bytesType  = reflect.TypeOf([]byte(nil))
)

func kindOf(t reflect.Type) Kind {
	switch t {
	case timeType, strfmtType:
		return KindTime
	case bytesType:
		return KindBytes
	}
	switch t.Kind() {
	case reflect.String:
		return KindString
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return KindInt
	case reflect.Float32, reflect.Float64:
		return KindFloat
	case reflect.Bool:
		return KindBool
	default:
		return KindAny
	}
}

// Property describes one persisted field of an entity type.
type Property struct {
	Name     string       // persisted property name
	Field    string       // Go field name
	Type     reflect.Type // declared field type, pointer included
	Kind     Kind
	Ptr      bool
	Identity bool
	Version  bool
	Indexed  bool
	Assoc    string // target family for association properties, "" otherwise

	index int // struct field index
}

// PersistentEntity holds the mapping between a Go struct type and the
// records of one store family.
type PersistentEntity struct {
	Name       string
	Family     string
	Type       reflect.Type // struct type, never a pointer
	Identity   *Property
	Version    *Property // nil when the entity is unversioned
	Properties []*Property

	indexed []*Property
	assocs  []*Property
	byName  map[string]*Property
}

// Property returns the property with the given persisted name.
func (m *PersistentEntity) Property(name string) (*Property, bool) {
	p, ok := m.byName[name]
	return p, ok
}

// Indexed returns the properties flagged for secondary index maintenance.
func (m *PersistentEntity) Indexed() []*Property {
	return m.indexed
}

// Associations returns the key list properties that reference other families.
func (m *PersistentEntity) Associations() []*Property {
	return m.assocs
}

// Versioned reports whether the entity carries an optimistic version property.
func (m *PersistentEntity) Versioned() bool {
	return m.Version != nil
}

// Describe builds the persistence mapping for a struct type. Fields are
// persisted under their Go names unless a `store` tag renames them. Tag
// options follow the field name: "id", "version", "index", "assoc=<family>"
// and "-" to skip the field entirely.
func Describe(t reflect.Type, family string) (*PersistentEntity, error) {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, storeerrors.NewValidationError("", fmt.Sprintf("entity type %s is not a struct", t))
	}
	if family == "" {
		return nil, storeerrors.NewValidationError("", fmt.Sprintf("entity type %s has no family", t))
	}

	m := &PersistentEntity{
		Name:   t.Name(),
		Family: family,
		Type:   t,
		byName: make(map[string]*Property),
	}

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || f.Anonymous {
			continue
		}

		name, opts := parseTag(f.Tag.Get("store"))
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}

		ft := f.Type
		ptr := false
		if ft.Kind() == reflect.Ptr {
			ptr = true
			ft = ft.Elem()
		}

		p := &Property{
			Name:  name,
			Field: f.Name,
			Type:  f.Type,
			Kind:  kindOf(ft),
			Ptr:   ptr,
			index: i,
		}

		for _, opt := range opts {
			switch {
			case opt == "id":
				p.Identity = true
			case opt == "version":
				p.Version = true
			case opt == "index":
				p.Indexed = true
			case strings.HasPrefix(opt, "assoc="):
				p.Assoc = strings.TrimPrefix(opt, "assoc=")
			case opt == "":
			default:
				return nil, storeerrors.NewValidationError(f.Name, fmt.Sprintf("unknown store tag option %q", opt))
			}
		}

		if p.Assoc != "" {
			if ptr || ft.Kind() != reflect.Slice {
				return nil, storeerrors.NewValidationError(f.Name, "association property must be a slice of keys")
			}
			switch kindOf(ft.Elem()) {
			case KindString, KindInt:
				p.Kind = KindKeyList
			default:
				return nil, storeerrors.NewValidationError(f.Name, "association keys must be strings or integers")
			}
		}

		if p.Identity {
			if m.Identity != nil {
				return nil, storeerrors.NewValidationError(f.Name, "entity has more than one identity property")
			}
			if ptr {
				return nil, storeerrors.NewValidationError(f.Name, "identity property cannot be a pointer")
			}
			switch p.Kind {
			case KindString, KindInt:
			default:
				return nil, storeerrors.NewValidationError(f.Name, "identity property must be a string or integer")
			}
			m.Identity = p
		}
		if p.Version {
			if m.Version != nil {
				return nil, storeerrors.NewValidationError(f.Name, "entity has more than one version property")
			}
			if p.Kind != KindInt || ptr {
				return nil, storeerrors.NewValidationError(f.Name, "version property must be a non-pointer integer")
			}
			m.Version = p
		}

		if _, exists := m.byName[name]; exists {
			return nil, storeerrors.NewValidationError(f.Name, fmt.Sprintf("duplicate property name %q", name))
		}
		m.byName[name] = p
		m.Properties = append(m.Properties, p)
		if p.Indexed {
			m.indexed = append(m.indexed, p)
		}
		if p.Assoc != "" {
			m.assocs = append(m.assocs, p)
		}
	}

	if m.Identity == nil {
		return nil, storeerrors.NewValidationError("", fmt.Sprintf("entity type %s has no identity property", t))
	}
	return m, nil
}

func parseTag(tag string) (string, []string) {
	if tag == "" {
		return "", nil
	}
	parts := strings.Split(tag, ",")
	return strings.TrimSpace(parts[0]), parts[1:]
}
