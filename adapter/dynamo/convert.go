/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package dynamo

import (
	"reflect"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/google/uuid"

	"github.com/suparena/storekit/entity"
	storeerrors "github.com/suparena/storekit/errors"
)

// CreateNewEntry returns an empty item.
func (a *Adapter) CreateNewEntry(meta *entity.PersistentEntity) Entry {
	return Entry{}
}

// GetEntryValue reads one property, converting the attribute back to its
// semantic type. NULL attributes read as absent.
func (a *Adapter) GetEntryValue(entry Entry, p *entity.Property) (any, error) {
	if entry == nil {
		return nil, storeerrors.NewConversionError(p.Name, nil, p.Kind.String(), "nil record")
	}
	av, ok := entry[p.Name]
	if !ok || av == nil {
		return nil, nil
	}
	if _, isNull := av.(*types.AttributeValueMemberNULL); isNull {
		return nil, nil
	}

	switch p.Kind {
	case entity.KindString:
		s, ok := av.(*types.AttributeValueMemberS)
		if !ok {
			return nil, storeerrors.NewConversionError(p.Name, av, "string", "attribute is not a string")
		}
		return s.Value, nil

	case entity.KindInt:
		n, ok := av.(*types.AttributeValueMemberN)
		if !ok {
			return nil, storeerrors.NewConversionError(p.Name, av, "int64", "attribute is not a number")
		}
		v, err := strconv.ParseInt(n.Value, 10, 64)
		if err != nil {
			return nil, storeerrors.NewConversionError(p.Name, n.Value, "int64", "attribute is not an integer")
		}
		return v, nil

	case entity.KindFloat:
		n, ok := av.(*types.AttributeValueMemberN)
		if !ok {
			return nil, storeerrors.NewConversionError(p.Name, av, "float64", "attribute is not a number")
		}
		v, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return nil, storeerrors.NewConversionError(p.Name, n.Value, "float64", "attribute is not a number")
		}
		return v, nil

	case entity.KindBool:
		b, ok := av.(*types.AttributeValueMemberBOOL)
		if !ok {
			return nil, storeerrors.NewConversionError(p.Name, av, "bool", "attribute is not a bool")
		}
		return b.Value, nil

	case entity.KindTime:
		s, ok := av.(*types.AttributeValueMemberS)
		if !ok {
			return nil, storeerrors.NewConversionError(p.Name, av, "time.Time", "attribute is not a timestamp string")
		}
		ts, err := time.Parse(time.RFC3339Nano, s.Value)
		if err != nil {
			return nil, storeerrors.NewConversionError(p.Name, s.Value, "time.Time", "not an RFC3339 timestamp")
		}
		return ts, nil

	case entity.KindBytes:
		b, ok := av.(*types.AttributeValueMemberB)
		if !ok {
			return nil, storeerrors.NewConversionError(p.Name, av, "bytes", "attribute is not binary")
		}
		out := make([]byte, len(b.Value))
		copy(out, b.Value)
		return out, nil

	case entity.KindKeyList:
		l, ok := av.(*types.AttributeValueMemberL)
		if !ok {
			return nil, storeerrors.NewConversionError(p.Name, av, "key list", "attribute is not a list")
		}
		return decodeKeyList(p, l.Value)

	default:
		var out any
		if err := attributevalue.Unmarshal(av, &out); err != nil {
			return nil, storeerrors.NewConversionError(p.Name, av, "any", "attribute cannot be unmarshaled")
		}
		return out, nil
	}
}

// SetEntryValue writes one property as a DynamoDB attribute.
func (a *Adapter) SetEntryValue(entry Entry, p *entity.Property, value any) error {
	if entry == nil {
		return storeerrors.NewConversionError(p.Name, value, p.Kind.String(), "nil record")
	}

	switch p.Kind {
	case entity.KindString:
		s, ok := value.(string)
		if !ok {
			return storeerrors.NewConversionError(p.Name, value, "string", "not a string")
		}
		entry[p.Name] = &types.AttributeValueMemberS{Value: s}

	case entity.KindInt:
		n, ok := asInt64(value)
		if !ok {
			return storeerrors.NewConversionError(p.Name, value, "int64", "not an integer")
		}
		entry[p.Name] = &types.AttributeValueMemberN{Value: strconv.FormatInt(n, 10)}

	case entity.KindFloat:
		f, ok := value.(float64)
		if !ok {
			return storeerrors.NewConversionError(p.Name, value, "float64", "not a number")
		}
		entry[p.Name] = &types.AttributeValueMemberN{Value: strconv.FormatFloat(f, 'f', -1, 64)}

	case entity.KindBool:
		b, ok := value.(bool)
		if !ok {
			return storeerrors.NewConversionError(p.Name, value, "bool", "not a bool")
		}
		entry[p.Name] = &types.AttributeValueMemberBOOL{Value: b}

	case entity.KindTime:
		ts, ok := value.(time.Time)
		if !ok {
			return storeerrors.NewConversionError(p.Name, value, "time.Time", "not a timestamp")
		}
		entry[p.Name] = &types.AttributeValueMemberS{Value: ts.Format(time.RFC3339Nano)}

	case entity.KindBytes:
		b, ok := value.([]byte)
		if !ok {
			return storeerrors.NewConversionError(p.Name, value, "bytes", "not a byte slice")
		}
		out := make([]byte, len(b))
		copy(out, b)
		entry[p.Name] = &types.AttributeValueMemberB{Value: out}

	case entity.KindKeyList:
		members, err := encodeKeyList(p, value)
		if err != nil {
			return err
		}
		entry[p.Name] = &types.AttributeValueMemberL{Value: members}

	default:
		av, err := attributevalue.Marshal(value)
		if err != nil {
			return storeerrors.NewConversionError(p.Name, value, "any", "value cannot be marshaled")
		}
		entry[p.Name] = av
	}
	return nil
}

func encodeKeyList(p *entity.Property, value any) ([]types.AttributeValue, error) {
	switch keys := value.(type) {
	case []string:
		members := make([]types.AttributeValue, len(keys))
		for i, k := range keys {
			members[i] = &types.AttributeValueMemberS{Value: k}
		}
		return members, nil
	case []int64:
		members := make([]types.AttributeValue, len(keys))
		for i, k := range keys {
			members[i] = &types.AttributeValueMemberN{Value: strconv.FormatInt(k, 10)}
		}
		return members, nil
	default:
		return nil, storeerrors.NewConversionError(p.Name, value, "key list", "not a key list")
	}
}

func decodeKeyList(p *entity.Property, members []types.AttributeValue) (any, error) {
	if p.Type.Elem().Kind() == reflect.String {
		keys := make([]string, 0, len(members))
		for _, m := range members {
			s, ok := m.(*types.AttributeValueMemberS)
			if !ok {
				return nil, storeerrors.NewConversionError(p.Name, m, "key list", "list member is not a string")
			}
			keys = append(keys, s.Value)
		}
		return keys, nil
	}
	keys := make([]int64, 0, len(members))
	for _, m := range members {
		n, ok := m.(*types.AttributeValueMemberN)
		if !ok {
			return nil, storeerrors.NewConversionError(p.Name, m, "key list", "list member is not a number")
		}
		v, err := strconv.ParseInt(n.Value, 10, 64)
		if err != nil {
			return nil, storeerrors.NewConversionError(p.Name, n.Value, "key list", "list member is not an integer")
		}
		keys = append(keys, v)
	}
	return keys, nil
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
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
