/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package dynamo

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/storekit/entity"
	storeerrors "github.com/suparena/storekit/errors"
)

// Item attribute names of the table's composite primary key.
const (
	attrPK = "PK"
	attrSK = "SK"
)

// KeyPattern holds the partition and sort key templates of one family.
// Templates name record properties in braces, "USERS#{ID}", and may
// combine several: "EVENT#{EventID}#DATE#{Start}".
type KeyPattern struct {
	PK string
	SK string
}

var macroPattern = regexp.MustCompile(`\{([^}]+)\}`)

// defaultPattern is the single-table convention for families without a
// registered pattern: FAMILY#<identity> for both keys.
func defaultPattern(meta *entity.PersistentEntity) KeyPattern {
	t := strings.ToUpper(meta.Family) + "#{" + meta.Identity.Name + "}"
	return KeyPattern{PK: t, SK: t}
}

// expandEntry resolves the pattern's macros against record attributes.
func (kp KeyPattern) expandEntry(entry Entry) (pk, sk string, err error) {
	pk, err = expandTemplate(kp.PK, entry)
	if err != nil {
		return "", "", err
	}
	sk, err = expandTemplate(kp.SK, entry)
	if err != nil {
		return "", "", err
	}
	return pk, sk, nil
}

// expandKey substitutes the caller's key for every macro. This addresses
// a record by key alone, so it only matches patterns whose macros all
// stand for the identity.
func (kp KeyPattern) expandKey(key string) (pk, sk string) {
	return macroPattern.ReplaceAllString(kp.PK, key), macroPattern.ReplaceAllString(kp.SK, key)
}

func expandTemplate(template string, entry Entry) (string, error) {
	var missing string
	out := macroPattern.ReplaceAllStringFunc(template, func(macro string) string {
		name := strings.Trim(macro, "{}")
		av, ok := entry[name]
		if !ok {
			missing = name
			return ""
		}
		s, ok := stringifyAttr(av)
		if !ok {
			missing = name
			return ""
		}
		return s
	})
	if missing != "" {
		return "", storeerrors.NewConversionError(missing, nil, "key pattern", "record has no usable value for macro")
	}
	return out, nil
}

// stringifyAttr renders a scalar attribute for use inside a key string.
// Non-scalar attributes cannot take part in a key.
func stringifyAttr(av types.AttributeValue) (string, bool) {
	switch tv := av.(type) {
	case *types.AttributeValueMemberS:
		return tv.Value, true
	case *types.AttributeValueMemberN:
		return tv.Value, true
	case *types.AttributeValueMemberBOOL:
		return fmt.Sprintf("%v", tv.Value), true
	default:
		return "", false
	}
}

func keyAttributes(pk, sk string) (map[string]types.AttributeValue, error) {
	if pk == "" || sk == "" {
		return nil, storeerrors.NewValidationError("", "expanded key pattern has an empty PK or SK")
	}
	return map[string]types.AttributeValue{
		attrPK: &types.AttributeValueMemberS{Value: pk},
		attrSK: &types.AttributeValueMemberS{Value: sk},
	}, nil
}
