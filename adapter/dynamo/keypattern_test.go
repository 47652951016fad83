/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package dynamo

import (
	"reflect"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/storekit/entity"
	storeerrors "github.com/suparena/storekit/errors"
)

type account struct {
	ID    string `store:"ID,id"`
	Email string `store:"Email,index"`
	Score int64  `store:"Score"`
	Ver   int64  `store:"Ver,version"`
}

func accountMeta(t *testing.T) *entity.PersistentEntity {
	t.Helper()
	m, err := entity.Describe(reflect.TypeOf(account{}), "accounts")
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	return m
}

func TestDefaultPattern(t *testing.T) {
	meta := accountMeta(t)
	p := defaultPattern(meta)

	if p.PK != "ACCOUNTS#{ID}" || p.SK != "ACCOUNTS#{ID}" {
		t.Errorf("Expected ACCOUNTS#{ID} for both keys, got PK=%s SK=%s", p.PK, p.SK)
	}
}

func TestExpandEntry(t *testing.T) {
	p := KeyPattern{PK: "ACCOUNTS#{ID}", SK: "EMAIL#{Email}"}
	entry := Entry{
		"ID":    &types.AttributeValueMemberS{Value: "a-1"},
		"Email": &types.AttributeValueMemberS{Value: "a@example.com"},
	}

	pk, sk, err := p.expandEntry(entry)
	if err != nil {
		t.Fatalf("expandEntry failed: %v", err)
	}
	if pk != "ACCOUNTS#a-1" {
		t.Errorf("Expected PK ACCOUNTS#a-1, got %s", pk)
	}
	if sk != "EMAIL#a@example.com" {
		t.Errorf("Expected SK EMAIL#a@example.com, got %s", sk)
	}
}

func TestExpandEntryNumericMacro(t *testing.T) {
	p := KeyPattern{PK: "ACCOUNTS#{ID}", SK: "SCORE#{Score}"}
	entry := Entry{
		"ID":    &types.AttributeValueMemberS{Value: "a-1"},
		"Score": &types.AttributeValueMemberN{Value: "42"},
	}

	_, sk, err := p.expandEntry(entry)
	if err != nil {
		t.Fatalf("expandEntry failed: %v", err)
	}
	if sk != "SCORE#42" {
		t.Errorf("Expected SK SCORE#42, got %s", sk)
	}
}

func TestExpandEntryMissingMacro(t *testing.T) {
	p := KeyPattern{PK: "ACCOUNTS#{ID}", SK: "EMAIL#{Email}"}
	entry := Entry{
		"ID": &types.AttributeValueMemberS{Value: "a-1"},
	}

	_, _, err := p.expandEntry(entry)
	if !storeerrors.IsConversion(err) {
		t.Errorf("Expected ConversionError for missing macro value, got %v", err)
	}
}

func TestExpandEntryNonScalarMacro(t *testing.T) {
	p := KeyPattern{PK: "ACCOUNTS#{Tags}", SK: "ACCOUNTS#{Tags}"}
	entry := Entry{
		"Tags": &types.AttributeValueMemberL{Value: []types.AttributeValue{
			&types.AttributeValueMemberS{Value: "x"},
		}},
	}

	_, _, err := p.expandEntry(entry)
	if !storeerrors.IsConversion(err) {
		t.Errorf("Expected ConversionError for non-scalar macro value, got %v", err)
	}
}

func TestExpandKey(t *testing.T) {
	t.Run("SingleMacro", func(t *testing.T) {
		p := KeyPattern{PK: "ACCOUNTS#{ID}", SK: "ACCOUNTS#{ID}"}
		pk, sk := p.expandKey("a-1")
		if pk != "ACCOUNTS#a-1" || sk != "ACCOUNTS#a-1" {
			t.Errorf("Expected ACCOUNTS#a-1 for both keys, got PK=%s SK=%s", pk, sk)
		}
	})

	t.Run("EveryMacroGetsTheKey", func(t *testing.T) {
		p := KeyPattern{PK: "A#{ID}", SK: "B#{ID}#C#{ID}"}
		_, sk := p.expandKey("7")
		if sk != "B#7#C#7" {
			t.Errorf("Expected B#7#C#7, got %s", sk)
		}
	})
}

func TestKeyAttributes(t *testing.T) {
	attrs, err := keyAttributes("P", "S")
	if err != nil {
		t.Fatalf("keyAttributes failed: %v", err)
	}
	pk := attrs[attrPK].(*types.AttributeValueMemberS).Value
	sk := attrs[attrSK].(*types.AttributeValueMemberS).Value
	if pk != "P" || sk != "S" {
		t.Errorf("Expected P/S, got %s/%s", pk, sk)
	}

	if _, err := keyAttributes("", "S"); !storeerrors.IsValidation(err) {
		t.Errorf("Expected ValidationError for empty PK, got %v", err)
	}
}
