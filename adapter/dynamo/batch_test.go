/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package dynamo

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/storekit/adapter"
)

func TestUnprocessedKeys(t *testing.T) {
	ref := map[string]string{
		"ACCOUNTS#a-1" + "\x00" + "ACCOUNTS#a-1": "a-1",
		"ACCOUNTS#a-2" + "\x00" + "ACCOUNTS#a-2": "a-2",
		"ACCOUNTS#a-3" + "\x00" + "ACCOUNTS#a-3": "a-3",
	}

	item := func(key string) map[string]types.AttributeValue {
		v := "ACCOUNTS#" + key
		return map[string]types.AttributeValue{
			attrPK: &types.AttributeValueMemberS{Value: v},
			attrSK: &types.AttributeValueMemberS{Value: v},
		}
	}

	reqs := []types.WriteRequest{
		{PutRequest: &types.PutRequest{Item: item("a-1")}},
		{DeleteRequest: &types.DeleteRequest{Key: item("a-3")}},
	}

	keys := unprocessedKeys(ref, reqs)
	if len(keys) != 2 || keys[0] != "a-1" || keys[1] != "a-3" {
		t.Errorf("Expected [a-1 a-3], got %v", keys)
	}
}

func TestUnprocessedKeysUnknownRequest(t *testing.T) {
	reqs := []types.WriteRequest{
		{PutRequest: &types.PutRequest{Item: map[string]types.AttributeValue{
			attrPK: &types.AttributeValueMemberS{Value: "X"},
			attrSK: &types.AttributeValueMemberS{Value: "X"},
		}}},
	}

	keys := unprocessedKeys(map[string]string{}, reqs)
	if len(keys) != 0 {
		t.Errorf("Expected no keys for unknown requests, got %v", keys)
	}
}

func TestWriteBatchEmpty(t *testing.T) {
	a := New(nil, "test-table")
	if err := a.WriteBatch(context.Background(), "accounts", nil, adapter.Acknowledged); err != nil {
		t.Errorf("Expected nil for an empty batch, got %v", err)
	}
}

func TestDeleteEntriesEmpty(t *testing.T) {
	a := New(nil, "test-table")
	meta := accountMeta(t)
	if err := a.DeleteEntries(context.Background(), meta, nil); err != nil {
		t.Errorf("Expected nil for an empty key list, got %v", err)
	}
}
