/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package dynamo

import (
	"context"
	"fmt"

	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/storekit/adapter"
	"github.com/suparena/storekit/entity"
	storeerrors "github.com/suparena/storekit/errors"
)

// BatchWriteItem accepts at most 25 write requests per call.
const maxBatchWrites = 25

// WriteBatch puts staged records through BatchWriteItem in chunks.
// DynamoDB acknowledges every write, so the concern argument carries no
// extra levels here and is ignored. Records the service does not accept
// are reported through a BatchError naming their keys.
func (a *Adapter) WriteBatch(ctx context.Context, family string, writes []adapter.PendingWrite[Entry, string], wc adapter.WriteConcern) error {
	if len(writes) == 0 {
		return nil
	}

	ref := make(map[string]string, len(writes))
	reqs := make([]types.WriteRequest, 0, len(writes))
	for _, w := range writes {
		item, err := a.itemFor(w.Meta, w.Entry)
		if err != nil {
			return err
		}
		ref[refKey(item)] = w.Key
		reqs = append(reqs, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
	}

	rest, err := a.flushRequests(ctx, reqs)
	if err == nil && len(rest) == 0 {
		return nil
	}
	if err == nil {
		err = fmt.Errorf("store did not accept %d records", len(rest))
	}
	return storeerrors.NewBatchError(family, unprocessedKeys(ref, rest), err)
}

// DeleteEntries removes items through BatchWriteItem in chunks. Keys the
// service does not accept are reported through a BatchError.
func (a *Adapter) DeleteEntries(ctx context.Context, meta *entity.PersistentEntity, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	pattern := a.pattern(meta)
	ref := make(map[string]string, len(keys))
	reqs := make([]types.WriteRequest, 0, len(keys))
	for _, key := range keys {
		pk, sk := pattern.expandKey(key)
		attrs, err := keyAttributes(pk, sk)
		if err != nil {
			return err
		}
		ref[refKey(attrs)] = key
		reqs = append(reqs, types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: attrs}})
	}

	rest, err := a.flushRequests(ctx, reqs)
	if err == nil && len(rest) == 0 {
		return nil
	}
	if err == nil {
		err = fmt.Errorf("store did not accept %d deletes", len(rest))
	}
	return storeerrors.NewBatchError(meta.Family, unprocessedKeys(ref, rest), err)
}

// flushRequests sends write requests in chunks of the service limit and
// returns the requests that were not applied: the ones the service
// reported unprocessed plus, after a failed call, everything not yet
// attempted.
func (a *Adapter) flushRequests(ctx context.Context, reqs []types.WriteRequest) ([]types.WriteRequest, error) {
	var unprocessed []types.WriteRequest
	for start := 0; start < len(reqs); start += maxBatchWrites {
		end := min(start+maxBatchWrites, len(reqs))
		out, err := a.client.BatchWriteItem(ctx, &sdk.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{a.table: reqs[start:end]},
		})
		if err != nil {
			unprocessed = append(unprocessed, reqs[start:]...)
			return unprocessed, err
		}
		if rest := out.UnprocessedItems[a.table]; len(rest) > 0 {
			unprocessed = append(unprocessed, rest...)
		}
	}
	return unprocessed, nil
}

// unprocessedKeys maps write requests back to the caller's keys through
// the PK/SK pairs recorded when the requests were built.
func unprocessedKeys(ref map[string]string, reqs []types.WriteRequest) []string {
	keys := make([]string, 0, len(reqs))
	for _, r := range reqs {
		var attrs map[string]types.AttributeValue
		switch {
		case r.PutRequest != nil:
			attrs = r.PutRequest.Item
		case r.DeleteRequest != nil:
			attrs = r.DeleteRequest.Key
		default:
			continue
		}
		if key, ok := ref[refKey(attrs)]; ok {
			keys = append(keys, key)
		}
	}
	return keys
}

func refKey(attrs map[string]types.AttributeValue) string {
	pk, _ := stringifyAttr(attrs[attrPK])
	sk, _ := stringifyAttr(attrs[attrSK])
	return pk + "\x00" + sk
}
