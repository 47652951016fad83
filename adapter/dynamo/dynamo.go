/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package dynamo provides an EntryAdapter over one AWS DynamoDB table in
// the single-table layout: every record carries PK and SK attributes
// derived from a per-family key pattern, and secondary access paths are
// served by global secondary indexes rather than managed index records.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/suparena/storekit/adapter"
	"github.com/suparena/storekit/entity"
	storeerrors "github.com/suparena/storekit/errors"
)

// Entry is the native representation of this backend: a DynamoDB item.
type Entry = map[string]types.AttributeValue

// Key is the key type of this backend.
type Key = string

var (
	_ adapter.EntryAdapter[Entry, Key] = (*Adapter)(nil)
	_ adapter.BatchWriter[Entry, Key]  = (*Adapter)(nil)
	_ adapter.Pinger                   = (*Adapter)(nil)
)

// Adapter stores records as items of one DynamoDB table. Version checks
// ride on condition expressions, so they are atomic on the service side.
type Adapter struct {
	client *sdk.Client
	table  string

	mu       sync.RWMutex
	patterns map[string]KeyPattern
}

// NewClient builds a DynamoDB client, using static credentials when
// accessKey is set and the default AWS credential chain otherwise.
func NewClient(ctx context.Context, accessKey, secretKey, region string) (*sdk.Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if accessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return sdk.NewFromConfig(cfg), nil
}

// New builds an adapter over an existing client and table.
func New(client *sdk.Client, table string) *Adapter {
	return &Adapter{
		client:   client,
		table:    table,
		patterns: make(map[string]KeyPattern),
	}
}

// RegisterKeyPattern sets the key templates for one family. Families
// without a registered pattern use FAMILY#<identity> for both keys.
func (a *Adapter) RegisterKeyPattern(family string, p KeyPattern) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.patterns[family] = p
}

func (a *Adapter) pattern(meta *entity.PersistentEntity) KeyPattern {
	a.mu.RLock()
	p, ok := a.patterns[meta.Family]
	a.mu.RUnlock()
	if !ok {
		return defaultPattern(meta)
	}
	return p
}

// Ping verifies the table is reachable.
func (a *Adapter) Ping(ctx context.Context) error {
	if _, err := a.client.DescribeTable(ctx, &sdk.DescribeTableInput{TableName: aws.String(a.table)}); err != nil {
		return storeError("ping", a.table, err)
	}
	return nil
}

// RetrieveEntry loads the item addressed by key.
func (a *Adapter) RetrieveEntry(ctx context.Context, meta *entity.PersistentEntity, key string) (Entry, bool, error) {
	pk, sk := a.pattern(meta).expandKey(key)
	attrs, err := keyAttributes(pk, sk)
	if err != nil {
		return nil, false, err
	}

	out, err := a.client.GetItem(ctx, &sdk.GetItemInput{
		TableName: aws.String(a.table),
		Key:       attrs,
	})
	if err != nil {
		return nil, false, storeError("retrieve", meta.Family, err)
	}
	if out.Item == nil {
		return nil, false, nil
	}
	return out.Item, true, nil
}

// StoreEntry puts a new item, conditioned on the key slot being empty.
func (a *Adapter) StoreEntry(ctx context.Context, meta *entity.PersistentEntity, key string, entry Entry) (string, error) {
	item, err := a.itemFor(meta, entry)
	if err != nil {
		return "", err
	}

	_, err = a.client.PutItem(ctx, &sdk.PutItemInput{
		TableName:           aws.String(a.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return "", storeerrors.NewAlreadyExistsError(meta.Family, key)
		}
		return "", storeError("store", meta.Family, err)
	}
	return key, nil
}

// UpdateEntry replaces the item addressed by key. The condition
// expression requires the item to exist and, when a prior version is
// given, to still carry it; a failed condition is resolved by a second
// read into either a NotFoundError or an OptimisticLockError.
func (a *Adapter) UpdateEntry(ctx context.Context, meta *entity.PersistentEntity, key string, entry Entry, prior int64) error {
	item, err := a.itemFor(meta, entry)
	if err != nil {
		return err
	}

	input := &sdk.PutItemInput{
		TableName: aws.String(a.table),
		Item:      item,
	}

	versioned := meta.Versioned() && prior > 0
	if versioned {
		input.ConditionExpression = aws.String("attribute_exists(PK) AND #v = :prior")
		input.ExpressionAttributeNames = map[string]string{"#v": meta.Version.Name}
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":prior": &types.AttributeValueMemberN{Value: strconv.FormatInt(prior, 10)},
		}
	} else {
		input.ConditionExpression = aws.String("attribute_exists(PK)")
	}

	_, err = a.client.PutItem(ctx, input)
	if err == nil {
		return nil
	}
	var cfe *types.ConditionalCheckFailedException
	if !errors.As(err, &cfe) {
		return storeError("update", meta.Family, err)
	}
	if !versioned {
		return storeerrors.NewNotFoundError(meta.Family, key)
	}

	// The condition failed on existence or version. Read the item back to
	// tell the two apart.
	stored, found, rerr := a.RetrieveEntry(ctx, meta, key)
	if rerr != nil {
		return rerr
	}
	if !found {
		return storeerrors.NewNotFoundError(meta.Family, key)
	}
	raw, gerr := a.GetEntryValue(stored, meta.Version)
	if gerr != nil {
		return gerr
	}
	foundVer, _ := raw.(int64)
	return storeerrors.NewOptimisticLockError(meta.Family, key, prior, foundVer)
}

// DeleteEntry removes the item addressed by key. Absent items are a
// no-op.
func (a *Adapter) DeleteEntry(ctx context.Context, meta *entity.PersistentEntity, key string) error {
	pk, sk := a.pattern(meta).expandKey(key)
	attrs, err := keyAttributes(pk, sk)
	if err != nil {
		return err
	}

	_, err = a.client.DeleteItem(ctx, &sdk.DeleteItemInput{
		TableName: aws.String(a.table),
		Key:       attrs,
	})
	if err != nil {
		return storeError("delete", meta.Family, err)
	}
	return nil
}

// GenerateIdentifier returns a UUID key.
func (a *Adapter) GenerateIdentifier(ctx context.Context, meta *entity.PersistentEntity) (string, error) {
	return newUUID(), nil
}

// itemFor merges the record with the PK and SK attributes its family's
// key pattern derives from it.
func (a *Adapter) itemFor(meta *entity.PersistentEntity, entry Entry) (Entry, error) {
	pk, sk, err := a.pattern(meta).expandEntry(entry)
	if err != nil {
		return nil, err
	}
	if pk == "" || sk == "" {
		return nil, storeerrors.NewValidationError("", "expanded key pattern has an empty PK or SK")
	}

	item := make(Entry, len(entry)+2)
	for k, v := range entry {
		item[k] = v
	}
	item[attrPK] = &types.AttributeValueMemberS{Value: pk}
	item[attrSK] = &types.AttributeValueMemberS{Value: sk}
	return item, nil
}

// storeError normalizes an SDK failure, surfacing the service error code
// when one is present.
func storeError(op, family string, err error) error {
	var api smithy.APIError
	if errors.As(err, &api) {
		return storeerrors.NewStoreAccessError(op, family, fmt.Errorf("%s: %s", api.ErrorCode(), api.ErrorMessage()))
	}
	return storeerrors.NewStoreAccessError(op, family, err)
}
