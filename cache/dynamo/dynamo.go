// Package dynamo backs the matrix element cache with a DynamoDB table.
// Conditional writes give the insert-if-absent semantics natively, which
// makes it a good coordination point for fleets of spot workers.
package dynamo

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/pairspec/pairspec/cache"
)

// Client is the subset of the DynamoDB API the store uses. *dynamodb.Client
// satisfies it; tests substitute an in-memory fake.
type Client interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

var errKeyMismatch = errors.New("dynamo: record key mismatch")

// Store implements cache.Store on a DynamoDB table keyed by the content
// digest.
//
// Table schema:
//   - Partition key: digest (string) - hex SHA-256 of the cache key
//   - Attribute: record (binary) - the encoded record
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name pairspec-elements \
//	  --attribute-definitions AttributeName=digest,AttributeType=S \
//	  --key-schema AttributeName=digest,KeyType=HASH \
//	  --billing-mode PAY_PER_REQUEST
type Store struct {
	client Client
	table  string
}

// NewStore creates a DynamoDB-backed store on the given table.
func NewStore(client Client, table string) *Store {
	return &Store{client: client, table: table}
}

func digestAttr(key cache.Key) *types.AttributeValueMemberS {
	digest := key.Digest()
	return &types.AttributeValueMemberS{Value: hex.EncodeToString(digest[:])}
}

// Load implements cache.Store.
func (s *Store) Load(ctx context.Context, key cache.Key) (float64, bool, error) {
	resp, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"digest": digestAttr(key),
		},
	})
	if err != nil {
		return 0, false, fmt.Errorf("dynamo: get item: %w", err)
	}
	if len(resp.Item) == 0 {
		return 0, false, nil
	}

	recordAttr, ok := resp.Item["record"].(*types.AttributeValueMemberB)
	if !ok {
		return 0, false, errors.New("dynamo: missing record attribute")
	}
	gotKey, value, _, err := cache.DecodeRecord(recordAttr.Value)
	if err != nil {
		return 0, false, err
	}
	if gotKey != key {
		return 0, false, errKeyMismatch
	}
	return value, true, nil
}

// Insert implements cache.Store. The conditional put only succeeds for a
// new digest; a failed condition means another writer won the race.
func (s *Store) Insert(ctx context.Context, key cache.Key, value float64) error {
	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item: map[string]types.AttributeValue{
			"digest": digestAttr(key),
			"record": &types.AttributeValueMemberB{Value: cache.EncodeRecord(key, value)},
		},
		ConditionExpression: aws.String("attribute_not_exists(digest)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return nil
		}
		return fmt.Errorf("dynamo: put item: %w", err)
	}
	return nil
}

// Close implements cache.Store. The DynamoDB client is owned by the caller.
func (s *Store) Close() error {
	return nil
}
