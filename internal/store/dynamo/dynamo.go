// Package dynamo runs access predicates against DynamoDB: GetItem by id, Query on a
// global secondary index with a key condition and filter, paginated Scan.
package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/frahmantamala/salescrm/internal/core/predicate"
	"github.com/frahmantamala/salescrm/internal/store"
)

// API is the subset of the DynamoDB client the store calls.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	ListTables(ctx context.Context, params *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error)
}

type Store struct {
	client API
	prefix string
}

func New(client API, tablePrefix string) *Store {
	return &Store{client: client, prefix: tablePrefix}
}

// Connect builds a client from the default AWS credential chain. A non-empty endpoint
// points the client at a local emulator.
func Connect(ctx context.Context, region, endpoint, tablePrefix string) (*Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return New(client, tablePrefix), nil
}

func (s *Store) table(name string) *string {
	return aws.String(s.prefix + name)
}

func (s *Store) Get(ctx context.Context, table, id string) (store.Item, error) {
	key, err := attributevalue.MarshalMap(map[string]any{store.KeyAttr: id})
	if err != nil {
		return nil, fmt.Errorf("encode key %s/%s: %w", table, id, err)
	}
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: s.table(table),
		Key:       key,
	})
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", table, id, err)
	}
	if len(out.Item) == 0 {
		return nil, fmt.Errorf("get %s/%s: %w", table, id, store.ErrNotFound)
	}
	var item store.Item
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", table, id, err)
	}
	return item, nil
}

func (s *Store) Put(ctx context.Context, table string, item store.Item) error {
	if item.ID() == "" {
		return fmt.Errorf("put into %s: %w", table, store.ErrMissingKey)
	}
	av, err := attributevalue.MarshalMap(map[string]any(item))
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", table, item.ID(), err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{TableName: s.table(table), Item: av}); err != nil {
		return fmt.Errorf("put %s/%s: %w", table, item.ID(), err)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, in store.QueryInput) ([]store.Item, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	key, err := predicate.RenderDynamo(in.KeyCondition)
	if err != nil {
		return nil, fmt.Errorf("render key condition for %s: %w", in.Table, err)
	}
	filter, err := predicate.RenderDynamo(in.Filter)
	if err != nil {
		return nil, fmt.Errorf("render filter for %s: %w", in.Table, err)
	}
	names, values, err := predicate.MergeDynamo(key, filter)
	if err != nil {
		return nil, fmt.Errorf("merge expressions for %s: %w", in.Table, err)
	}
	av, err := attributevalue.MarshalMap(values)
	if err != nil {
		return nil, fmt.Errorf("encode values for %s: %w", in.Table, err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 s.table(in.Table),
		KeyConditionExpression:    aws.String(key.Expression),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: av,
	}
	if in.Index != "" {
		input.IndexName = aws.String(in.Index)
	}
	if !filter.Empty() {
		input.FilterExpression = aws.String(filter.Expression)
	}

	var items []store.Item
	paginator := dynamodb.NewQueryPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", in.Table, err)
		}
		if items, err = appendPage(items, page.Items); err != nil {
			return nil, fmt.Errorf("decode %s: %w", in.Table, err)
		}
	}
	return nonNil(items), nil
}

func (s *Store) Scan(ctx context.Context, in store.ScanInput) ([]store.Item, error) {
	filter, err := predicate.RenderDynamo(in.Filter)
	if err != nil {
		return nil, fmt.Errorf("render filter for %s: %w", in.Table, err)
	}

	input := &dynamodb.ScanInput{TableName: s.table(in.Table)}
	if !filter.Empty() {
		av, err := attributevalue.MarshalMap(filter.Values)
		if err != nil {
			return nil, fmt.Errorf("encode values for %s: %w", in.Table, err)
		}
		input.FilterExpression = aws.String(filter.Expression)
		input.ExpressionAttributeNames = filter.Names
		if len(av) > 0 {
			input.ExpressionAttributeValues = av
		}
	}

	var items []store.Item
	paginator := dynamodb.NewScanPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", in.Table, err)
		}
		if items, err = appendPage(items, page.Items); err != nil {
			return nil, fmt.Errorf("decode %s: %w", in.Table, err)
		}
	}
	return nonNil(items), nil
}

func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.ListTables(ctx, &dynamodb.ListTablesInput{Limit: aws.Int32(1)})
	return err
}

func appendPage(items []store.Item, page []map[string]types.AttributeValue) ([]store.Item, error) {
	for _, raw := range page {
		var item store.Item
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func nonNil(items []store.Item) []store.Item {
	if items == nil {
		return []store.Item{}
	}
	return items
}
