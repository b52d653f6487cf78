package weaviate

import (
	"context"
	"fmt"
	"time"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
	"lookout/internal/index"
	"lookout/internal/vector"
)

type Store struct {
	client *weaviate.Client
}

func NewStore(client *weaviate.Client) *Store {
	return &Store{client: client}
}

func (s *Store) UpsertPoints(ctx context.Context, points []index.Point) error {
	if len(points) == 0 {
		return nil
	}

	objects := make([]*models.Object, 0, len(points))
	for _, p := range points {
		objects = append(objects, &models.Object{
			Class: vector.ClassName,
			Properties: map[string]interface{}{
				"text":      p.Text,
				"url":       p.SourceURL,
				"title":     p.Title,
				"queryId":   p.QueryID,
				"createdAt": p.CreatedAt.UTC().Format(time.RFC3339),
			},
			Vector: p.Vector,
		})
	}

	res, err := s.client.Batch().ObjectsBatcher().
		WithObjects(objects...).
		Do(ctx)
	if err != nil {
		return err
	}

	for _, obj := range res {
		if obj.Result != nil && obj.Result.Errors != nil && len(obj.Result.Errors.Error) > 0 {
			return fmt.Errorf("batch insert: %s", obj.Result.Errors.Error[0].Message)
		}
	}
	return nil
}

func (s *Store) Search(ctx context.Context, queryVector []float32, queryID string, limit int) ([]index.RetrievedChunk, error) {
	nearVector := s.client.GraphQL().NearVectorArgBuilder().
		WithVector(queryVector)

	where := filters.Where().
		WithPath([]string{"queryId"}).
		WithOperator(filters.Equal).
		WithValueString(queryID)

	fields := []graphql.Field{
		{Name: "text"},
		{Name: "url"},
		{Name: "title"},
		{Name: "queryId"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "certainty"}}},
	}

	res, err := s.client.GraphQL().Get().
		WithClassName(vector.ClassName).
		WithNearVector(nearVector).
		WithWhere(where).
		WithLimit(limit).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors[0].Message)
	}

	var hits []index.RetrievedChunk
	data, ok := res.Data["Get"].(map[string]interface{})
	if !ok {
		return hits, nil
	}
	raw, ok := data[vector.ClassName].([]interface{})
	if !ok {
		return hits, nil
	}

	for _, r := range raw {
		props, ok := r.(map[string]interface{})
		if !ok {
			continue
		}
		hit := index.RetrievedChunk{}
		if text, ok := props["text"].(string); ok {
			hit.Text = text
		}
		if url, ok := props["url"].(string); ok {
			hit.SourceURL = url
		}
		if title, ok := props["title"].(string); ok {
			hit.Title = title
		}
		if qid, ok := props["queryId"].(string); ok {
			hit.QueryID = qid
		}
		if additional, ok := props["_additional"].(map[string]interface{}); ok {
			// Certainty arrives as a JSON number but older server versions
			// stringify additional fields.
			if certainty, ok := additional["certainty"].(float64); ok {
				hit.Score = float32(certainty)
			} else if certainty, ok := additional["certainty"].(string); ok {
				var f float64
				fmt.Sscanf(certainty, "%f", &f)
				hit.Score = float32(f)
			}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	res, err := s.client.GraphQL().Aggregate().
		WithClassName(vector.ClassName).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return 0, err
	}
	if len(res.Errors) > 0 {
		return 0, fmt.Errorf("graphql error: %v", res.Errors[0].Message)
	}

	if data, ok := res.Data["Aggregate"].(map[string]interface{}); ok {
		if agg, ok := data[vector.ClassName].([]interface{}); ok && len(agg) > 0 {
			if entry, ok := agg[0].(map[string]interface{}); ok {
				if meta, ok := entry["meta"].(map[string]interface{}); ok {
					if count, ok := meta["count"].(float64); ok {
						return int(count), nil
					}
				}
			}
		}
	}
	return 0, fmt.Errorf("aggregate response missing meta count")
}

func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	where := filters.Where().
		WithPath([]string{"createdAt"}).
		WithOperator(filters.LessThan).
		WithValueDate(cutoff.UTC())

	res, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(vector.ClassName).
		WithOutput("minimal").
		WithWhere(where).
		Do(ctx)
	if err != nil {
		return 0, err
	}
	if res == nil || res.Results == nil {
		return 0, nil
	}
	return int(res.Results.Successful), nil
}
