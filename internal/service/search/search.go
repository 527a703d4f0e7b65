package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/todo_api/internal/models"
)

// Search runs a fuzzy full-text query over the todo index. ownerID > 0
// restricts hits to that owner; admins pass 0 to search everything.
func Search(ctx context.Context, es *elasticsearch.Client, index, query string, ownerID uint, from, size int) (int64, []models.Todo, error) {
	match := map[string]interface{}{
		"multi_match": map[string]interface{}{
			"query":     query,
			"fields":    []string{"title^2", "description"},
			"fuzziness": "AUTO",
		},
	}

	var q map[string]interface{}
	if ownerID > 0 {
		q = map[string]interface{}{
			"bool": map[string]interface{}{
				"must": match,
				"filter": map[string]interface{}{
					"term": map[string]interface{}{"user_id": ownerID},
				},
			},
		}
	} else {
		q = match
	}

	body := map[string]interface{}{
		"query": q,
		"from":  from,
		"size":  size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("search: encode query: %w", err)
	}

	res, err := es.Search(
		es.Search.WithContext(ctx),
		es.Search.WithIndex(index),
		es.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, nil, fmt.Errorf("search: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct{ Value int64 } `json:"total"`
			Hits  []struct {
				Source models.Todo `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, err
	}

	todos := make([]models.Todo, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		todos[i] = hit.Source
	}
	return r.Hits.Total.Value, todos, nil
}
