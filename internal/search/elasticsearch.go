package search

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/fieldservice/config"
	"example.com/backstage/services/fieldservice/internal/model"
)

// Indexer pushes service orders into the search index
type Indexer interface {
	IndexOrder(ctx context.Context, order *model.ServiceOrder) error
	SearchOrders(ctx context.Context, query map[string]interface{}) ([]map[string]interface{}, error)
}

// ElasticClient provides integration with Elasticsearch
type ElasticClient struct {
	client  *elasticsearch.Client
	config  config.ElasticConfig
	enabled bool
}

// NewElasticClient creates a new Elasticsearch client. A disabled config
// yields a no-op client so callers never branch.
func NewElasticClient(cfg config.ElasticConfig) (*ElasticClient, error) {
	if !cfg.Enabled {
		return &ElasticClient{config: cfg, enabled: false}, nil
	}

	esConfig := elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	}

	client, err := elasticsearch.NewClient(esConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Elasticsearch client")
	}

	return &ElasticClient{
		client:  client,
		config:  cfg,
		enabled: true,
	}, nil
}

// IndexOrder indexes a service order in Elasticsearch
func (c *ElasticClient) IndexOrder(ctx context.Context, order *model.ServiceOrder) error {
	if !c.enabled {
		return nil
	}

	log.Info().Str("order_id", order.UUID).Msg("indexing service order")

	// Build the document to be indexed
	orderDoc := map[string]interface{}{
		"id":             order.UUID,
		"number":         order.Number,
		"state":          order.State,
		"priority":       order.Priority,
		"customer_id":    order.CustomerID,
		"equipment_id":   order.EquipmentID,
		"reported_fault": order.ReportedFault,
		"diagnosis":      order.Diagnosis,
		"work_performed": order.WorkPerformed,
		"total_amount":   order.TotalAmount,
		"created_at":     order.CreatedAt,
	}
	if order.TechnicianID != nil {
		orderDoc["technician_id"] = *order.TechnicianID
	}
	if order.ScheduledAt != nil {
		orderDoc["scheduled_at"] = *order.ScheduledAt
	}
	if order.Customer != nil {
		orderDoc["customer_name"] = order.Customer.Name
	}
	if order.Equipment != nil {
		orderDoc["equipment_code"] = order.Equipment.Code
		orderDoc["equipment_type"] = order.Equipment.EquipmentType
	}

	// Marshall the document to JSON
	docJson, err := json.Marshal(orderDoc)
	if err != nil {
		return errors.Wrap(err, "failed to marshal order document")
	}

	// Prepare the index request
	indexName := config.FormatIndex(c.config, c.config.Index)
	req := esapi.IndexRequest{
		Index:      indexName,
		DocumentID: order.UUID,
		Body:       bytes.NewReader(docJson),
		Refresh:    "true",
	}

	// Execute the request
	res, err := req.Do(ctx, c.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch index request")
	}
	defer res.Body.Close()

	// Check for errors in the response
	if res.IsError() {
		var e map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
			return errors.Wrap(err, "failed to parse Elasticsearch error response")
		}
		return errors.Errorf("Elasticsearch index error: %v", e)
	}

	log.Info().Str("order_id", order.UUID).Msg("service order indexed successfully")
	return nil
}

// SearchOrders searches for service orders with the given criteria
func (c *ElasticClient) SearchOrders(ctx context.Context, query map[string]interface{}) ([]map[string]interface{}, error) {
	if !c.enabled {
		return nil, errors.New("search is disabled")
	}

	// Convert query to JSON
	queryJSON, err := json.Marshal(query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal search query")
	}

	// Prepare the search request
	indexName := config.FormatIndex(c.config, c.config.Index)
	req := esapi.SearchRequest{
		Index: []string{indexName},
		Body:  bytes.NewReader(queryJSON),
	}

	// Execute the request
	res, err := req.Do(ctx, c.client)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute Elasticsearch search request")
	}
	defer res.Body.Close()

	// Check for errors in the response
	if res.IsError() {
		var e map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
			return nil, errors.Wrap(err, "failed to parse Elasticsearch error response")
		}
		return nil, errors.Errorf("Elasticsearch search error: %v", e)
	}

	// Parse the response
	var result map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, "failed to parse Elasticsearch search response")
	}

	// Extract the hits
	hits, ok := result["hits"].(map[string]interface{})
	if !ok {
		return nil, errors.New("unexpected search result format")
	}

	hitsArray, ok := hits["hits"].([]interface{})
	if !ok {
		return nil, errors.New("unexpected hits format")
	}

	// Extract the documents
	var docs []map[string]interface{}
	for _, hit := range hitsArray {
		hitMap, ok := hit.(map[string]interface{})
		if !ok {
			continue
		}

		source, ok := hitMap["_source"].(map[string]interface{})
		if !ok {
			continue
		}

		docs = append(docs, source)
	}

	return docs, nil
}
