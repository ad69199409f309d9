// Package qdrant is a thin client for the Qdrant REST API. The engine
// needs four operations (ensure collection, upsert, delete by document,
// filtered search), so a hand-rolled JSON-over-HTTP client keeps the
// dependency surface small; filters go through the typed builder in
// filter.go rather than loose maps.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"athena/internal/domain/providers"
)

// DefaultTimeout bounds every Qdrant request.
const DefaultTimeout = 30 * time.Second

// Client talks to one Qdrant collection over REST.
type Client struct {
	baseURL    string
	collection string
	vectorSize int
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Qdrant client for the given collection.
func NewClient(baseURL, collection string, vectorSize int, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		collection: collection,
		vectorSize: vectorSize,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     logger,
	}
}

// EnsureCollection creates the collection if it does not already exist.
func (c *Client) EnsureCollection(ctx context.Context) error {
	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		c.logger.Debug("qdrant collection exists", "collection", c.collection)
		return nil
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     c.vectorSize,
			"distance": "Cosine",
		},
	}
	if err := c.do(ctx, http.MethodPut, url, body, nil); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	c.logger.Info("created qdrant collection", "collection", c.collection, "vector_size", c.vectorSize)
	return nil
}

// Upsert writes points into the collection. The chunk id doubles as
// the point id so search results resolve directly to chunks.
func (c *Client) Upsert(ctx context.Context, points []providers.VectorPoint) error {
	if len(points) == 0 {
		return nil
	}

	type point struct {
		ID      string         `json:"id"`
		Vector  []float32      `json:"vector"`
		Payload map[string]any `json:"payload"`
	}
	body := struct {
		Points []point `json:"points"`
	}{Points: make([]point, len(points))}

	for i, p := range points {
		body.Points[i] = point{
			ID:     p.ChunkID.String(),
			Vector: p.Vector,
			Payload: map[string]any{
				"user_id":     p.UserID.String(),
				"document_id": p.DocumentID.String(),
				"chunk_index": p.ChunkIndex,
				"filename":    p.Filename,
			},
		}
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, c.collection)
	if err := c.do(ctx, http.MethodPut, url, body, nil); err != nil {
		return fmt.Errorf("upsert points: %w", err)
	}
	c.logger.Debug("upserted points", "count", len(points))
	return nil
}

// DeleteByDocument removes every point whose payload.document_id
// matches.
func (c *Client) DeleteByDocument(ctx context.Context, documentID uuid.UUID) error {
	body := map[string]any{
		"filter": NewFilter().MatchDocument(documentID),
	}
	url := fmt.Sprintf("%s/collections/%s/points/delete?wait=true", c.baseURL, c.collection)
	if err := c.do(ctx, http.MethodPost, url, body, nil); err != nil {
		return fmt.Errorf("delete points for document %s: %w", documentID, err)
	}
	return nil
}

// Search returns the nearest points to the query vector, filtered by
// owning user and (optionally) a document set.
func (c *Client) Search(ctx context.Context, query providers.VectorQuery) ([]providers.VectorHit, error) {
	filter := NewFilter().MatchUser(query.UserID)
	if len(query.DocumentIDs) > 0 {
		filter.MatchAnyDocument(query.DocumentIDs)
	}

	body := map[string]any{
		"vector":       query.Vector,
		"limit":        query.Limit,
		"filter":       filter,
		"with_payload": false,
	}

	var parsed struct {
		Result []struct {
			ID    string  `json:"id"`
			Score float64 `json:"score"`
		} `json:"result"`
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	if err := c.do(ctx, http.MethodPost, url, body, &parsed); err != nil {
		return nil, fmt.Errorf("search points: %w", err)
	}

	hits := make([]providers.VectorHit, 0, len(parsed.Result))
	for _, r := range parsed.Result {
		id, err := uuid.Parse(r.ID)
		if err != nil {
			c.logger.Warn("skipping point with non-uuid id", "id", r.ID)
			continue
		}
		hits = append(hits, providers.VectorHit{ChunkID: id, Score: r.Score})
	}
	return hits, nil
}

// do executes a JSON request and decodes the response into out (when
// non-nil). Non-2xx statuses become errors carrying the response body.
func (c *Client) do(ctx context.Context, method, url string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant error (status %d): %s", resp.StatusCode, string(data))
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}
	return nil
}
