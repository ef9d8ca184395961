package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// MetadataClient fetches the off-chain JSON describing a project or
// retirement by its URI. The store is opaque: nothing in the registry
// depends on the document's internal format.
type MetadataClient interface {
	FetchJSON(ctx context.Context, uri string) (map[string]interface{}, error)
}

type httpMetadataClient struct {
	client *http.Client
}

func NewMetadataClient() MetadataClient {
	return &httpMetadataClient{
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *httpMetadataClient) FetchJSON(ctx context.Context, uri string) (map[string]interface{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch metadata %s: %w", uri, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch metadata %s: status %d", uri, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode metadata %s: %w", uri, err)
	}
	return doc, nil
}
