package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// HTTPCollaborator forwards invocations to an upstream wrapper service:
// the argument map is POSTed as JSON and the response body comes back as
// the result. The dispatcher's timeout applies through the request context.
type HTTPCollaborator struct {
	endpoint string
	client   *http.Client
}

// NewHTTPCollaborator creates a collaborator forwarding to endpoint.
func NewHTTPCollaborator(endpoint string) *HTTPCollaborator {
	return &HTTPCollaborator{
		endpoint: endpoint,
		client:   &http.Client{},
	}
}

func (c *HTTPCollaborator) Invoke(ctx context.Context, args map[string]any) (any, error) {
	body, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("Invoke: marshal arguments: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("Invoke: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Invoke: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("Invoke: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := strings.TrimSpace(string(raw))
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return nil, fmt.Errorf("Invoke: upstream returned %d: %s", resp.StatusCode, snippet)
	}

	var result any
	if err := json.Unmarshal(raw, &result); err != nil {
		// Non-JSON upstreams hand back plain text.
		return string(raw), nil
	}
	return result, nil
}
