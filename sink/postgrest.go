package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// PostgREST inserts rows through a PostgREST endpoint such as the one Supabase exposes under
// /rest/v1.
type PostgREST struct {
	endpoint string
	key      string
	client   *http.Client
}

func NewPostgREST(baseURL, key, table string, client *http.Client) *PostgREST {
	if client == nil {
		client = http.DefaultClient
	}

	return &PostgREST{
		endpoint: strings.TrimRight(baseURL, "/") + "/rest/v1/" + url.PathEscape(table),
		key:      key,
		client:   client,
	}
}

func (p *PostgREST) Insert(ctx context.Context, row Row) error {
	body, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("postgrest: encode row: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("postgrest: build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=minimal")
	req.Header.Set("apikey", p.key)
	req.Header.Set("Authorization", "Bearer "+p.key)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("postgrest: insert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("postgrest: insert: unexpected status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(excerpt)))
	}

	// drain so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}
