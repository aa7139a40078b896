package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"solar-parcel-be/internal/dto"
	"solar-parcel-be/internal/pkg/serverutils"
)

// apiClient is a thin HTTP client for the search API.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/") + "/api",
		http:    &http.Client{}, // searches are bounded server side
	}
}

// stream posts a search to the SSE endpoint and calls onEvent for every event until the body
// ends.
func (c *apiClient) stream(ctx context.Context, req dto.SearchRequest, onEvent func(dto.StreamEvent)) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search/stream", bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	return readEvents(resp.Body, onEvent)
}

// readEvents parses "data: {json}" lines separated by blank lines.
func readEvents(r io.Reader, onEvent func(dto.StreamEvent)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		var ev dto.StreamEvent
		if err := json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(line, "data:"))), &ev); err != nil {
			return fmt.Errorf("bad event: %w", err)
		}
		onEvent(ev)
	}
	return scanner.Err()
}

func (c *apiClient) schema(ctx context.Context) (*dto.SchemaResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/schema", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	var out serverutils.BaseResponse[*dto.SchemaResponse]
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func decodeError(resp *http.Response) error {
	var out serverutils.BaseResponse[any]
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.Message == "" {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return fmt.Errorf("server returned %s: %s", resp.Status, out.Message)
}
