package estimate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxResponseBytes bounds how much of a provider reply is read.
const maxResponseBytes = 4 << 20

// postJSON sends body to url and decodes a 200 reply into out.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body, out any) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return failed("encoding request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return failed("creating request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return transportError(fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return statusError(resp.StatusCode, string(data))
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return failed("empty response", nil)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return failed("unparseable response", err)
	}
	return nil
}
