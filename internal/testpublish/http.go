package testpublish

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/topicsink/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// checkServiceHealth verifies the sink is serving its HTTP surface.
func checkServiceHealth(ctx context.Context, client *http.Client, baseURL string) error {
	logger.Get().Info(ctx, "checking service health")

	if err := get(ctx, client, baseURL+"/healthz", nil); err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// fetchStats reads the sink's /stats document.
func fetchStats(ctx context.Context, client *http.Client, baseURL string) (map[string]any, error) {
	var stats map[string]any
	if err := get(ctx, client, baseURL+"/stats", &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// get issues a GET and decodes a JSON body into out when out is non-nil.
func get(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	if resp.StatusCode != StatusOK {
		return fmt.Errorf("GET %s failed with status: %d", url, resp.StatusCode)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// savePayloadsToFile writes the published payloads as a JSON array.
func savePayloadsToFile(ctx context.Context, filename string, payloads []Payload) (string, error) {
	if len(payloads) == 0 {
		return "", fmt.Errorf("no payloads to save")
	}

	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "published_payloads_" + timestamp + ".json"
	}

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(payloads, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal payloads: %w", err)
	}
	if err := os.WriteFile(filename, append(data, '\n'), logFilePermission); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	logger.Get().Info(ctx, "payloads saved to file", logger.String("filename", filename))
	return filename, nil
}
