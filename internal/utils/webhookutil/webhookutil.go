package webhookutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

func Invoke[T any](ctx context.Context, url string, data T) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	httpClient := &http.Client{Timeout: 2 * time.Minute}
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted:
		return nil
	default:
		return fmt.Errorf("webhook returned non-success status: %d", resp.StatusCode)
	}
}
