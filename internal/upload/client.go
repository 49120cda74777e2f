// Package upload sends file attachments to the upload endpoint before the
// message referencing them is emitted.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Client posts multipart uploads and returns the served file URL.
type Client struct {
	logger  *zap.Logger
	client  *http.Client
	baseURL string
}

// NewClient creates an upload client for the given API root.
func NewClient(logger *zap.Logger, baseURL string, timeout time.Duration) *Client {
	return &Client{
		logger:  logger.Named("upload"),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// uploadResponse is the upload endpoint's reply.
type uploadResponse struct {
	FileURL string `json:"fileUrl"`
}

// Upload streams the file content as a multipart form and returns the URL
// under which the server serves it. The bearer token authenticates the
// request.
func (c *Client) Upload(ctx context.Context, bearer, filename string, content io.Reader) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return "", fmt.Errorf("failed to copy file content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("upload server returned status %d", resp.StatusCode)
	}

	var ur uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&ur); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	if ur.FileURL == "" {
		return "", fmt.Errorf("upload response missing fileUrl")
	}

	c.logger.Debug("file uploaded", zap.String("filename", filename), zap.String("fileUrl", ur.FileURL))
	return ur.FileURL, nil
}
