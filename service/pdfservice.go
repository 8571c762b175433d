package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Ultra2000/pdfBot/config"
	"github.com/Ultra2000/pdfBot/model"
	"github.com/oklog/ulid/v2"
)

const (
	probeTimeout = 5 * time.Second
	// Output artifacts get a long-lived signed URL so the user can fetch
	// the file well after the job finished.
	outputURLTTL = 24 * time.Hour
)

// ProcessResult is the uniform outcome of one remote processing call.
// Failures are reported through the Success/Error fields, never as Go
// errors, so the orchestrator's fallback branch stays a plain conditional.
type ProcessResult struct {
	Success     bool
	OutputKey   string
	OutputURL   string
	Size        int64
	ContentType string
	Error       string
}

// HealthStatus is the outcome of a best-effort service probe.
type HealthStatus struct {
	Status string // healthy, unhealthy, unreachable
	Error  string
	Data   map[string]any
}

// PdfServiceClient invokes the external PDF processing endpoint. For each
// operation it pulls the input blob to a temp file, posts it as multipart
// form data, and pushes a file-bearing response back into storage under a
// fresh collision-resistant key.
type PdfServiceClient struct {
	baseURL    string
	httpClient *http.Client
	storage    ObjectStorage
	downloads  *DownloadService
}

func NewPdfServiceClient(cfg *config.PdfServiceConfig, storage ObjectStorage, downloads *DownloadService) *PdfServiceClient {
	return &PdfServiceClient{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
		},
		storage:   storage,
		downloads: downloads,
	}
}

// Process runs one operation against the remote service.
func (c *PdfServiceClient) Process(ctx context.Context, op model.OperationType, inputKey string, params map[string]string) ProcessResult {
	tempPath, err := c.downloads.DownloadFromStorage(ctx, inputKey)
	if err != nil {
		return ProcessResult{Error: fmt.Sprintf("failed to fetch input: %v", err)}
	}
	defer os.Remove(tempPath)

	slog.Info("pdf service request", "operation", op, "input_key", inputKey, "params", params)

	resp, err := c.postMultipart(ctx, string(op), tempPath, params)
	if err != nil {
		slog.Error("pdf service request failed", "operation", op, "error", err)
		return ProcessResult{Error: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ProcessResult{Error: fmt.Sprintf("failed to read response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Error("pdf service error", "operation", op, "status", resp.StatusCode)
		return ProcessResult{Error: extractErrorDetail(body, resp.StatusCode)}
	}

	contentType := resp.Header.Get("Content-Type")
	if !isFileResponse(contentType) {
		// 2xx without a file payload is unexpected for these endpoints.
		return ProcessResult{Error: fmt.Sprintf("unexpected response content type: %s", contentType)}
	}

	outputKey := c.outputKey(op, inputKey, contentType)
	if err := c.storage.Put(ctx, outputKey, body, contentType); err != nil {
		return ProcessResult{Error: fmt.Sprintf("failed to store output: %v", err)}
	}

	outputURL, err := c.storage.SignedURL(ctx, outputKey, outputURLTTL)
	if err != nil {
		// The artifact is stored, the URL can be regenerated at delivery.
		slog.Warn("failed to presign output", "key", outputKey, "error", err)
	}

	slog.Info("pdf service response stored", "operation", op, "output_key", outputKey, "size", len(body))

	return ProcessResult{
		Success:     true,
		OutputKey:   outputKey,
		OutputURL:   outputURL,
		Size:        int64(len(body)),
		ContentType: contentType,
	}
}

// HealthCheck probes the service's liveness endpoint. Failures come back
// as a structured status, never as an error.
func (c *PdfServiceClient) HealthCheck(ctx context.Context) HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return HealthStatus{Status: "unreachable", Error: err.Error()}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return HealthStatus{Status: "unreachable", Error: err.Error()}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return HealthStatus{
			Status: "unhealthy",
			Error:  fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body)),
		}
	}

	var data map[string]any
	json.Unmarshal(body, &data)
	return HealthStatus{Status: "healthy", Data: data}
}

// ServiceInfo fetches the service's configuration summary, best-effort.
func (c *PdfServiceClient) ServiceInfo(ctx context.Context) HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/info", nil)
	if err != nil {
		return HealthStatus{Status: "unreachable", Error: err.Error()}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return HealthStatus{Status: "unreachable", Error: err.Error()}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return HealthStatus{
			Status: "unhealthy",
			Error:  fmt.Sprintf("HTTP %d", resp.StatusCode),
		}
	}

	var data map[string]any
	json.Unmarshal(body, &data)
	return HealthStatus{Status: "healthy", Data: data}
}

func (c *PdfServiceClient) postMultipart(ctx context.Context, endpoint, filePath string, params map[string]string) (*http.Response, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("file not found: %s", filePath)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to copy file into request: %w", err)
	}

	for key, value := range params {
		if err := writer.WriteField(key, value); err != nil {
			return nil, fmt.Errorf("failed to write form field %s: %w", key, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

// outputKey derives a collision-resistant storage key for an operation's
// output from the input name plus a random suffix.
func (c *PdfServiceClient) outputKey(op model.OperationType, inputKey, contentType string) string {
	base := filepath.Base(inputKey)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return fmt.Sprintf("processed/%s/%s_%s%s", op, stem, ulid.Make().String(), ExtensionForContentType(contentType))
}

// ExtensionForContentType maps a response content type to an output file
// extension, defaulting to .pdf.
func ExtensionForContentType(contentType string) string {
	switch {
	case strings.Contains(contentType, "application/pdf"):
		return ".pdf"
	case strings.Contains(contentType, "wordprocessingml"):
		return ".docx"
	case strings.Contains(contentType, "spreadsheetml"):
		return ".xlsx"
	case strings.Contains(contentType, "text/plain"):
		return ".txt"
	case strings.HasPrefix(contentType, "image/"):
		return ".png"
	default:
		return ".pdf"
	}
}

// isFileResponse reports whether the response body is a processed artifact
// rather than a JSON envelope.
func isFileResponse(contentType string) bool {
	if strings.HasPrefix(contentType, "application/json") {
		return false
	}
	return strings.HasPrefix(contentType, "application/") || strings.HasPrefix(contentType, "text/")
}

// extractErrorDetail pulls the detail field out of a JSON error body,
// falling back to the raw body.
func extractErrorDetail(body []byte, status int) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Detail != "" {
		return fmt.Sprintf("HTTP %d: %s", status, payload.Detail)
	}
	return fmt.Sprintf("HTTP %d: %s", status, string(body))
}
