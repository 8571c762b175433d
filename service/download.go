package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Ultra2000/pdfBot/config"
	"github.com/google/uuid"
)

const downloadChunkSize = 8 * 1024

// DownloadService fetches remote media into temporary local files with
// size and content validation, and cleans up stale temp files.
type DownloadService struct {
	tempDir     string
	maxFileSize int64
	client      *http.Client
	storage     ObjectStorage
}

func NewDownloadService(cfg *config.DownloadConfig, storage ObjectStorage) *DownloadService {
	dialer := &net.Dialer{
		Timeout: time.Duration(cfg.ConnectTimeoutSeconds) * time.Second,
	}

	return &DownloadService{
		tempDir:     cfg.TempDir,
		maxFileSize: cfg.MaxFileSizeBytes,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
			Transport: &http.Transport{
				DialContext: dialer.DialContext,
			},
		},
		storage: storage,
	}
}

// Download fetches the URL into a temp file, streaming in fixed-size chunks
// and aborting the moment the size limit is exceeded. The downloaded file is
// validated as a structurally sound PDF; any failure removes the file.
func (s *DownloadService) Download(ctx context.Context, url string) (string, error) {
	if err := os.MkdirAll(s.tempDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create temp directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download file: HTTP %d", resp.StatusCode)
	}

	destPath := filepath.Join(s.tempDir, "download_"+uuid.New().String()+".pdf")
	file, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	var totalSize int64
	buf := make([]byte, downloadChunkSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			totalSize += int64(n)
			if totalSize > s.maxFileSize {
				file.Close()
				os.Remove(destPath)
				return "", fmt.Errorf("file too large: exceeds maximum of %d bytes", s.maxFileSize)
			}
			if _, err := file.Write(buf[:n]); err != nil {
				file.Close()
				os.Remove(destPath)
				return "", fmt.Errorf("failed to write temp file: %w", err)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			file.Close()
			os.Remove(destPath)
			return "", fmt.Errorf("failed to read response body: %w", readErr)
		}
	}

	if err := file.Close(); err != nil {
		os.Remove(destPath)
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := s.validatePdf(destPath); err != nil {
		os.Remove(destPath)
		return "", err
	}

	slog.Info("file downloaded", "url", url, "path", destPath, "size", totalSize)
	return destPath, nil
}

// DownloadFromStorage pulls a blob into a local temp file for processing.
func (s *DownloadService) DownloadFromStorage(ctx context.Context, key string) (string, error) {
	data, err := s.storage.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to download from storage: %w", err)
	}

	if err := os.MkdirAll(s.tempDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create temp directory: %w", err)
	}

	tempPath := filepath.Join(s.tempDir, "storage_"+uuid.New().String()+filepath.Ext(key))
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}

	slog.Info("file downloaded from storage", "key", key, "path", tempPath, "size", len(data))
	return tempPath, nil
}

// Cleanup removes this service's temp files whose modification time is older
// than the given age and returns the number removed. Only files created by
// Download and DownloadFromStorage are considered; anything else in the
// directory is left alone. Deletion failures are logged, never returned.
func (s *DownloadService) Cleanup(olderThan time.Duration) int {
	entries, err := os.ReadDir(s.tempDir)
	if err != nil {
		return 0
	}

	cutoff := time.Now().Add(-olderThan)
	deleted := 0
	for _, entry := range entries {
		if entry.IsDir() || !isTempFileName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			path := filepath.Join(s.tempDir, entry.Name())
			if err := os.Remove(path); err != nil {
				slog.Warn("failed to remove stale temp file", "path", path, "error", err)
				continue
			}
			deleted++
		}
	}
	return deleted
}

func isTempFileName(name string) bool {
	return strings.HasPrefix(name, "download_") || strings.HasPrefix(name, "storage_")
}

// validatePdf checks that the file is non-empty, sniffs as application/pdf,
// starts with the %PDF header, and carries an %%EOF marker in its last 1 KiB.
func (s *DownloadService) validatePdf(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("downloaded file does not exist: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("downloaded file is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot open file for validation: %w", err)
	}
	defer file.Close()

	// Sniff content type from the first bytes, headers are not trusted.
	head := make([]byte, 512)
	n, err := file.Read(head)
	if err != nil && err != io.EOF {
		return fmt.Errorf("cannot read file for validation: %w", err)
	}
	head = head[:n]

	if detected := http.DetectContentType(head); detected != "application/pdf" {
		return fmt.Errorf("invalid file type: %s, expected application/pdf", detected)
	}

	if len(head) < 4 || string(head[:4]) != "%PDF" {
		return fmt.Errorf("invalid PDF file: missing PDF header")
	}

	tailSize := int64(1024)
	if info.Size() < tailSize {
		tailSize = info.Size()
	}
	tail := make([]byte, tailSize)
	if _, err := file.ReadAt(tail, info.Size()-tailSize); err != nil && err != io.EOF {
		return fmt.Errorf("cannot read file trailer: %w", err)
	}

	if !strings.Contains(string(tail), "%%EOF") {
		return fmt.Errorf("invalid PDF file: missing EOF marker")
	}

	return nil
}
