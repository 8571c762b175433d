package model

import (
	"time"
)

// OperationType identifies one of the supported PDF operations.
type OperationType string

const (
	OpCompress  OperationType = "compress"
	OpConvert   OperationType = "convert"
	OpOcr       OperationType = "ocr"
	OpSummarize OperationType = "summarize"
	OpTranslate OperationType = "translate"
	OpSecure    OperationType = "secure"
)

// Operations lists every supported operation type.
var Operations = []OperationType{OpCompress, OpConvert, OpOcr, OpSummarize, OpTranslate, OpSecure}

// Document status constants
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Document represents one user-submitted PDF and its eventual processed output.
type Document struct {
	ID             string            `json:"id"`
	OriginalName   string            `json:"original_name"`
	FileSize       int64             `json:"file_size,omitempty"`
	OutputFileSize int64             `json:"output_file_size,omitempty"`
	MimeType       string            `json:"mime_type,omitempty"`
	WhatsAppUserID string            `json:"whatsapp_user_id"`
	Status         string            `json:"status"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	StoragePath    string            `json:"storage_path,omitempty"`
	OutputPath     string            `json:"output_path,omitempty"`
	ExpiresAt      time.Time         `json:"expires_at"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// IsExpired reports whether the document has passed its expiration timestamp.
func (d *Document) IsExpired(now time.Time) bool {
	return !d.ExpiresAt.IsZero() && d.ExpiresAt.Before(now)
}

// TaskJob represents one requested operation against a Document.
type TaskJob struct {
	ID             string            `json:"id"`
	DocumentID     string            `json:"document_id"`
	Type           OperationType     `json:"type"`
	Status         string            `json:"status"`
	Parameters     map[string]string `json:"parameters,omitempty"`
	ErrorMessage   string            `json:"error_message,omitempty"`
	ResultMetadata map[string]any    `json:"result_metadata,omitempty"`
	StartedAt      time.Time         `json:"started_at,omitempty"`
	CompletedAt    time.Time         `json:"completed_at,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// ProcessingSeconds returns the elapsed processing time in whole seconds,
// or 0 when the job never started or finished.
func (j *TaskJob) ProcessingSeconds() int {
	if j.StartedAt.IsZero() || j.CompletedAt.IsZero() {
		return 0
	}
	return int(j.CompletedAt.Sub(j.StartedAt) / time.Second)
}

// IsTerminal reports whether the job reached a final state.
func (j *TaskJob) IsTerminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// CanTransition reports whether a job status change is legal. Transitions
// are monotonic: pending -> running -> {completed|failed}, nothing else.
func CanTransition(from, to string) bool {
	switch from {
	case StatusPending:
		return to == StatusRunning
	case StatusRunning:
		return to == StatusCompleted || to == StatusFailed
	default:
		return false
	}
}
