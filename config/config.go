package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Minio      MinioConfig      `yaml:"minio"`
	PdfService PdfServiceConfig `yaml:"pdf_service"`
	Twilio     TwilioConfig     `yaml:"twilio"`
	Download   DownloadConfig   `yaml:"download"`
	Worker     WorkerConfig     `yaml:"worker"`
	Documents  DocumentsConfig  `yaml:"documents"`
	Session    SessionConfig    `yaml:"session"`
}

type ServerConfig struct {
	Port                   int `yaml:"port"`
	RateLimitRequests      int `yaml:"rate_limit_requests"`
	RateLimitWindowSeconds int `yaml:"rate_limit_window_seconds"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

type MinioConfig struct {
	Endpoint         string `yaml:"endpoint"`
	AccessKey        string `yaml:"access_key"`
	SecretKey        string `yaml:"secret_key"`
	Bucket           string `yaml:"bucket"`
	UseSSL           bool   `yaml:"use_ssl"`
	SignedURLMinutes int    `yaml:"signed_url_minutes"`
}

type PdfServiceConfig struct {
	URL            string `yaml:"url"`
	Enabled        bool   `yaml:"enabled"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type TwilioConfig struct {
	AccountSID     string `yaml:"account_sid"`
	AuthToken      string `yaml:"auth_token"`
	WhatsAppNumber string `yaml:"whatsapp_number"`
}

type DownloadConfig struct {
	MaxFileSizeBytes      int64  `yaml:"max_file_size_bytes"`
	TimeoutSeconds        int    `yaml:"timeout_seconds"`
	ConnectTimeoutSeconds int    `yaml:"connect_timeout_seconds"`
	TempDir               string `yaml:"temp_dir"`
}

type WorkerConfig struct {
	Count     int `yaml:"count"`
	QueueSize int `yaml:"queue_size"`
}

type DocumentsConfig struct {
	ExpireHours        int `yaml:"expire_hours"`
	TempCleanupMinutes int `yaml:"temp_cleanup_minutes"`
}

type SessionConfig struct {
	TTLSeconds int `yaml:"ttl_seconds"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.RateLimitRequests == 0 {
		c.Server.RateLimitRequests = 60
	}
	if c.Server.RateLimitWindowSeconds == 0 {
		c.Server.RateLimitWindowSeconds = 60
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Minio.SignedURLMinutes == 0 {
		c.Minio.SignedURLMinutes = 60
	}
	if c.PdfService.URL == "" {
		c.PdfService.URL = "http://localhost:8000"
	}
	if c.PdfService.TimeoutSeconds == 0 {
		c.PdfService.TimeoutSeconds = 60
	}
	if c.Download.MaxFileSizeBytes == 0 {
		c.Download.MaxFileSizeBytes = 50 * 1024 * 1024 // 50MB
	}
	if c.Download.TimeoutSeconds == 0 {
		c.Download.TimeoutSeconds = 120
	}
	if c.Download.ConnectTimeoutSeconds == 0 {
		c.Download.ConnectTimeoutSeconds = 30
	}
	if c.Download.TempDir == "" {
		// Dedicated subdirectory so cleanup never touches other processes'
		// files in the shared system temp dir.
		c.Download.TempDir = filepath.Join(os.TempDir(), "pdfbot")
	}
	if c.Worker.Count == 0 {
		c.Worker.Count = 4
	}
	if c.Worker.QueueSize == 0 {
		c.Worker.QueueSize = 64
	}
	if c.Documents.ExpireHours == 0 {
		c.Documents.ExpireHours = 24
	}
	if c.Documents.TempCleanupMinutes == 0 {
		c.Documents.TempCleanupMinutes = 60
	}
	if c.Session.TTLSeconds == 0 {
		c.Session.TTLSeconds = 300
	}
}

// RateLimitWindow returns the rate limiting window as a duration.
func (c *ServerConfig) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

// SignedURLTTL returns the presigned URL lifetime as a duration.
func (c *MinioConfig) SignedURLTTL() time.Duration {
	return time.Duration(c.SignedURLMinutes) * time.Minute
}

// Timeout returns the remote processing call timeout as a duration.
func (c *PdfServiceConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// TTL returns the menu session lifetime as a duration.
func (c *SessionConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// TempCleanupAge returns how old a temp file must be before cleanup removes it.
func (c *DocumentsConfig) TempCleanupAge() time.Duration {
	return time.Duration(c.TempCleanupMinutes) * time.Minute
}

// ExpireAfter returns how long a document is retained before the sweeper
// may purge it.
func (c *DocumentsConfig) ExpireAfter() time.Duration {
	return time.Duration(c.ExpireHours) * time.Hour
}
