// Package config loads environment configuration for all driveocr commands.
package config

import (
	"fmt"
	"os"

	"driveocr/internal/logger"
)

type Config struct {
	// Google Cloud Configuration
	ProjectID           string
	Location            string
	CredentialsFile     string
	TempBucket          string
	DocAIProcessorID    string
	DocAIProcessorVer   string

	// Pub/Sub Configuration
	ChangeTopic        string
	ChangeSubscription string
	GmailWatchTopic    string

	// BigQuery Configuration
	BigQueryDataset    string
	FileMetadataTable  string
	UsersTable         string

	// HTTP API Configuration
	Port string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	config := &Config{
		ProjectID:          getEnv("GOOGLE_CLOUD_PROJECT", ""),
		Location:           getEnv("GOOGLE_CLOUD_LOCATION", "us"),
		CredentialsFile:    getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		TempBucket:         getEnv("TEMP_BUCKET", ""),
		DocAIProcessorID:   getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),
		DocAIProcessorVer:  getEnv("DOCUMENT_AI_PROCESSOR_VERSION", ""),
		ChangeTopic:        getEnv("PUBSUB_CHANGE_TOPIC", "drive-changes"),
		ChangeSubscription: getEnv("PUBSUB_CHANGE_SUBSCRIPTION", "drive-changes-worker"),
		GmailWatchTopic:    getEnv("GMAIL_WATCH_TOPIC", "gmail-notifications"),
		BigQueryDataset:    getEnv("BIGQUERY_DATASET_ID", "ocr_data"),
		FileMetadataTable:  getEnv("BIGQUERY_FILE_METADATA_TABLE", "file_metadata"),
		UsersTable:         getEnv("BIGQUERY_USERS_TABLE", "users"),
		Port:               getEnv("PORT", "8080"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "json"),
		LogTimeFormat:      getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:          getEnv("LOG_OUTPUT", "stdout"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.ProjectID == "" {
		return fmt.Errorf("GOOGLE_CLOUD_PROJECT is required")
	}
	if c.TempBucket == "" {
		return fmt.Errorf("TEMP_BUCKET is required")
	}
	if c.DocAIProcessorID == "" {
		return fmt.Errorf("DOCUMENT_AI_PROCESSOR_ID is required")
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

// FileMetadataTableID returns the fully qualified file metadata table identifier.
func (c *Config) FileMetadataTableID() string {
	return fmt.Sprintf("%s.%s.%s", c.ProjectID, c.BigQueryDataset, c.FileMetadataTable)
}

// GmailTopicName returns the fully qualified Pub/Sub topic for the Gmail watch.
func (c *Config) GmailTopicName() string {
	return fmt.Sprintf("projects/%s/topics/%s", c.ProjectID, c.GmailWatchTopic)
}

// UsersTableID returns the fully qualified users table identifier.
func (c *Config) UsersTableID() string {
	return fmt.Sprintf("%s.%s.%s", c.ProjectID, c.BigQueryDataset, c.UsersTable)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
