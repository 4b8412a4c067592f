package notify

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SMTPConfig is the on-disk notifier configuration. Its absence or
// unreadability disables the notifier entirely; it is never fatal to
// the process.
type SMTPConfig struct {
	Enabled            bool     `yaml:"enabled"`
	From               string   `yaml:"from"`
	ToDefault          []string `yaml:"to_default"`
	SubjectPrefix      string   `yaml:"subject_prefix"`
	BatchWindowSeconds int      `yaml:"batch_window_seconds"`
	MaxBatchEvents     int      `yaml:"max_batch_events"`
	SMTP               struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		StartTLS bool   `yaml:"starttls"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
	} `yaml:"smtp"`
}

// BatchWindow returns the configured batch window, defaulting to 60s.
func (c SMTPConfig) BatchWindow() time.Duration {
	if c.BatchWindowSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.BatchWindowSeconds) * time.Second
}

// MaxBatch returns the configured batch size ceiling, defaulting to 20.
func (c SMTPConfig) MaxBatch() int {
	if c.MaxBatchEvents <= 0 {
		return 20
	}
	return c.MaxBatchEvents
}

// LoadSMTPConfig reads and parses the YAML file at path. A missing
// file yields a disabled config and no error. A file that exists but
// cannot be read, or holds malformed YAML, is surfaced as an error
// since that points at an operator mistake worth fixing.
func LoadSMTPConfig(path string) (SMTPConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return SMTPConfig{Enabled: false}, nil
		}
		return SMTPConfig{}, fmt.Errorf("failed to read smtp config %s: %w", path, err)
	}

	var cfg SMTPConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return SMTPConfig{}, fmt.Errorf("failed to parse smtp config %s: %w", path, err)
	}
	return cfg, nil
}
