package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeBackend()
	c.normalizeDelivery()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.DownloadDir, err = expandPath(c.Paths.DownloadDir); err != nil {
		return fmt.Errorf("paths.download_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeBackend() {
	c.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(c.Backend.BaseURL), "/")
	if c.Backend.UploadTimeout <= 0 {
		c.Backend.UploadTimeout = defaultUploadTimeout
	}
	if c.Backend.RequestTimeout <= 0 {
		c.Backend.RequestTimeout = defaultRequestTimeout
	}
	if c.Backend.ReadyTimeout <= 0 {
		c.Backend.ReadyTimeout = defaultReadyTimeout
	}
}

func (c *Config) normalizeDelivery() {
	c.Delivery.Target = strings.ToLower(strings.TrimSpace(c.Delivery.Target))
	if c.Delivery.Target == "" {
		c.Delivery.Target = defaultTarget
	}
	c.Delivery.DisplayName = strings.TrimSpace(c.Delivery.DisplayName)
	if c.Delivery.DisplayName == "" {
		c.Delivery.DisplayName = defaultDisplayName
	}
	c.Delivery.Opener = strings.TrimSpace(c.Delivery.Opener)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
