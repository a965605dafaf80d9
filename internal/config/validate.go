package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var knownTargets = map[string]struct{}{
	"browser":  {},
	"scoped":   {},
	"unscoped": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateBackend(); err != nil {
		return err
	}
	if err := c.validateCredits(); err != nil {
		return err
	}
	if err := c.validateDelivery(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateBackend() error {
	if c.Backend.BaseURL == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/resumeup/config.toml"
		}
		return fmt.Errorf("backend.base_url is required. Set %s env var or edit %s (create with 'resumeup config init')", EnvAPIURL, defaultPath)
	}
	parsed, err := url.Parse(c.Backend.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("backend.base_url %q is not an absolute URL", c.Backend.BaseURL)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("backend.base_url scheme %q is not supported", parsed.Scheme)
	}
	return nil
}

func (c *Config) validateCredits() error {
	if c.Credits.StartingGrant < 0 {
		return errors.New("credits.starting_grant must not be negative")
	}
	return nil
}

func (c *Config) validateDelivery() error {
	if _, ok := knownTargets[c.Delivery.Target]; !ok {
		return fmt.Errorf("delivery.target %q is not one of browser, scoped, unscoped", c.Delivery.Target)
	}
	if c.Delivery.Target == "scoped" && strings.TrimSpace(c.Paths.DownloadDir) == "" {
		return errors.New("paths.download_dir must be set when delivery.target is scoped")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q is not one of console, json", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	return nil
}
