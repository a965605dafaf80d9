// Package config loads, normalizes, and validates resumeup configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the RESUMEUP_API_URL environment
// override for the backend base URL. The Config type centralizes every knob
// the CLI needs: state/download/log directories, backend endpoints and
// timeouts, the credit starting grant, the delivery target, and notification
// settings.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
