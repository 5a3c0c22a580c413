package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

// minWatchDebounce is the shortest debounce that still coalesces editor saves
const minWatchDebounce = 50 * time.Millisecond

// ValidationResult contains the results of configuration validation.
// Separates errors (blocking issues) from warnings (non-blocking issues).
type ValidationResult struct {
	// Errors contains validation failures that should block startup
	Errors []string

	// Warnings contains validation issues that should be logged but not block startup
	Warnings []string
}

// IsValid returns true if there are no validation errors.
// Warnings do not affect validity.
func (vr *ValidationResult) IsValid() bool {
	return len(vr.Errors) == 0
}

// HasWarnings returns true if there are any validation warnings.
func (vr *ValidationResult) HasWarnings() bool {
	return len(vr.Warnings) > 0
}

// AddError adds an error message to the validation result.
func (vr *ValidationResult) AddError(msg string) {
	vr.Errors = append(vr.Errors, msg)
}

// AddWarning adds a warning message to the validation result.
func (vr *ValidationResult) AddWarning(msg string) {
	vr.Warnings = append(vr.Warnings, msg)
}

// Merge combines multiple validation results into a single result.
func (vr *ValidationResult) Merge(other ValidationResult) {
	vr.Errors = append(vr.Errors, other.Errors...)
	vr.Warnings = append(vr.Warnings, other.Warnings...)
}

// Err folds the errors into one error, or nil when valid.
func (vr *ValidationResult) Err() error {
	if vr.IsValid() {
		return nil
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(vr.Errors, "; "))
}

// ValidatePort checks that port is a usable TCP port.
func ValidatePort(port int) ValidationResult {
	result := ValidationResult{}
	if port < 1 || port > 65535 {
		result.AddError(fmt.Sprintf("port %d is out of range: must be between 1 and 65535 (default: 3000)", port))
	}
	return result
}

// ValidateLogLevel accepts debug, info, warn, warning and error.
func ValidateLogLevel(level string) ValidationResult {
	result := ValidationResult{}
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		result.AddError(fmt.Sprintf("invalid log level %q: must be one of debug, info, warn, error", level))
	}
	return result
}

// ValidateLogFormat accepts text and json.
func ValidateLogFormat(format string) ValidationResult {
	result := ValidationResult{}
	switch strings.ToLower(format) {
	case "text", "json":
	default:
		result.AddError(fmt.Sprintf("invalid log format %q: must be text or json", format))
	}
	return result
}

// ValidateDebounce rejects negative values and warns about very short ones.
func ValidateDebounce(d time.Duration) ValidationResult {
	result := ValidationResult{}
	switch {
	case d < 0:
		result.AddError(fmt.Sprintf("watch debounce %s cannot be negative", d))
	case d < minWatchDebounce:
		result.AddWarning(fmt.Sprintf("watch debounce %s is below %s; a single save may trigger several reloads", d, minWatchDebounce))
	}
	return result
}

// ValidateServerURL checks that a remote API URL is absolute http(s).
func ValidateServerURL(raw string) ValidationResult {
	result := ValidationResult{}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		result.AddError(fmt.Sprintf("invalid server URL %q: must be an absolute http or https URL", raw))
	}
	return result
}

// ValidatePath validates that a path exists.
// Returns warnings (not errors) for inaccessible paths, since the file may
// be created later (e.g. a manifest mounted after startup).
func ValidatePath(kind, path string) ValidationResult {
	result := ValidationResult{}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			result.AddWarning(fmt.Sprintf("%s does not exist: %s", kind, path))
		} else if os.IsPermission(err) {
			result.AddWarning(fmt.Sprintf("%s is not readable: %s", kind, path))
		} else {
			result.AddWarning(fmt.Sprintf("cannot access %s %s: %v", kind, path, err))
		}
	}
	return result
}

// ValidateConfig validates an entire configuration object.
// Aggregates validation results from all configured values.
func ValidateConfig(cfg *Config) ValidationResult {
	result := ValidationResult{}

	if strings.TrimSpace(cfg.DBPath) == "" && !cfg.Remote() {
		result.AddError("db_path cannot be empty")
	}
	result.Merge(ValidatePort(cfg.Port))
	result.Merge(ValidateLogLevel(cfg.LogLevel))
	result.Merge(ValidateLogFormat(cfg.LogFormat))
	result.Merge(ValidateDebounce(cfg.WatchDebounce))

	if cfg.Remote() {
		result.Merge(ValidateServerURL(cfg.Server))
	}
	if cfg.ManifestPath != "" {
		result.Merge(ValidatePath("manifest", cfg.ManifestPath))
	}
	if cfg.StaticDir != "" {
		result.Merge(ValidatePath("static directory", cfg.StaticDir))
	}
	if cfg.Watch && cfg.ManifestPath == "" {
		result.AddWarning("watch is enabled but no manifest_path is set; the embedded catalog never changes")
	}

	return result
}
