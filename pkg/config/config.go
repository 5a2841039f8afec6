package config

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// DefaultIndexURL is the upstream version index for the Windows x64 build
	DefaultIndexURL = "https://piston-meta.mojang.com/v1/products/dungeons/f4c685912beb55eb2d5c9e0713fe1195164bba27/windows-x64.json"
	DefaultProduct  = "dungeons"

	DefaultInstallRoot   = "dungeons"
	DefaultLZMAMemCapMiB = 128
	DefaultSettingsPath  = "settings.json"

	// MaxLZMAMemCapMiB is the largest accepted lzma_mem_cap
	MaxLZMAMemCapMiB = 1024
)

// Config represents the runtime configuration for go-pistonlauncher
type Config struct {
	InstallRoot string `json:"install_root"`
	PreferRaw   bool   `json:"prefer_raw"`
	// LZMAMemCapMiB bounds decompression output held in memory; 0 means unbounded
	LZMAMemCapMiB int `json:"lzma_mem_cap_mib"`

	// Release resolution
	IndexURL     string `json:"index_url"`
	Product      string `json:"product"`
	ManifestFile string `json:"manifest_file,omitempty"` // local manifest, bypasses the index
	Version      string `json:"version,omitempty"`      // version to record for ManifestFile

	SettingsPath string `json:"settings_path"`

	// Retry settings
	MaxRetries int `json:"max_retries"`
	RetryDelay int `json:"retry_delay"` // seconds

	KeepFailedFiles bool `json:"keep_failed_files"` // For debugging

	// HTTP
	FollowRedirects  bool              `json:"follow_redirects"`
	HTTPAuthUser     string            `json:"http_auth_user,omitempty"`
	HTTPAuthPassword string            `json:"http_auth_password,omitempty"`
	HTTPHeaders      map[string]string `json:"http_headers,omitempty"`
	UserAgent        string            `json:"user_agent,omitempty"`

	// Logging
	Debug       bool   `json:"debug"`
	Verbose     bool   `json:"verbose"`
	LogJSON     bool   `json:"log_json"`
	LogFilePath string `json:"log_file_path,omitempty"` // optional: also log to this file
}

// NewConfig creates a new Config with defaults
func NewConfig() *Config {
	return &Config{
		InstallRoot:     DefaultInstallRoot,
		PreferRaw:       false,
		LZMAMemCapMiB:   DefaultLZMAMemCapMiB,
		IndexURL:        DefaultIndexURL,
		Product:         DefaultProduct,
		SettingsPath:    DefaultSettingsPath,
		MaxRetries:      3,
		RetryDelay:      5,
		KeepFailedFiles: false,
		FollowRedirects: true,
		HTTPHeaders:     map[string]string{},
	}
}

// DecompressChunkSizeBytes converts the memory cap to the decompressor's chunk size
func (c *Config) DecompressChunkSizeBytes() uint64 {
	if c.LZMAMemCapMiB <= 0 {
		return 0
	}
	return uint64(c.LZMAMemCapMiB) << 20
}

// ApplySettings copies persisted user settings into the runtime config
func (c *Config) ApplySettings(s *Settings) {
	if s == nil {
		return
	}
	if s.GameDir != "" {
		c.InstallRoot = s.GameDir
	}
	c.LZMAMemCapMiB = s.LZMAMemCap
	c.PreferRaw = s.DownloadRaw
}

// Settings returns the persisted subset of the config
func (c *Config) Settings() *Settings {
	return &Settings{
		GameDir:     c.InstallRoot,
		LZMAMemCap:  c.LZMAMemCapMiB,
		DownloadRaw: c.PreferRaw,
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if strings.TrimSpace(c.InstallRoot) == "" {
		return fmt.Errorf("install root is required")
	}
	if c.LZMAMemCapMiB < 0 || c.LZMAMemCapMiB > MaxLZMAMemCapMiB {
		return fmt.Errorf("lzma memory cap must be between 0 and %d MiB, got %d", MaxLZMAMemCapMiB, c.LZMAMemCapMiB)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay cannot be negative")
	}
	if c.ManifestFile == "" {
		if c.IndexURL == "" {
			return fmt.Errorf("an index URL or a manifest file is required")
		}
		u, err := url.Parse(c.IndexURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("index URL must be an http(s) URL: %q", c.IndexURL)
		}
		if c.Product == "" {
			return fmt.Errorf("product is required")
		}
	}
	return nil
}

// RedactedForLogging returns a redacted snapshot of the effective
// configuration suitable for debug logs. Sensitive values are masked.
func (c *Config) RedactedForLogging() map[string]interface{} {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "***redacted***"
	}
	maskMap := func(in map[string]string) map[string]string {
		if in == nil {
			return nil
		}
		out := make(map[string]string, len(in))
		for k := range in {
			out[k] = "***redacted***"
		}
		return out
	}

	return map[string]interface{}{
		// Core
		"InstallRoot":   c.InstallRoot,
		"PreferRaw":     c.PreferRaw,
		"LZMAMemCapMiB": c.LZMAMemCapMiB,
		"IndexURL":      c.IndexURL,
		"Product":       c.Product,
		"ManifestFile":  c.ManifestFile,
		"Version":       c.Version,
		"SettingsPath":  c.SettingsPath,
		// Logging
		"Debug":       c.Debug,
		"Verbose":     c.Verbose,
		"LogJSON":     c.LogJSON,
		"LogFilePath": c.LogFilePath,
		// Retries
		"MaxRetries":      c.MaxRetries,
		"RetryDelay":      c.RetryDelay,
		"KeepFailedFiles": c.KeepFailedFiles,
		// HTTP auth & headers (redacted)
		"FollowRedirects":  c.FollowRedirects,
		"HTTPAuthUser":     c.HTTPAuthUser,
		"HTTPAuthPassword": mask(c.HTTPAuthPassword),
		"HTTPHeaders":      maskMap(c.HTTPHeaders),
		"UserAgent":        c.UserAgent,
	}
}
