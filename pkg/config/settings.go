package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"howett.net/plist"
	"sigs.k8s.io/yaml"
)

// Settings are the user preferences persisted between runs
type Settings struct {
	GameDir     string `json:"game_dir" plist:"game_dir"`
	LZMAMemCap  int    `json:"lzma_mem_cap" plist:"lzma_mem_cap"` // MiB, 0 = unbounded
	DownloadRaw bool   `json:"download_raw" plist:"download_raw"`
}

// DefaultSettings returns the settings a fresh install starts with
func DefaultSettings() *Settings {
	return &Settings{
		GameDir:     DefaultInstallRoot,
		LZMAMemCap:  DefaultLZMAMemCapMiB,
		DownloadRaw: false,
	}
}

// Format is a settings file encoding
type Format string

const (
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatPlist Format = "plist"
)

// FormatForPath picks the encoding from the file extension
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", "":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".plist":
		return FormatPlist, nil
	default:
		return "", fmt.Errorf("unsupported settings file extension: %s", filepath.Ext(path))
	}
}

// LoadSettings reads a settings file. A missing file is created with
// defaults, and keys missing from an existing file keep their defaults.
// created reports whether the file was written.
func LoadSettings(path string) (settings *Settings, created bool, err error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, false, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		settings = DefaultSettings()
		if err := SaveSettings(path, settings); err != nil {
			return nil, false, fmt.Errorf("failed to create settings file: %w", err)
		}
		return settings, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read settings file: %w", err)
	}

	settings, err = DecodeSettings(data, format)
	if err != nil {
		return nil, false, fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}
	return settings, false, nil
}

// DecodeSettings parses data on top of the defaults
func DecodeSettings(data []byte, format Format) (*Settings, error) {
	settings := DefaultSettings()
	if len(bytes.TrimSpace(data)) == 0 {
		return settings, nil
	}

	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, settings)
	case FormatYAML:
		err = yaml.Unmarshal(data, settings)
	case FormatPlist:
		_, err = plist.Unmarshal(data, settings)
	default:
		err = fmt.Errorf("unknown settings format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return settings, settings.Validate()
}

// EncodeSettings renders settings in format
func EncodeSettings(settings *Settings, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(settings, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case FormatYAML:
		return yaml.Marshal(settings)
	case FormatPlist:
		return plist.MarshalIndent(settings, plist.XMLFormat, "\t")
	default:
		return nil, fmt.Errorf("unknown settings format %q", format)
	}
}

// SaveSettings writes settings to path, creating parent directories
func SaveSettings(path string, settings *Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	format, err := FormatForPath(path)
	if err != nil {
		return err
	}
	data, err := EncodeSettings(settings, format)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks the settings values
func (s *Settings) Validate() error {
	if strings.TrimSpace(s.GameDir) == "" {
		return fmt.Errorf("game_dir cannot be empty")
	}
	if s.LZMAMemCap < 0 || s.LZMAMemCap > MaxLZMAMemCapMiB {
		return fmt.Errorf("lzma_mem_cap must be between 0 and %d, got %d", MaxLZMAMemCapMiB, s.LZMAMemCap)
	}
	return nil
}
