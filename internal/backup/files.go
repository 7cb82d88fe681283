package backup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Format selects the encoding of a snapshot file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts "json", "yaml" or "yml".
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported snapshot format %q", value)
	}
}

// FormatForPath infers the format from a file extension, defaulting to JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// DefaultFileName returns backup_YYYYMMDD_HHMMSS with the format's extension.
func DefaultFileName(now time.Time, format Format) string {
	return fmt.Sprintf("backup_%s.%s", now.Format("20060102_150405"), format)
}

// Encode renders a snapshot. JSON output is indented and leaves non-ASCII text unescaped.
func Encode(snapshot Snapshot, format Format) ([]byte, error) {
	if format == FormatYAML {
		return yaml.Marshal(snapshot)
	}
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(snapshot); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// WriteFile atomically writes a snapshot using the temp-file, fsync, rename pattern.
func WriteFile(path string, snapshot Snapshot, format Format) error {
	payload, err := Encode(snapshot, format)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// ReadFile loads a snapshot file for restore; the extension picks the decoder.
func ReadFile(path string) (RestoreRequest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return RestoreRequest{}, fmt.Errorf("reading %s: %w", path, err)
	}
	if FormatForPath(path) == FormatJSON {
		return DecodeRestoreRequest(raw)
	}

	var document map[string]any
	if err := yaml.Unmarshal(raw, &document); err != nil {
		return RestoreRequest{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return ParseRestoreRequest(document)
}
