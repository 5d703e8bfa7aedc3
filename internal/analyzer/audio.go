package analyzer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultFormat is assumed when a file has no recognizable extension.
const DefaultFormat = "wav"

var supportedFormats = map[string]struct{}{
	"wav":  {},
	"mp3":  {},
	"m4a":  {},
	"ogg":  {},
	"webm": {},
	"flac": {},
}

// ReadAudio loads a recording and derives its format from the extension.
func ReadAudio(path string) ([]byte, string, error) {
	return readAudio(path, "")
}

func readAudio(path, format string) ([]byte, string, error) {
	if format == "" {
		var err error
		format, err = FormatFromPath(path)
		if err != nil {
			return nil, "", err
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read audio %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("read audio %s: %w", path, ErrNoAudio)
	}
	return data, format, nil
}

// FormatFromPath maps a file extension to an audio format name.
func FormatFromPath(path string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "" {
		return DefaultFormat, nil
	}
	if ext == "opus" {
		return "ogg", nil
	}
	if _, ok := supportedFormats[ext]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return ext, nil
}
