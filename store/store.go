package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// NotFoundError names the artifact a resumed run expected to find.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string { return "artifact not found: " + e.Path }

// SaveJSON writes v as indented JSON, creating parent directories.
func SaveJSON(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create parent for %s: %w", path, err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// LoadJSON reads a JSON artifact into out. A missing file is reported as a
// NotFoundError so callers can name the expected path in their message.
func LoadJSON(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &NotFoundError{Path: path}
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("invalid JSON in %s: %w", path, err)
	}
	return nil
}

// EnsureDir creates the directory if needed and returns its path.
func EnsureDir(path string) (string, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return "", fmt.Errorf("create dir %s: %w", path, err)
	}
	return path, nil
}

var (
	unsafeChars   = regexp.MustCompile(`[<>:"/\\|?*]`)
	nonWordChars  = regexp.MustCompile(`[^\w\-.]`)
	repeatedScore = regexp.MustCompile(`_+`)
)

// Sanitize converts free text into a filesystem-safe token.
func Sanitize(text string) string {
	safe := unsafeChars.ReplaceAllString(text, "")
	safe = nonWordChars.ReplaceAllString(safe, "_")
	safe = repeatedScore.ReplaceAllString(safe, "_")
	for len(safe) > 0 && safe[0] == '_' {
		safe = safe[1:]
	}
	for len(safe) > 0 && safe[len(safe)-1] == '_' {
		safe = safe[:len(safe)-1]
	}
	if safe == "" {
		return "untitled"
	}
	return safe
}

// NumberedDir creates the first free NN_name directory under root. One
// numbered directory is the identity of a single pipeline run.
func NumberedDir(root, name string) (string, error) {
	if _, err := EnsureDir(root); err != nil {
		return "", err
	}
	safe := Sanitize(name)
	for counter := 1; ; counter++ {
		dir := filepath.Join(root, fmt.Sprintf("%02d_%s", counter, safe))
		if _, err := os.Stat(dir); err == nil {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("create run dir %s: %w", dir, err)
		}
		return dir, nil
	}
}

// FileExists fails with a message naming what was being looked for.
func FileExists(path, description string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%s not found: %s", description, path)
	}
	return nil
}
