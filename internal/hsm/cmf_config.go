package hsm

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// maxCMFFileSize caps the CMF config file at 1MB.
const maxCMFFileSize = 1 * 1024 * 1024

// LoadCMFSet loads a crash modification factor bundle from a JSON file.
// The file holds an array of CMF objects.
func LoadCMFSet(path string) (CMFSet, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("CMF config must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat CMF config: %w", err)
	}
	if fileInfo.Size() > maxCMFFileSize {
		return nil, fmt.Errorf("CMF config too large: %d bytes (max %d)", fileInfo.Size(), maxCMFFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read CMF config: %w", err)
	}

	var set CMFSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to parse CMF config JSON: %w", err)
	}
	if err := set.Validate(); err != nil {
		return nil, fmt.Errorf("invalid CMF config: %w", err)
	}
	return set, nil
}
