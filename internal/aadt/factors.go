package aadt

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// maxFactorFileSize caps the factor table file at 1MB.
const maxFactorFileSize = 1 * 1024 * 1024

// LoadFactorTable loads an AADT factor table from a JSON file. Partial
// tables are allowed; missing keys force fallback mode for the contexts
// they would have covered.
func LoadFactorTable(path string) (*FactorTable, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("factor table must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat factor table: %w", err)
	}
	if fileInfo.Size() > maxFactorFileSize {
		return nil, fmt.Errorf("factor table too large: %d bytes (max %d)", fileInfo.Size(), maxFactorFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read factor table: %w", err)
	}

	var table FactorTable
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse factor table JSON: %w", err)
	}
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("invalid factor table: %w", err)
	}
	return &table, nil
}

// Validate rejects non-positive expansion factors and negative hour
// shares. A zero hour share is legal in the table; it triggers fallback at
// lookup time instead of a division by zero.
func (t *FactorTable) Validate() error {
	for day, v := range t.Weekday {
		if v <= 0 {
			return fmt.Errorf("F_DOW[%s] must be positive, got %v", day, v)
		}
	}
	for month, v := range t.Month {
		if v <= 0 {
			return fmt.Errorf("F_MOY[%s] must be positive, got %v", month, v)
		}
	}
	for hour, v := range t.Hours {
		if v < 0 {
			return fmt.Errorf("HOD_share[%s] must not be negative, got %v", hour, v)
		}
	}
	return nil
}
