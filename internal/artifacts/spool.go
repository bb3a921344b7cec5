package artifacts

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"cpu-verify/internal/bench"
)

// WriteOutcome writes the outcome as gzip-compressed JSON. The file appears
// atomically under path. It returns the final path.
func WriteOutcome(path string, o *bench.RunOutcome) (string, error) {
	if o == nil {
		return "", fmt.Errorf("outcome is nil")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()

	ok := false
	defer func() {
		_ = tmp.Close()
		if !ok {
			_ = os.Remove(tmpPath)
		}
	}()

	gz := gzip.NewWriter(tmp)
	enc := json.NewEncoder(gz)
	enc.SetIndent("", "  ")
	if err := enc.Encode(o); err != nil {
		_ = gz.Close()
		return "", fmt.Errorf("failed to encode outcome: %w", err)
	}
	if err := gz.Close(); err != nil {
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return "", err
	}
	ok = true
	return path, nil
}

// ReadOutcome loads a file written by WriteOutcome.
func ReadOutcome(path string) (*bench.RunOutcome, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer gz.Close()

	var o bench.RunOutcome
	if err := json.NewDecoder(gz).Decode(&o); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return &o, nil
}
