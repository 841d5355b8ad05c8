package runs

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteJSONL writes records to path as newline-delimited JSON. The file is
// written to a temporary sibling and renamed into place so readers never see
// a partial artifact.
func WriteJSONL[T any](path string, records []T) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	writer := bufio.NewWriter(tmp)
	encoder := json.NewEncoder(writer)
	for i, record := range records {
		if err := encoder.Encode(record); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("encode record %d: %w", i, err)
		}
	}
	if err := writer.Flush(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("flush artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename artifact into place: %w", err)
	}
	return nil
}

// ReadJSONL reads newline-delimited JSON records from path. Malformed lines
// are skipped and counted rather than aborting the read, so a single bad
// record does not poison a whole artifact.
func ReadJSONL[T any](path string) ([]T, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open artifact: %w", err)
	}
	defer file.Close()

	var (
		records   []T
		malformed int
	)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record T
		if err := json.Unmarshal(line, &record); err != nil {
			malformed++
			continue
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, malformed, fmt.Errorf("scan artifact: %w", err)
	}
	return records, malformed, nil
}
