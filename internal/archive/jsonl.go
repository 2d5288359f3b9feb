package archive

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"lighthouse/internal/forecast"

	"github.com/rs/zerolog/log"
)

// JSONLStore appends one JSON line per archived forecast to a single file.
type JSONLStore struct {
	mu          sync.RWMutex
	path        string
	percentiles []int
	entries     map[string][]Entry // by feature ID
}

// OpenJSONL loads the existing archive at path, if any.
func OpenJSONL(path string, percentiles []int) (*JSONLStore, error) {
	if path == "" {
		return nil, fmt.Errorf("jsonl archive needs a file path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	s := &JSONLStore{
		path:        path,
		percentiles: percentiles,
		entries:     make(map[string][]Entry),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *JSONLStore) load() error {
	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // No archive yet, not an error
		}
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer file.Close()

	count := 0
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			log.Warn().Err(err).Str("path", s.path).Msg("Skipping invalid JSON line in archive")
			continue
		}
		s.entries[e.FeatureID] = append(s.entries[e.FeatureID], e)
		count++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading archive: %w", err)
	}

	for id := range s.entries {
		sortEntries(s.entries[id])
	}
	log.Debug().Str("path", s.path).Int("count", count).Msg("Loaded forecast archive")
	return nil
}

// ArchiveFeature appends the feature's current forecast.
func (s *JSONLStore) ArchiveFeature(ctx context.Context, f *forecast.Feature) error {
	entry, err := NewEntry(f, s.percentiles)
	if err != nil {
		return err
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode archive entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	if _, err := file.Write(append(line, '\n')); err != nil {
		file.Close()
		return fmt.Errorf("failed to append archive entry: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close archive: %w", err)
	}

	s.entries[entry.FeatureID] = append(s.entries[entry.FeatureID], entry)
	sortEntries(s.entries[entry.FeatureID])
	return nil
}

// History returns the archived entries of a feature.
func (s *JSONLStore) History(ctx context.Context, featureID string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entry(nil), s.entries[featureID]...), nil
}

// Compact rewrites the archive keeping only the newest keep entries per
// feature. The file is replaced atomically.
func (s *JSONLStore) Compact(keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make(map[string][]Entry, len(s.entries))
	for id, list := range s.entries {
		if keep > 0 && len(list) > keep {
			list = list[len(list)-keep:]
		}
		kept[id] = append([]Entry(nil), list...)
	}

	tmpPath := s.path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp archive file: %w", err)
	}

	writer := bufio.NewWriter(file)
	encoder := json.NewEncoder(writer)
	count := 0
	for _, list := range kept {
		for _, e := range list {
			if err := encoder.Encode(e); err != nil {
				file.Close()
				os.Remove(tmpPath)
				return fmt.Errorf("failed to encode archive entry: %w", err)
			}
			count++
		}
	}

	if err := writer.Flush(); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to flush writer: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename archive file: %w", err)
	}
	s.entries = kept

	log.Info().Str("path", s.path).Int("count", count).Msg("Compacted forecast archive")
	return nil
}

func (s *JSONLStore) Close() error { return nil }
