package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"
)

// JSONStore 每个项目一个缓存文件（<project>.json）的默认后端
// JSONStore is the default backend: one cache file per project, named
// after the project, living under the summaries root. Writes are guarded
// by a file lock and applied by atomic replace; the picker does not
// assume it is the only writer.
type JSONStore struct {
	dir string
	log zerolog.Logger

	mu     sync.Mutex
	loaded map[string]map[string]Entry // project -> key -> entry
}

// NewJSONStore 创建 JSON 后端；目录按需创建
// NewJSONStore creates the JSON backend, creating the directory on demand
func NewJSONStore(dir string, log zerolog.Logger) (*JSONStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create summaries dir %q: %w", dir, err)
	}
	return &JSONStore{
		dir:    dir,
		log:    log,
		loaded: make(map[string]map[string]Entry),
	}, nil
}

func (s *JSONStore) Lookup(project, key, fingerprint string) (Entry, Miss) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.projectEntries(project)
	entry, ok := entries[key]
	if !ok {
		return Entry{}, MissNever
	}
	if entry.Fingerprint != fingerprint {
		return Entry{}, MissStale
	}
	return entry, Hit
}

func (s *JSONStore) Put(project, key string, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.projectEntries(project)
	entries[key] = entry
	return s.persist(project, entries)
}

func (s *JSONStore) Delete(project, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.projectEntries(project)
	if _, ok := entries[key]; !ok {
		return nil
	}
	delete(entries, key)
	return s.persist(project, entries)
}

func (s *JSONStore) InvalidateProject(project string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loaded[project] = make(map[string]Entry)
	path := s.cacheFile(project)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove cache file %q: %w", path, err)
	}
	return nil
}

func (s *JSONStore) Close() error { return nil }

func (s *JSONStore) cacheFile(project string) string {
	// project names are encoded directory names; they contain no path
	// separators and are safe as filenames
	return filepath.Join(s.dir, project+".json")
}

// projectEntries 返回项目的条目表，必要时从磁盘加载；损坏的文件按空缓存处理
// projectEntries returns the project's entry map, loading from disk on
// first use. A corrupt or unreadable file degrades to an empty cache.
func (s *JSONStore) projectEntries(project string) map[string]Entry {
	if entries, ok := s.loaded[project]; ok {
		return entries
	}

	entries := make(map[string]Entry)
	data, err := os.ReadFile(s.cacheFile(project))
	switch {
	case err == nil:
		if jsonErr := json.Unmarshal(data, &entries); jsonErr != nil {
			s.log.Warn().Err(jsonErr).Str("project", project).
				Msg("cache file malformed, treating as empty")
			entries = make(map[string]Entry)
		}
	case errors.Is(err, os.ErrNotExist):
		// never summarized
	default:
		s.log.Warn().Err(err).Str("project", project).
			Msg("cache file unreadable, treating as empty")
	}

	s.loaded[project] = entries
	return entries
}

func (s *JSONStore) persist(project string, entries map[string]Entry) error {
	path := s.cacheFile(project)

	lock := flock.New(path + ".lock")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	locked, err := lock.TryLockContext(ctx, 50*time.Millisecond)
	if err == nil && locked {
		defer func() { _ = lock.Unlock() }()
	} else if err != nil {
		// another writer holds the lock longer than expected; proceed with
		// the atomic replace anyway, last write wins
		s.log.Warn().Err(err).Str("project", project).Msg("cache lock not acquired")
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache for %q: %w", project, err)
	}

	tmp, err := os.CreateTemp(s.dir, project+".json.tmp*")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp cache file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace cache file %q: %w", path, err)
	}
	return nil
}
