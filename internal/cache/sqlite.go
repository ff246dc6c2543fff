package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	_ "modernc.org/sqlite"
)

// SQLiteStore 基于 SQLite (WAL 模式) 的缓存后端
// SQLiteStore is the SQLite (WAL mode) cache backend. All projects share
// one database under the summaries root.
type SQLiteStore struct {
	db   *sql.DB
	path string
	log  zerolog.Logger
}

// NewSQLiteStore 创建并初始化数据库
// NewSQLiteStore creates and initializes the database
func NewSQLiteStore(dbPath string, log zerolog.Logger) (*SQLiteStore, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("sqlite db path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// 启用 WAL 模式和优化 PRAGMA / Enable WAL and performance PRAGMAs
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}

	store := &SQLiteStore{db: db, path: dbPath, log: log}
	if err := store.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) ensureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS summaries (
		project       TEXT NOT NULL,
		key           TEXT NOT NULL,
		fingerprint   TEXT NOT NULL,
		title         TEXT NOT NULL DEFAULT '',
		bullets       TEXT NOT NULL DEFAULT '[]',
		message_count INTEGER NOT NULL DEFAULT 0,
		computed_at   TEXT NOT NULL,
		PRIMARY KEY(project, key)
	);

	CREATE INDEX IF NOT EXISTS idx_summaries_project ON summaries(project);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close 关闭数据库连接 / Close the database connection
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Lookup(project, key, fingerprint string) (Entry, Miss) {
	row := s.db.QueryRow(`
		SELECT fingerprint, title, bullets, message_count, computed_at
		FROM summaries WHERE project=? AND key=?`, project, key)

	var entry Entry
	var bulletsJSON string
	err := row.Scan(&entry.Fingerprint, &entry.Title, &bulletsJSON,
		&entry.MessageCount, &entry.ComputedAt)
	if err != nil {
		if err != sql.ErrNoRows {
			// 查询失败按未摘要处理，缓存绝不致命
			// query failures degrade to a miss; the cache is never fatal
			s.log.Warn().Err(err).Str("project", project).Str("key", key).
				Msg("cache lookup failed, treating as miss")
		}
		return Entry{}, MissNever
	}
	if bulletsJSON != "" && bulletsJSON != "[]" {
		if err := json.Unmarshal([]byte(bulletsJSON), &entry.Bullets); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("malformed bullets in cache row")
			return Entry{}, MissNever
		}
	}
	if entry.Fingerprint != fingerprint {
		return Entry{}, MissStale
	}
	return entry, Hit
}

func (s *SQLiteStore) Put(project, key string, entry Entry) error {
	bulletsJSON := "[]"
	if len(entry.Bullets) > 0 {
		data, err := json.Marshal(entry.Bullets)
		if err != nil {
			return fmt.Errorf("marshal bullets: %w", err)
		}
		bulletsJSON = string(data)
	}
	if strings.TrimSpace(entry.ComputedAt) == "" {
		entry.ComputedAt = time.Now().UTC().Format(time.RFC3339)
	}
	_, err := s.db.Exec(`
		INSERT INTO summaries (project, key, fingerprint, title, bullets, message_count, computed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project, key) DO UPDATE SET
			fingerprint=excluded.fingerprint,
			title=excluded.title,
			bullets=excluded.bullets,
			message_count=excluded.message_count,
			computed_at=excluded.computed_at`,
		project, key, entry.Fingerprint, entry.Title, bulletsJSON,
		entry.MessageCount, entry.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert summary: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(project, key string) error {
	if _, err := s.db.Exec(`DELETE FROM summaries WHERE project=? AND key=?`, project, key); err != nil {
		return fmt.Errorf("delete summary: %w", err)
	}
	return nil
}

func (s *SQLiteStore) InvalidateProject(project string) error {
	if _, err := s.db.Exec(`DELETE FROM summaries WHERE project=?`, project); err != nil {
		return fmt.Errorf("invalidate project %q: %w", project, err)
	}
	return nil
}
