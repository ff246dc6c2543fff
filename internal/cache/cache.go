package cache

// Entry 某一 transcript 上次摘要的持久化记录；仅当指纹匹配时有效
// Entry is the persisted summary of one transcript, valid only while its
// fingerprint matches the transcript's current fingerprint.
type Entry struct {
	Fingerprint  string   `json:"fingerprint"`
	Title        string   `json:"title"`
	Bullets      []string `json:"bullets"`
	MessageCount int      `json:"message_count"`
	ComputedAt   string   `json:"computed_at"` // RFC3339 UTC
}

// Miss 区分命中、从未摘要、内容已变三种查找结果
// Miss distinguishes a hit from the two kinds of cache miss
type Miss int

const (
	// Hit 条目存在且指纹一致
	// Hit means the entry exists and the fingerprint matches
	Hit Miss = iota
	// MissNever 该 transcript 从未被摘要过
	// MissNever means the transcript was never summarized
	MissNever
	// MissStale 条目存在但指纹不一致，内容可能已变化
	// MissStale means an entry exists but its fingerprint differs; content may have changed
	MissStale
)

func (m Miss) String() string {
	switch m {
	case Hit:
		return "hit"
	case MissStale:
		return "stale"
	default:
		return "never"
	}
}

// Store 摘要缓存的持久化接口，支持多后端 (JSON / SQLite)
// Store is the summary-cache persistence interface supporting multiple
// backends (per-project JSON files, SQLite). The cache is an optimization
// only: a corrupt or unreadable backing store behaves as an empty cache
// and is never fatal.
type Store interface {
	// Lookup 返回 project/key 对应的条目；仅当指纹一致时为 Hit
	// Lookup returns the entry for project/key; Hit only when fingerprint matches
	Lookup(project, key, fingerprint string) (Entry, Miss)

	// Put 以当前指纹覆盖写入条目并立即持久化
	// Put overwrites the entry and persists immediately (no write-behind)
	Put(project, key string, entry Entry) error

	// Delete 删除单个条目（空会话清理时使用）
	// Delete removes a single entry (used by empty-session cleanup)
	Delete(project, key string) error

	// InvalidateProject 清空一个项目的全部条目（显式缓存重置）
	// InvalidateProject clears all entries of one project (explicit reset)
	InvalidateProject(project string) error

	Close() error
}
