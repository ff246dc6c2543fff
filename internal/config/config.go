package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// RootsConfig 两个已解析的根目录及其来源
// RootsConfig holds the two resolved roots and how they were obtained
type RootsConfig struct {
	// TranscriptsDir Claude Code projects 根目录（每个子目录一个项目）
	// TranscriptsDir is the Claude Code projects root (one subdirectory per project)
	TranscriptsDir string `json:"transcripts_dir"`
	// SummariesDir 摘要缓存根目录（每个项目一个缓存文件）
	// SummariesDir is the summary cache root (one cache file per project)
	SummariesDir string `json:"summaries_dir"`
	// AutoDetected 为 true 表示路径来自自动探测而非用户输入
	// AutoDetected is true when the paths came from auto-detection, not user input
	AutoDetected bool `json:"auto_detected"`
}

// SummarizerConfig 摘要后端配置
// SummarizerConfig configures the summarization backend
type SummarizerConfig struct {
	// Backend "cli" 调用本地 claude 命令; "api" 走 OpenAI 兼容接口
	// Backend: "cli" shells out to the local claude command; "api" uses an OpenAI-compatible endpoint
	Backend       string `json:"backend"`
	BaseURL       string `json:"base_url"`
	Model         string `json:"model"`
	APIKey        string `json:"api_key"`
	TimeoutMS     int    `json:"timeout_ms"`
	ExcerptTokens int    `json:"excerpt_tokens"`
}

// CacheConfig 缓存后端配置
// CacheConfig configures the summary cache backend
type CacheConfig struct {
	// Backend "json" 每项目一个 JSON 文件（默认）; "sqlite" 单库
	// Backend: "json" keeps one JSON file per project (default); "sqlite" uses a single database
	Backend string `json:"backend"`
}

type LogConfig struct {
	Level string `json:"level"`
}

// Config 进程级配置，启动时构造一次后只读
// Config is built once at startup and read-only afterwards
type Config struct {
	Roots      RootsConfig      `json:"roots"`
	Summarizer SummarizerConfig `json:"summarizer"`
	Cache      CacheConfig      `json:"cache"`
	Log        LogConfig        `json:"log"`
}

type fileRootsConfig struct {
	TranscriptsDir *string `json:"transcripts_dir"`
	SummariesDir   *string `json:"summaries_dir"`
	AutoDetected   *bool   `json:"auto_detected"`
}

type fileConfig struct {
	Roots      *fileRootsConfig  `json:"roots"`
	Summarizer *SummarizerConfig `json:"summarizer"`
	Cache      *CacheConfig      `json:"cache"`
	Log        *LogConfig        `json:"log"`
}

// ErrRootsUnresolved 表示 transcripts 根目录缺失或不可用，需要运行向导
// ErrRootsUnresolved means the transcripts root is missing or unusable and the wizard must run
var ErrRootsUnresolved = errors.New("transcripts root is not resolved")

func Default() Config {
	return Config{
		Summarizer: SummarizerConfig{
			Backend:       "cli",
			BaseURL:       "https://api.openai.com/v1",
			Model:         "gpt-4o-mini",
			TimeoutMS:     30000,
			ExcerptTokens: 600,
		},
		Cache: CacheConfig{Backend: "json"},
		Log:   LogConfig{Level: "info"},
	}
}

// Path 返回配置文件路径；SESSIONPICK_CONFIG_PATH 可覆盖
// Path returns the config file path; SESSIONPICK_CONFIG_PATH overrides it
func Path() string {
	if v := strings.TrimSpace(os.Getenv("SESSIONPICK_CONFIG_PATH")); v != "" {
		if resolved, err := expandPath(v); err == nil {
			return resolved
		}
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".sessionpick", "config.json")
}

// Load 读取配置：默认值 → 配置文件 → 环境变量，最后归一化
// Load builds the config: defaults, then the config file, then env overrides, then normalization
func Load(path string) (Config, error) {
	cfg := Default()

	resolvedPath := strings.TrimSpace(path)
	if resolvedPath == "" {
		resolvedPath = Path()
	}
	if err := mergeFromFile(&cfg, resolvedPath); err != nil {
		return Config{}, err
	}

	cfg = applyEnv(cfg)
	if err := normalize(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save 持久化配置；向导完成后调用
// Save persists the config; called after the wizard completes
func Save(cfg Config, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		path = Path()
	}
	if path == "" {
		return errors.New("config path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %q: %w", path, err)
	}
	return nil
}

// DetectRoots 探测默认的 Claude 目录布局；未找到时返回 ErrRootsUnresolved
// DetectRoots probes the default Claude directory layout; returns ErrRootsUnresolved when not found
func DetectRoots() (RootsConfig, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return RootsConfig{}, fmt.Errorf("resolve home dir: %w", err)
	}
	projects := filepath.Join(home, ".claude", "projects")
	info, err := os.Stat(projects)
	if err != nil || !info.IsDir() {
		return RootsConfig{}, ErrRootsUnresolved
	}
	return RootsConfig{
		TranscriptsDir: projects,
		SummariesDir:   filepath.Join(home, ".claude", "session-summaries"),
		AutoDetected:   true,
	}, nil
}

// Validate 检查两个根目录；transcripts 根必须已存在，summaries 根按需创建
// Validate checks both roots; the transcripts root must exist, the summaries root is created on demand
func (r RootsConfig) Validate() error {
	if strings.TrimSpace(r.TranscriptsDir) == "" {
		return ErrRootsUnresolved
	}
	info, err := os.Stat(r.TranscriptsDir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrRootsUnresolved, r.TranscriptsDir)
	}
	if strings.TrimSpace(r.SummariesDir) == "" {
		return ErrRootsUnresolved
	}
	if err := os.MkdirAll(r.SummariesDir, 0o755); err != nil {
		return fmt.Errorf("create summaries dir: %w", err)
	}
	return nil
}

func mergeFromFile(cfg *Config, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}

	resolved, err := expandPath(path)
	if err != nil {
		return fmt.Errorf("expand config path %q: %w", path, err)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %q: %w", resolved, err)
	}

	cleaned := stripJSONComments(data)
	var fc fileConfig
	if err := json.Unmarshal(cleaned, &fc); err != nil {
		return fmt.Errorf("parse config %q: %w", resolved, err)
	}
	applyFileConfig(cfg, fc)
	return nil
}

func applyFileConfig(cfg *Config, fc fileConfig) {
	if fc.Roots != nil {
		if fc.Roots.TranscriptsDir != nil {
			cfg.Roots.TranscriptsDir = *fc.Roots.TranscriptsDir
		}
		if fc.Roots.SummariesDir != nil {
			cfg.Roots.SummariesDir = *fc.Roots.SummariesDir
		}
		if fc.Roots.AutoDetected != nil {
			cfg.Roots.AutoDetected = *fc.Roots.AutoDetected
		}
	}
	if fc.Summarizer != nil {
		cfg.Summarizer = mergeSummarizer(cfg.Summarizer, *fc.Summarizer)
	}
	if fc.Cache != nil && strings.TrimSpace(fc.Cache.Backend) != "" {
		cfg.Cache.Backend = fc.Cache.Backend
	}
	if fc.Log != nil && strings.TrimSpace(fc.Log.Level) != "" {
		cfg.Log.Level = fc.Log.Level
	}
}

func mergeSummarizer(base SummarizerConfig, override SummarizerConfig) SummarizerConfig {
	if strings.TrimSpace(override.Backend) != "" {
		base.Backend = override.Backend
	}
	if strings.TrimSpace(override.BaseURL) != "" {
		base.BaseURL = override.BaseURL
	}
	if strings.TrimSpace(override.Model) != "" {
		base.Model = override.Model
	}
	if strings.TrimSpace(override.APIKey) != "" {
		base.APIKey = override.APIKey
	}
	if override.TimeoutMS > 0 {
		base.TimeoutMS = override.TimeoutMS
	}
	if override.ExcerptTokens > 0 {
		base.ExcerptTokens = override.ExcerptTokens
	}
	return base
}

func applyEnv(cfg Config) Config {
	if v := strings.TrimSpace(os.Getenv("SESSIONPICK_TRANSCRIPTS_DIR")); v != "" {
		cfg.Roots.TranscriptsDir = v
		cfg.Roots.AutoDetected = false
	}
	if v := strings.TrimSpace(os.Getenv("SESSIONPICK_SUMMARIES_DIR")); v != "" {
		cfg.Roots.SummariesDir = v
		cfg.Roots.AutoDetected = false
	}
	if v := strings.TrimSpace(os.Getenv("SESSIONPICK_SUMMARIZER")); v != "" {
		cfg.Summarizer.Backend = v
	}
	if v := strings.TrimSpace(os.Getenv("SESSIONPICK_BASE_URL")); v != "" {
		cfg.Summarizer.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("SESSIONPICK_MODEL")); v != "" {
		cfg.Summarizer.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("SESSIONPICK_API_KEY")); v != "" {
		cfg.Summarizer.APIKey = v
	} else if v := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); v != "" && cfg.Summarizer.APIKey == "" {
		cfg.Summarizer.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("SESSIONPICK_EXCERPT_TOKENS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Summarizer.ExcerptTokens = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("SESSIONPICK_CACHE_BACKEND")); v != "" {
		cfg.Cache.Backend = v
	}
	if v := strings.TrimSpace(os.Getenv("SESSIONPICK_LOG_LEVEL")); v != "" {
		cfg.Log.Level = v
	}
	return cfg
}

func normalize(cfg *Config) error {
	def := Default()

	switch strings.ToLower(strings.TrimSpace(cfg.Summarizer.Backend)) {
	case "cli", "api":
		cfg.Summarizer.Backend = strings.ToLower(strings.TrimSpace(cfg.Summarizer.Backend))
	default:
		cfg.Summarizer.Backend = def.Summarizer.Backend
	}
	if strings.TrimSpace(cfg.Summarizer.BaseURL) == "" {
		cfg.Summarizer.BaseURL = def.Summarizer.BaseURL
	}
	if strings.TrimSpace(cfg.Summarizer.Model) == "" {
		cfg.Summarizer.Model = def.Summarizer.Model
	}
	if cfg.Summarizer.TimeoutMS <= 0 {
		cfg.Summarizer.TimeoutMS = def.Summarizer.TimeoutMS
	}
	if cfg.Summarizer.ExcerptTokens <= 0 {
		cfg.Summarizer.ExcerptTokens = def.Summarizer.ExcerptTokens
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Cache.Backend)) {
	case "json", "sqlite":
		cfg.Cache.Backend = strings.ToLower(strings.TrimSpace(cfg.Cache.Backend))
	default:
		cfg.Cache.Backend = def.Cache.Backend
	}

	if strings.TrimSpace(cfg.Log.Level) == "" {
		cfg.Log.Level = def.Log.Level
	}

	var err error
	if cfg.Roots.TranscriptsDir, err = expandOptional(cfg.Roots.TranscriptsDir); err != nil {
		return err
	}
	if cfg.Roots.SummariesDir, err = expandOptional(cfg.Roots.SummariesDir); err != nil {
		return err
	}
	return nil
}

func expandOptional(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if strings.HasPrefix(path, "~/") || path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		if path == "~" {
			path = home
		} else {
			path = filepath.Join(home, strings.TrimPrefix(path, "~/"))
		}
	}
	return filepath.Abs(path)
}

func stripJSONComments(data []byte) []byte {
	const (
		stateNormal = iota
		stateString
		stateLineComment
		stateBlockComment
	)

	state := stateNormal
	escaped := false
	out := bytes.Buffer{}

	for i := 0; i < len(data); i++ {
		c := data[i]
		next := byte(0)
		if i+1 < len(data) {
			next = data[i+1]
		}

		switch state {
		case stateNormal:
			if c == '"' {
				state = stateString
				out.WriteByte(c)
				continue
			}
			if c == '/' && next == '/' {
				state = stateLineComment
				i++
				continue
			}
			if c == '/' && next == '*' {
				state = stateBlockComment
				i++
				continue
			}
			out.WriteByte(c)
		case stateString:
			out.WriteByte(c)
			if escaped {
				escaped = false
				continue
			}
			if c == '\\' {
				escaped = true
				continue
			}
			if c == '"' {
				state = stateNormal
			}
		case stateLineComment:
			if c == '\n' {
				state = stateNormal
				out.WriteByte(c)
			}
		case stateBlockComment:
			if c == '*' && next == '/' {
				state = stateNormal
				i++
			}
		}
	}

	return out.Bytes()
}
