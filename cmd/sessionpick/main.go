package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"sessionpick/internal/cache"
	"sessionpick/internal/config"
	"sessionpick/internal/launch"
	"sessionpick/internal/logging"
	"sessionpick/internal/pipeline"
	"sessionpick/internal/summarize"
	"sessionpick/internal/transcript"
	"sessionpick/internal/tui"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to config JSON/JSONC")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Roots.Validate(); err != nil {
		cfg, err = runWizard(cfg, configPath, os.Stdout)
		if err != nil {
			fmt.Fprintf(os.Stderr, "setup failed: %v\n", err)
			os.Exit(1)
		}
	}

	log, logCloser := logging.New(cfg.Roots.SummariesDir, cfg.Log.Level)
	defer logCloser.Close()

	store := openStore(cfg, log)
	defer store.Close()

	service := summarize.NewService(newBackend(cfg, log), cfg.Summarizer.ExcerptTokens, cfg.Summarizer.TimeoutMS, log)
	runner := &pipeline.Runner{Store: store, Summarizer: service, Log: log}

	projects, err := transcript.Projects(cfg.Roots.TranscriptsDir, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot read transcripts dir %s: %v\n", cfg.Roots.TranscriptsDir, err)
		os.Exit(1)
	}
	if len(projects) == 0 {
		fmt.Printf("no Claude Code projects found under %s\n", cfg.Roots.TranscriptsDir)
		os.Exit(0)
	}

	model := tui.NewModel(projects, runner, log)
	program := tea.NewProgram(model, tea.WithAltScreen())
	final, err := program.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "terminal UI failed: %v\n", err)
		os.Exit(1)
	}

	finished, ok := final.(tui.Model)
	if !ok {
		os.Exit(0)
	}
	req := finished.LaunchRequest()
	if req == nil {
		os.Exit(0)
	}

	// Handoff happens after the TUI has restored the terminal, so claude
	// inherits a clean tty.
	if err := launch.Run(*req); err != nil {
		code := launch.ExitCode(err)
		if code < 0 {
			fmt.Fprintf(os.Stderr, "resume failed: %v\n", err)
			fmt.Fprintf(os.Stderr, "run it yourself with:\n  %s\n", launch.ShellCommand(*req))
			os.Exit(1)
		}
		os.Exit(code)
	}
}

// openStore 按配置选择缓存后端；SQLite 打开失败时回退 JSON
// openStore picks the cache backend; a SQLite open failure falls back to JSON.
func openStore(cfg config.Config, log zerolog.Logger) cache.Store {
	if cfg.Cache.Backend == "sqlite" {
		dbPath := filepath.Join(cfg.Roots.SummariesDir, "summaries.db")
		store, err := cache.NewSQLiteStore(dbPath, log)
		if err == nil {
			return store
		}
		log.Warn().Err(err).Str("path", dbPath).Msg("sqlite cache unavailable, falling back to json")
	}
	store, err := cache.NewJSONStore(cfg.Roots.SummariesDir, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot create cache dir %s: %v\n", cfg.Roots.SummariesDir, err)
		os.Exit(1)
	}
	return store
}

func newBackend(cfg config.Config, log zerolog.Logger) summarize.Backend {
	if cfg.Summarizer.Backend == "api" {
		return summarize.NewAPIBackend(summarize.APIConfig{
			BaseURL:   cfg.Summarizer.BaseURL,
			APIKey:    cfg.Summarizer.APIKey,
			Model:     cfg.Summarizer.Model,
			TimeoutMS: cfg.Summarizer.TimeoutMS,
		})
	}
	backend := summarize.NewCLIBackend("claude")
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if !backend.Available(ctx) {
		log.Warn().Msg("claude command not found, summaries will be unavailable")
	}
	return backend
}
