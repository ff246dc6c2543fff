package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"sessionpick/internal/config"
)

// runWizard 首次运行向导：探测或询问 transcripts 根目录，创建摘要目录并落盘配置
// runWizard is the first-run flow: detect or ask for the transcripts root,
// create the summaries dir, and persist the config.
func runWizard(cfg config.Config, configPath string, out io.Writer) (config.Config, error) {
	input := newLineInput()
	defer input.Close()

	fmt.Fprintln(out, "sessionpick needs to know where Claude Code keeps its transcripts.")

	roots, err := config.DetectRoots()
	if err == nil {
		fmt.Fprintf(out, "found transcripts at %s\n", roots.TranscriptsDir)
		ok, err := confirm(input, "use this directory? [Y/n] ")
		if err != nil {
			return config.Config{}, err
		}
		if ok {
			return finishWizard(cfg, roots, configPath, out)
		}
	} else {
		fmt.Fprintln(out, "no transcripts directory was auto-detected.")
	}

	roots, err = promptRoots(input, out)
	if err != nil {
		return config.Config{}, err
	}
	return finishWizard(cfg, roots, configPath, out)
}

func promptRoots(input lineInput, out io.Writer) (config.RootsConfig, error) {
	for {
		line, err := input.ReadLine("transcripts directory: ")
		if err != nil {
			return config.RootsConfig{}, fmt.Errorf("read transcripts dir: %w", err)
		}
		dir := expandHome(strings.TrimSpace(line))
		if dir == "" {
			continue
		}
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			fmt.Fprintf(out, "%s is not a readable directory, try again\n", dir)
			continue
		}
		return config.RootsConfig{
			TranscriptsDir: dir,
			SummariesDir:   filepath.Join(filepath.Dir(dir), "session-summaries"),
		}, nil
	}
}

func finishWizard(cfg config.Config, roots config.RootsConfig, configPath string, out io.Writer) (config.Config, error) {
	if err := os.MkdirAll(roots.SummariesDir, 0o755); err != nil {
		return config.Config{}, fmt.Errorf("create summaries dir: %w", err)
	}
	cfg.Roots = roots
	if err := config.Save(cfg, configPath); err != nil {
		return config.Config{}, fmt.Errorf("save config: %w", err)
	}
	fmt.Fprintf(out, "config saved, summaries will be cached under %s\n", roots.SummariesDir)
	return cfg, nil
}

func confirm(input lineInput, prompt string) (bool, error) {
	line, err := input.ReadLine(prompt)
	if err != nil {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "" || answer == "y" || answer == "yes", nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
