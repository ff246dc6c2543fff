package transcript

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// Projects walks the transcripts root and returns project directories
// containing at least one transcript, sorted most-recent-first. A missing
// or unreadable root is an error (configuration problem); an unreadable
// subdirectory is logged and skipped.
func Projects(root string, log zerolog.Logger) ([]Project, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read transcripts root %q: %w", root, err)
	}

	var projects []Project
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		dir := filepath.Join(root, e.Name())
		count, err := countTranscripts(dir)
		if err != nil {
			log.Warn().Err(err).Str("project", e.Name()).Msg("skipping unreadable project directory")
			continue
		}
		if count == 0 {
			continue
		}
		info, err := e.Info()
		if err != nil {
			log.Warn().Err(err).Str("project", e.Name()).Msg("skipping project: stat failed")
			continue
		}
		projects = append(projects, Project{
			Name:         e.Name(),
			Path:         dir,
			ModTime:      info.ModTime(),
			SessionCount: count,
		})
	}

	sort.Slice(projects, func(i, j int) bool {
		return projects[i].ModTime.After(projects[j].ModTime)
	})
	return projects, nil
}

// Sessions lists the transcripts of one project directory, sorted
// most-recent-first. Unreadable files are logged and skipped; empty files
// are included (they are flagged once parsed, never silently dropped).
func Sessions(project Project, log zerolog.Logger) ([]File, error) {
	entries, err := os.ReadDir(project.Path)
	if err != nil {
		return nil, fmt.Errorf("read project dir %q: %w", project.Path, err)
	}

	var files []File
	for _, e := range entries {
		// only top-level .jsonl files; subdirectories hold subagent logs
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".jsonl") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			log.Warn().Err(err).Str("file", e.Name()).Msg("skipping transcript: stat failed")
			continue
		}
		files = append(files, File{
			Path:         filepath.Join(project.Path, e.Name()),
			Project:      project.Name,
			SessionID:    strings.TrimSuffix(e.Name(), ".jsonl"),
			ModTime:      info.ModTime(),
			Size:         info.Size(),
			MessageCount: -1,
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ModTime.After(files[j].ModTime)
	})
	return files, nil
}

func countTranscripts(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".jsonl") {
			count++
		}
	}
	return count, nil
}
