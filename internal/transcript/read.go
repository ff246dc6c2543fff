package transcript

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// maxLineBytes bounds a single transcript line; tool results can be large.
const maxLineBytes = 1024 * 1024

type rawLine struct {
	Type    string `json:"type"`
	Summary string `json:"summary"`
	CWD     string `json:"cwd"`
	Message struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"message"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Parse reads a transcript file into an ordered message sequence plus
// derived metadata. Malformed lines are skipped, matching how the session
// files are written (interleaved records of several shapes).
func Parse(path string) (Conversation, error) {
	f, err := os.Open(path)
	if err != nil {
		return Conversation{}, fmt.Errorf("open transcript %q: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 256*1024), maxLineBytes)

	var conv Conversation
	index := 0
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var raw rawLine
		if err := json.Unmarshal(line, &raw); err != nil {
			continue
		}
		if conv.CWD == "" && raw.CWD != "" {
			conv.CWD = raw.CWD
		}
		switch raw.Type {
		case "summary":
			if s := strings.TrimSpace(raw.Summary); s != "" {
				conv.Summaries = append(conv.Summaries, s)
			}
		case "user", "assistant":
			conv.Messages = append(conv.Messages, Message{
				Role:  raw.Type,
				Text:  extractText(raw.Message.Content),
				Index: index,
			})
			index++
		}
	}
	if err := sc.Err(); err != nil {
		return conv, fmt.Errorf("scan transcript %q: %w", path, err)
	}
	return conv, nil
}

// extractText handles both content shapes: a plain string, or a list of
// blocks of which only the "text" ones matter.
func extractText(content json.RawMessage) string {
	if len(content) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(content, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var blocks []contentBlock
	if err := json.Unmarshal(content, &blocks); err != nil {
		return ""
	}
	var parts []string
	for _, b := range blocks {
		if b.Type == "text" && strings.TrimSpace(b.Text) != "" {
			parts = append(parts, strings.TrimSpace(b.Text))
		}
	}
	return strings.Join(parts, "\n")
}
