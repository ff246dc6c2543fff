package summarize

import (
	"strings"

	"sessionpick/internal/transcript"
)

const (
	// snippetRunes bounds each message's contribution to the excerpt.
	snippetRunes = 200
	// maxEmbeddedSummaries bounds how many transcript-embedded summary
	// lines are used before falling back to raw messages.
	maxEmbeddedSummaries = 3
)

// BuildExcerpt 构造送给摘要后端的片段；对相同输入字节级确定
// BuildExcerpt builds the bounded excerpt sent to the summarization
// backend. It is deterministic for a given conversation: embedded summary
// entries are preferred, otherwise alternating user/assistant snippets
// are joined, then the result is trimmed under the token budget by
// keeping the head and tail and dropping the middle.
func BuildExcerpt(conv transcript.Conversation, budget int, tok *Tokenizer) string {
	if tok == nil {
		tok = DefaultTokenizer()
	}
	if budget <= 0 {
		budget = 600
	}

	if len(conv.Summaries) > 0 {
		n := len(conv.Summaries)
		if n > maxEmbeddedSummaries {
			n = maxEmbeddedSummaries
		}
		return truncateToBudget(strings.Join(conv.Summaries[:n], " | "), budget, tok)
	}

	var parts []string
	for _, msg := range conv.Messages {
		text := snippet(msg.Text)
		if text == "" {
			continue
		}
		switch msg.Role {
		case "user":
			parts = append(parts, "User: "+text)
		case "assistant":
			parts = append(parts, "Assistant: "+text)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return truncateToBudget(strings.Join(parts, " | "), budget, tok)
}

// snippet collapses whitespace and caps the text at snippetRunes runes.
func snippet(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	s = strings.TrimSpace(s)

	runes := []rune(s)
	if len(runes) <= snippetRunes {
		return s
	}
	return string(runes[:snippetRunes-2]) + ".."
}

// truncateToBudget shrinks the excerpt under the token budget by keeping
// roughly two thirds from the head and one third from the tail. The
// shrink loop depends only on the input, so repeated runs over the same
// content produce byte-identical excerpts.
func truncateToBudget(s string, budget int, tok *Tokenizer) string {
	if tok.CountText(s) <= budget {
		return s
	}

	runes := []rune(s)
	keep := len(runes)
	for keep > 16 {
		keep = keep * 3 / 4
		head := keep * 2 / 3
		tail := keep - head
		candidate := string(runes[:head]) + " [...] " + string(runes[len(runes)-tail:])
		if tok.CountText(candidate) <= budget {
			return candidate
		}
	}
	if len(runes) > 16 {
		runes = runes[:16]
	}
	return string(runes)
}
