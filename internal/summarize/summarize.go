package summarize

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"sessionpick/internal/transcript"
)

// Digest 一次摘要的结构化结果：标题加 2-3 条要点
// Digest is the structured result of one summarization: a short title
// plus 2-3 bullet strings.
type Digest struct {
	Title   string
	Bullets []string
	// Unavailable 为 true 表示后端失败，会话仍可列出和恢复
	// Unavailable marks the sentinel result returned when the backend
	// fails; the session is still listed and launchable.
	Unavailable bool
}

// Unavailable 后端失败时的哨兵结果
// Unavailable is the sentinel digest for a failed summarization.
func Unavailable() Digest {
	return Digest{Title: "summary unavailable", Unavailable: true}
}

// Backend 摘要后端接口
// Backend is the summarization backend interface.
type Backend interface {
	Name() string
	// Summarize 对 excerpt 生成摘要；错误由 Service 降级为哨兵结果
	// Summarize digests an excerpt; errors are degraded to the sentinel by Service
	Summarize(ctx context.Context, excerpt string) (Digest, error)
}

// Service 组合 excerpt 构造与后端调用；任何失败都不致命
// Service combines excerpt building with the backend call; no failure is
// ever fatal to the listing flow.
type Service struct {
	backend Backend
	tok     *Tokenizer
	budget  int
	timeout time.Duration
	log     zerolog.Logger
}

func NewService(backend Backend, excerptTokens, timeoutMS int, log zerolog.Logger) *Service {
	if excerptTokens <= 0 {
		excerptTokens = 600
	}
	if timeoutMS <= 0 {
		timeoutMS = 30000
	}
	return &Service{
		backend: backend,
		tok:     DefaultTokenizer(),
		budget:  excerptTokens,
		timeout: time.Duration(timeoutMS) * time.Millisecond,
		log:     log,
	}
}

// Excerpt 返回会话的确定性片段
// Excerpt returns the conversation's deterministic excerpt.
func (s *Service) Excerpt(conv transcript.Conversation) string {
	return BuildExcerpt(conv, s.budget, s.tok)
}

// Digest 生成摘要；空会话不调用后端，失败返回哨兵
// Digest summarizes a conversation. Empty conversations never reach the
// backend; backend failure returns the sentinel.
func (s *Service) Digest(ctx context.Context, conv transcript.Conversation) Digest {
	excerpt := s.Excerpt(conv)
	if strings.TrimSpace(excerpt) == "" {
		return Digest{Title: "empty conversation"}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	digest, err := s.backend.Summarize(ctx, excerpt)
	if err != nil {
		s.log.Warn().Err(err).Str("backend", s.backend.Name()).Msg("summarization failed")
		return Unavailable()
	}
	return digest
}

const digestPrompt = `Summarize this Claude Code conversation as a short title line followed by 2-3 bullet points (each 3-8 words), focusing on the main tasks or topics.

Conversation:
%s

Respond with exactly this format and nothing else:
<title>
- <bullet>
- <bullet>`

// parseDigest 将模型输出解析为 Digest；顺从常见的格式偏差
// parseDigest turns model output into a Digest, tolerating the usual
// formatting drift (bullet markers on the title, "Summary:" prefixes,
// period-separated sentences instead of bullet lines).
func parseDigest(text string) Digest {
	text = strings.TrimSpace(text)
	if text == "" {
		return Unavailable()
	}

	var title string
	var bullets []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if title == "" {
			title = cleanLine(strings.TrimPrefix(line, "Summary:"))
			continue
		}
		if len(bullets) < 3 {
			if b := cleanLine(line); b != "" {
				bullets = append(bullets, b)
			}
		}
	}
	if title == "" {
		return Unavailable()
	}

	// single-line responses ("Did X. Fixed Y. Added Z.") become bullets
	if len(bullets) == 0 {
		sentences := strings.Split(title, ". ")
		if len(sentences) > 1 {
			title = cleanLine(sentences[0])
			for _, sentence := range sentences[1:] {
				if len(bullets) >= 3 {
					break
				}
				if b := cleanLine(sentence); b != "" {
					bullets = append(bullets, b)
				}
			}
		}
	}

	title = capRunes(title, 120)
	for i, b := range bullets {
		bullets[i] = capRunes(b, 120)
	}
	return Digest{Title: title, Bullets: bullets}
}

func cleanLine(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "-•–* \t")
	s = strings.TrimRight(s, ".")
	return strings.TrimSpace(s)
}

func capRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-2]) + ".."
}
