package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"sessionpick/internal/cache"
	"sessionpick/internal/summarize"
	"sessionpick/internal/transcript"
)

// Result 单个 transcript 走完 lookup→[summarize→store] 的产出
// Result is the outcome of running one transcript through
// lookup → [miss: parse, summarize, store].
type Result struct {
	File      transcript.File // MessageCount filled in when known
	Digest    summarize.Digest
	FromCache bool
}

// Runner 把指纹、缓存与摘要器串成顺序流水线
// Runner wires fingerprinting, the cache store and the summarizer into
// the sequential per-transcript pipeline. Summarization happens only on a
// cache miss; every failure degrades, none aborts the listing.
type Runner struct {
	Store      cache.Store
	Summarizer *summarize.Service
	Log        zerolog.Logger
}

// Process 处理一个 transcript；绝不返回错误，失败降级为哨兵摘要
// Process runs one transcript through the pipeline. It never fails the
// caller: fingerprint or parse errors degrade to the sentinel digest.
func (r *Runner) Process(ctx context.Context, file transcript.File) Result {
	fp, err := transcript.Fingerprint(file.Path)
	if err != nil {
		r.Log.Warn().Err(err).Str("session", file.SessionID).Msg("fingerprint failed")
		return Result{File: file, Digest: summarize.Unavailable()}
	}

	if entry, miss := r.Store.Lookup(file.Project, file.Key(), fp); miss == cache.Hit {
		file.MessageCount = entry.MessageCount
		return Result{
			File:      file,
			Digest:    summarize.Digest{Title: entry.Title, Bullets: entry.Bullets},
			FromCache: true,
		}
	}

	conv, err := transcript.Parse(file.Path)
	if err != nil {
		r.Log.Warn().Err(err).Str("session", file.SessionID).Msg("parse failed")
		return Result{File: file, Digest: summarize.Unavailable()}
	}
	file.MessageCount = len(conv.Messages)

	digest := r.Summarizer.Digest(ctx, conv)

	// only successful digests are cached, so a transient backend failure
	// is retried on the next run
	if !digest.Unavailable {
		entry := cache.Entry{
			Fingerprint:  fp,
			Title:        digest.Title,
			Bullets:      digest.Bullets,
			MessageCount: file.MessageCount,
			ComputedAt:   time.Now().UTC().Format(time.RFC3339),
		}
		if err := r.Store.Put(file.Project, file.Key(), entry); err != nil {
			r.Log.Warn().Err(err).Str("session", file.SessionID).Msg("cache store failed")
		}
	}

	return Result{File: file, Digest: digest}
}

// DeleteEmpty 删除一个空会话的 transcript 文件及其缓存条目
// DeleteEmpty removes an empty session's transcript file and its cache
// entry. The caller is responsible for having confirmed the deletion.
func (r *Runner) DeleteEmpty(file transcript.File) error {
	if !file.Empty() {
		return fmt.Errorf("session %s is not empty", file.SessionID)
	}
	if err := os.Remove(file.Path); err != nil {
		return fmt.Errorf("delete transcript %q: %w", file.Path, err)
	}
	if err := r.Store.Delete(file.Project, file.Key()); err != nil {
		r.Log.Warn().Err(err).Str("session", file.SessionID).Msg("cache entry removal failed")
	}
	return nil
}

// ResetProject 显式清空一个项目的摘要缓存
// ResetProject explicitly clears one project's summary cache.
func (r *Runner) ResetProject(project string) error {
	return r.Store.InvalidateProject(project)
}
