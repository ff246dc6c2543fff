package summarize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// CLIBackend 调用本地 claude 命令做摘要（claude -p <prompt>）
// CLIBackend shells out to the local claude command in single-prompt mode
// (claude -p <prompt>). This is the default: it needs no API key and uses
// whatever model the CLI is configured with.
type CLIBackend struct {
	command string
}

func NewCLIBackend(command string) *CLIBackend {
	if command == "" {
		command = "claude"
	}
	return &CLIBackend{command: command}
}

func (b *CLIBackend) Name() string { return "cli" }

func (b *CLIBackend) Summarize(ctx context.Context, excerpt string) (Digest, error) {
	prompt := fmt.Sprintf(digestPrompt, excerpt)

	cmd := exec.CommandContext(ctx, b.command, "-p", prompt)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Digest{}, fmt.Errorf("%s timed out: %w", b.command, ctx.Err())
		}
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return Digest{}, fmt.Errorf("%s not found (is the Claude CLI installed?): %w", b.command, err)
		}
		msg := bytes.TrimSpace(stderr.Bytes())
		if len(msg) > 120 {
			msg = msg[:120]
		}
		return Digest{}, fmt.Errorf("%s -p failed: %s: %w", b.command, msg, err)
	}

	return parseDigest(stdout.String()), nil
}

// Available 检查 CLI 是否可用（claude --version）
// Available checks whether the CLI can be invoked (claude --version).
func (b *CLIBackend) Available(ctx context.Context) bool {
	cmd := exec.CommandContext(ctx, b.command, "--version")
	return cmd.Run() == nil
}
