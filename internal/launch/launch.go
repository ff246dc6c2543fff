package launch

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"sessionpick/internal/transcript"
)

// Request identifies the session to resume and the directory to resume it
// in. WorkDir may be empty when the original directory no longer exists;
// the resume then runs from wherever the picker was started.
type Request struct {
	SessionID string
	WorkDir   string
}

// Resolve builds the launch request for a transcript. The working
// directory comes from the cwd recorded inside the transcript when that
// directory still exists, otherwise from decoding the encoded project
// directory name. Relative paths inside the resumed session only resolve
// correctly when this matches the directory the session originally ran in.
func Resolve(file transcript.File) Request {
	req := Request{SessionID: strings.TrimSpace(file.SessionID)}

	if conv, err := transcript.Parse(file.Path); err == nil && conv.CWD != "" {
		if dirExists(conv.CWD) {
			req.WorkDir = conv.CWD
			return req
		}
	}
	if decoded := DecodeProjectDir(file.Project); decoded != "" && dirExists(decoded) {
		req.WorkDir = decoded
	}
	return req
}

// DecodeProjectDir converts an encoded project directory name back to a
// filesystem path: "-Users-jack-dev-foo" becomes "/Users/jack/dev/foo".
// Path components that themselves contained dashes cannot be recovered;
// callers must verify the result exists.
func DecodeProjectDir(name string) string {
	if !strings.HasPrefix(name, "-") {
		return ""
	}
	return "/" + strings.ReplaceAll(strings.TrimPrefix(name, "-"), "-", "/")
}

// ShellCommand returns the equivalent shell command, shown to the user as
// a remediation hint when the handoff fails.
func ShellCommand(req Request) string {
	resume := fmt.Sprintf("claude -r %s", shellQuote(req.SessionID))
	if req.WorkDir == "" {
		return resume
	}
	return fmt.Sprintf("cd %s && %s", shellQuote(req.WorkDir), resume)
}

// Run hands the terminal over to the resumed session and blocks until it
// exits. A successful handoff is terminal for the picker: the caller
// exits with the child's status and runs nothing else afterwards.
func Run(req Request) error {
	if req.SessionID == "" {
		return fmt.Errorf("session id is empty")
	}

	cmd := exec.Command("claude", "-r", req.SessionID)
	cmd.Dir = req.WorkDir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("resume session %s: %w", req.SessionID, err)
	}
	return nil
}

// ExitCode extracts the child's exit status from a Run error; -1 when the
// command never ran.
func ExitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
