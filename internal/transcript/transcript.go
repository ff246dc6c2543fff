package transcript

import (
	"path"
	"strings"
	"time"
)

// File is one transcript discovered under the transcripts root. It is
// never mutated by the picker; MessageCount is -1 until the file has been
// parsed (or restored from a cache entry).
type File struct {
	Path         string    // absolute path to the .jsonl file
	Project      string    // encoded project directory name
	SessionID    string    // filename stem, e.g. "0b2c4d..."
	ModTime      time.Time
	Size         int64
	MessageCount int
}

// Key returns the transcript's cache identity: its path relative to the
// transcripts root. Renaming a project therefore breaks the cache link.
func (f File) Key() string {
	return path.Join(f.Project, f.SessionID+".jsonl")
}

// Empty reports whether the transcript parsed to zero messages.
func (f File) Empty() bool {
	return f.MessageCount == 0
}

// Counted reports whether MessageCount is known.
func (f File) Counted() bool {
	return f.MessageCount >= 0
}

// Message is one conversation turn, used only transiently to build the
// excerpt fed to the summarizer.
type Message struct {
	Role  string // "user" or "assistant"
	Text  string
	Index int
}

// Conversation is the parsed content of a transcript file.
type Conversation struct {
	Messages []Message
	// Summaries holds transcript-embedded summary entries (type "summary"),
	// preferred over raw messages when building the excerpt.
	Summaries []string
	// CWD is the working directory recorded in the transcript, used to
	// resume the session where it originally ran.
	CWD string
}

// Project is one subdirectory of the transcripts root that contains at
// least one transcript.
type Project struct {
	Name         string // encoded directory name, e.g. "-Users-jack-dev-foo"
	Path         string
	ModTime      time.Time
	SessionCount int
}

// DisplayName decodes the encoded project directory name into something
// readable: "-Users-jack-dev-foo" becomes "Users/jack/dev/foo".
func (p Project) DisplayName() string {
	name := strings.TrimPrefix(p.Name, "-")
	if name == p.Name {
		return p.Name
	}
	return strings.ReplaceAll(name, "-", "/")
}
