package tui

import (
	"fmt"
	"strings"

	"sessionpick/internal/transcript"
)

const detailMessageLimit = 20

// buildDetailContent assembles a markdown document for one session:
// the cached digest first, then the opening exchange of the transcript.
func buildDetailContent(item sessionItem, width int) string {
	var b strings.Builder

	b.WriteString("# " + item.digest.Title + "\n\n")
	for _, bullet := range item.digest.Bullets {
		b.WriteString("- " + bullet + "\n")
	}
	if len(item.digest.Bullets) > 0 {
		b.WriteString("\n")
	}

	b.WriteString(fmt.Sprintf("**Session** `%s`  \n", item.file.SessionID))
	b.WriteString(fmt.Sprintf("**Modified** %s\n\n", item.file.ModTime.Format("2006-01-02 15:04")))

	conv, err := transcript.Parse(item.file.Path)
	if err != nil {
		b.WriteString("_transcript could not be read: " + err.Error() + "_\n")
		return renderMarkdown(b.String(), width)
	}

	if conv.CWD != "" {
		b.WriteString(fmt.Sprintf("**Directory** `%s`\n\n", conv.CWD))
	}

	b.WriteString("---\n\n")
	shown := 0
	for _, msg := range conv.Messages {
		if shown >= detailMessageLimit {
			b.WriteString(fmt.Sprintf("_… %d more messages_\n", len(conv.Messages)-shown))
			break
		}
		label := "Assistant"
		if msg.Role == "user" {
			label = "User"
		}
		b.WriteString("**" + label + ":** " + clipMessage(msg.Text) + "\n\n")
		shown++
	}

	return renderMarkdown(b.String(), width)
}

func clipMessage(text string) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) > 600 {
		return string(runes[:600]) + " …"
	}
	return text
}
