package chat

import (
	"fmt"
	"strings"

	"miuinotify/internal/commontypes"
)

const (
	// MaxDescription is the embed description budget.
	MaxDescription = 2000
	// ColorOrange is the embed accent color.
	ColorOrange = 0xE67E22
)

// Field is a labeled link rendered next to the message body.
type Field struct {
	Name  string
	Label string
	URL   string
}

// Message is a platform-neutral rich message. Description uses **bold** and
// `code` markdown; adapters convert it to their own dialect.
type Message struct {
	Title       string
	Color       int
	Description string
	Fields      []Field
}

// BuildMessage renders the notification for one update. incremental may be nil.
func BuildMessage(u commontypes.Update, fullName string, incremental *commontypes.Update, website string) Message {
	short := u.ShortCodename()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("**Device**: %s\n", fullName))
	sb.WriteString(fmt.Sprintf("**Codename**: `%s`\n", short))
	sb.WriteString(fmt.Sprintf("**Version**: `%s | %s`\n", u.Version, u.Android))
	sb.WriteString(fmt.Sprintf("**Size**: %s\n", u.HumanSize()))
	if u.MD5 != "" {
		sb.WriteString(fmt.Sprintf("**MD5**: `%s`\n", u.MD5))
	}
	body := sb.String()
	if u.HasChangelog() {
		changelog := fmt.Sprintf("**Changelog**:\n`%s`", u.Changelog)
		body += commontypes.Truncate(changelog, MaxDescription-commontypes.Len(body))
	}

	msg := Message{
		Title:       fmt.Sprintf("New %s %s update available!", u.Branch, u.Method),
		Color:       ColorOrange,
		Description: body,
	}
	msg.Fields = append(msg.Fields, Field{Name: "Full ROM", Label: "Download", URL: u.Link})
	if u.Method == "Recovery" && incremental != nil {
		msg.Fields = append(msg.Fields, Field{Name: "Incremental", Label: "Download", URL: incremental.Link})
	}
	msg.Fields = append(msg.Fields,
		Field{Name: "Latest", Label: "Here", URL: fmt.Sprintf("%s/miui/%s", website, short)},
		Field{Name: "Archive", Label: "Here", URL: fmt.Sprintf("%s/archive/miui/%s", website, short)},
	)
	return msg
}
