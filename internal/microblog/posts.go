package microblog

import (
	"fmt"
	"net/url"
	"strings"

	"miuinotify/internal/commontypes"
)

// MaxPost is the character budget of a single post.
const MaxPost = 280

// Footer builds the hashtag block closing the last post of a thread.
func Footer(u commontypes.Update, family string) string {
	footer := fmt.Sprintf("\n#MIUI_Updates #Xiaomi #MIUI #%s", strings.ReplaceAll(family, " ", ""))
	if rest, ok := strings.CutPrefix(u.Version, "V"); ok {
		major, _, _ := strings.Cut(rest, ".")
		footer += fmt.Sprintf(" #MIUI%s", major)
	}
	android, _, _ := strings.Cut(u.Android, ".")
	footer += fmt.Sprintf(" #Android%s", android)
	return footer
}

// GeneratePosts splits an update into one or two posts within MaxPost. The
// second post, when present, replies to the first and carries the footer.
func GeneratePosts(u commontypes.Update, dev commontypes.Device, website string) []string {
	footer := Footer(u, dev.Family)
	short := u.ShortCodename()

	message := fmt.Sprintf("New %s %s update available for %s (%s)!\n", u.Branch, u.Method, dev.FullName, short)
	message += fmt.Sprintf("Version: %s | %s\n", u.Version, u.Android)
	message += fmt.Sprintf("Size: %s\n", u.HumanSize())
	if u.MD5 != "" {
		message += fmt.Sprintf("MD5: %s\n", u.MD5)
	}

	secondary := ""
	download := fmt.Sprintf("Download: %s\n", u.Link)
	if commontypes.Len(message+download) < MaxPost {
		message += download
	} else {
		secondary += download
	}

	if u.HasChangelog() {
		if commontypes.Len(u.Changelog)+commontypes.Len(message) > MaxPost {
			branch := url.PathEscape(strings.ToLower(u.Branch))
			secondary += fmt.Sprintf("Changelog: %s/miui/%s/%s/%s/\n", website, short, branch, u.Version)
		} else {
			secondary += fmt.Sprintf("Changelog:\n%s\n", u.Changelog)
		}
	}

	posts := []string{commontypes.Truncate(message, MaxPost)}
	if secondary == "" {
		return posts
	}
	if commontypes.Len(secondary)+commontypes.Len(footer) > MaxPost {
		secondary = commontypes.Truncate(secondary, MaxPost-commontypes.Len(footer))
	}
	return append(posts, secondary+footer)
}
