package microblog_test

import (
	"strings"
	"testing"

	"github.com/m-mizutani/gt"

	"miuinotify/internal/commontypes"
	"miuinotify/internal/microblog"
)

const website = "https://xiaomifirmwareupdater.com"

var redmi9 = commontypes.Device{FullName: "Redmi 9 Global", Family: "Redmi 9"}

func baseUpdate() commontypes.Update {
	return commontypes.Update{
		Codename:  "lancelot_global",
		Version:   "V12.5.3.0.RJCMIXM",
		Android:   "11.0",
		Branch:    "Stable",
		Method:    "Recovery",
		Size:      2040109465,
		MD5:       "89fd8abc76de4e216635e0cf29c15aed",
		Changelog: commontypes.NoChangelog,
		Link:      "https://bigota.d.miui.com/V12.5.3.0.RJCMIXM/miui_LANCELOTGlobal_V12.5.3.0.RJCMIXM_89fd8abc76_11.0.zip",
	}
}

func TestFooter(t *testing.T) {
	gt.Equal(t, microblog.Footer(baseUpdate(), "Redmi Note 9"),
		"\n#MIUI_Updates #Xiaomi #MIUI #RedmiNote9 #MIUI12 #Android11")

	beta := baseUpdate()
	beta.Version = "22.3.9"
	beta.Android = "12"
	gt.Equal(t, microblog.Footer(beta, "POCO F3"),
		"\n#MIUI_Updates #Xiaomi #MIUI #POCOF3 #Android12")
}

func TestGeneratePosts_SinglePost(t *testing.T) {
	posts := microblog.GeneratePosts(baseUpdate(), redmi9, website)

	gt.Equal(t, len(posts), 1)
	gt.Equal(t, posts[0],
		"New Stable Recovery update available for Redmi 9 Global (lancelot)!\n"+
			"Version: V12.5.3.0.RJCMIXM | 11.0\n"+
			"Size: 2.0 GB\n"+
			"MD5: 89fd8abc76de4e216635e0cf29c15aed\n"+
			"Download: https://bigota.d.miui.com/V12.5.3.0.RJCMIXM/miui_LANCELOTGlobal_V12.5.3.0.RJCMIXM_89fd8abc76_11.0.zip\n")
	// the footer only closes a second post
	gt.False(t, strings.Contains(posts[0], "#MIUI_Updates"))
}

func TestGeneratePosts_DownloadOverflow(t *testing.T) {
	u := baseUpdate()
	u.Link = "https://bigota.d.miui.com/" + strings.Repeat("a", 120) + "/miui.zip"
	download := "Download: " + u.Link + "\n"

	posts := microblog.GeneratePosts(u, redmi9, website)
	gt.Equal(t, len(posts), 2)
	gt.False(t, strings.Contains(posts[0], "Download:"))
	gt.True(t, strings.HasPrefix(posts[1], download))
	gt.True(t, strings.HasSuffix(posts[1], microblog.Footer(u, redmi9.Family)))
	gt.Equal(t, strings.Count(strings.Join(posts, ""), u.Link), 1)
}

func TestGeneratePosts_ShortChangelog(t *testing.T) {
	u := baseUpdate()
	u.MD5 = ""
	u.Link = "https://bigota.d.miui.com/V12.5.3.0.RJCMIXM/miui.zip"
	u.Changelog = "[Other]\nImproved system stability"

	posts := microblog.GeneratePosts(u, redmi9, website)
	gt.Equal(t, len(posts), 2)
	gt.Equal(t, posts[1], "Changelog:\n[Other]\nImproved system stability\n"+microblog.Footer(u, redmi9.Family))
}

func TestGeneratePosts_LongChangelogLinks(t *testing.T) {
	u := baseUpdate()
	u.Branch = "Public Beta"
	u.Changelog = strings.Repeat("Optimized battery consumption. ", 10)

	posts := microblog.GeneratePosts(u, redmi9, website)
	gt.Equal(t, len(posts), 2)
	gt.True(t, strings.HasPrefix(posts[1],
		"Changelog: "+website+"/miui/lancelot/public%20beta/V12.5.3.0.RJCMIXM/\n"))
	gt.False(t, strings.Contains(posts[1], "Optimized battery consumption"))
}

func TestGeneratePosts_SentinelChangelog(t *testing.T) {
	posts := microblog.GeneratePosts(baseUpdate(), redmi9, website)
	for _, p := range posts {
		gt.False(t, strings.Contains(p, "Changelog"))
	}
}

func TestGeneratePosts_SecondaryWithFooter(t *testing.T) {
	u := baseUpdate()
	u.Link = "https://bigota.d.miui.com/" + strings.Repeat("b", 140) + "/miui.zip"
	u.Changelog = "short notes"
	u.MD5 = ""
	footer := microblog.Footer(u, redmi9.Family)

	// the overflowing download line and the raw changelog share the second post
	posts := microblog.GeneratePosts(u, redmi9, website)
	gt.Equal(t, len(posts), 2)
	gt.True(t, strings.HasSuffix(posts[1], footer))
	gt.True(t, commontypes.Len(posts[1]) <= microblog.MaxPost)

	t.Run("exact fit after cut", func(t *testing.T) {
		u := baseUpdate()
		u.Link = "https://bigota.d.miui.com/" + strings.Repeat("c", 250) + "/miui.zip"
		posts := microblog.GeneratePosts(u, redmi9, website)
		gt.Equal(t, len(posts), 2)
		gt.Equal(t, commontypes.Len(posts[1]), microblog.MaxPost)
		gt.True(t, strings.HasSuffix(posts[1], footer))
	})
}

func TestGeneratePosts_Budget(t *testing.T) {
	links := []string{
		"https://bigota.d.miui.com/x.zip",
		"https://bigota.d.miui.com/" + strings.Repeat("d", 100) + ".zip",
		"https://bigota.d.miui.com/" + strings.Repeat("e", 400) + ".zip",
	}
	changelogs := []string{
		"",
		commontypes.NoChangelog,
		"Fixed camera",
		strings.Repeat("修复相机问题。", 30),
		strings.Repeat("z", 1000),
	}
	names := []commontypes.Device{
		redmi9,
		{FullName: strings.Repeat("Very Long Name ", 20), Family: "Redmi Note 10 Pro Max"},
	}

	for _, link := range links {
		for _, changelog := range changelogs {
			for _, dev := range names {
				u := baseUpdate()
				u.Link = link
				u.Changelog = changelog
				for _, p := range microblog.GeneratePosts(u, dev, website) {
					gt.True(t, commontypes.Len(p) <= microblog.MaxPost)
				}
			}
		}
	}
}

func TestGeneratePosts_Idempotent(t *testing.T) {
	u := baseUpdate()
	u.Changelog = strings.Repeat("Improved camera. ", 50)
	a := microblog.GeneratePosts(u, redmi9, website)
	b := microblog.GeneratePosts(u, redmi9, website)
	gt.Equal(t, a, b)
}
