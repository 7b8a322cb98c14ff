package commontypes

import (
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
)

// NoChangelog is the changelog text the update servers publish when a release
// carries no meaningful notes.
const NoChangelog = "Bug fixes and system optimizations."

// Update represents a single ROM release
type Update struct {
	Codename  string `yaml:"codename" json:"codename"` // may carry a region suffix, e.g. merlin_in_global
	Version   string `yaml:"version" json:"version"`
	Android   string `yaml:"android" json:"android"`
	Branch    string `yaml:"branch" json:"branch"`
	Method    string `yaml:"method" json:"method"` // Recovery or Fastboot
	Type      string `yaml:"type,omitempty" json:"type,omitempty"`
	Size      int64  `yaml:"size" json:"size"`
	MD5       string `yaml:"md5,omitempty" json:"md5,omitempty"`
	Changelog string `yaml:"changelog,omitempty" json:"changelog,omitempty"`
	Link      string `yaml:"link" json:"link"`
	Filename  string `yaml:"filename,omitempty" json:"filename,omitempty"`
	Date      string `yaml:"date,omitempty" json:"date,omitempty"`
}

// ShortCodename returns the codename without its region suffix.
func (u Update) ShortCodename() string {
	short, _, _ := strings.Cut(u.Codename, "_")
	return short
}

// HasChangelog reports whether the changelog is worth publishing.
func (u Update) HasChangelog() bool {
	return u.Changelog != "" && u.Changelog != NoChangelog
}

// HumanSize formats Size in decimal units ("3.0 GB").
func (u Update) HumanSize() string {
	if u.Size < 0 {
		return humanize.Bytes(0)
	}
	return humanize.Bytes(uint64(u.Size))
}

// Device holds the names the catalog knows for a codename.
type Device struct {
	FullName string // e.g. "Xiaomi Redmi 9 Global"
	Family   string // e.g. "Redmi 9"
}

// Len counts characters the way the platforms do.
func Len(s string) int {
	return utf8.RuneCountInString(s)
}

// Truncate cuts s to at most n characters without splitting a rune.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
