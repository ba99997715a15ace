package ordering

import (
	"regexp"
	"strings"
)

var listItemPattern = regexp.MustCompile(`^\s*(\d+[.)]|[-*•])\s+`)

// folderNameReplacer mirrors the filename sanitizing used for output paths.
var folderNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SectionTitle returns the heading that precedes the numbered list in an
// analysis response, or "" when the response has none.
func SectionTitle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if listItemPattern.MatchString(line) {
			return ""
		}
		line = strings.Trim(line, "#*_ ")
		if label, rest, ok := strings.Cut(line, ":"); ok && strings.EqualFold(strings.TrimSpace(label), "section title") {
			line = strings.Trim(rest, "#*_ ")
		}
		if line != "" {
			return line
		}
	}
	return ""
}

// SanitizeFolderName makes a section title usable as a directory name.
func SanitizeFolderName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	name = strings.TrimSpace(folderNameReplacer.Replace(name))
	return strings.Trim(name, ".")
}
