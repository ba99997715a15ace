// Package ordering turns the free text returned by the screenshot analysis
// into an ordered list of match keys.
package ordering

import (
	"strings"
)

// Entry is one title from the parsed order. Rank is zero-based.
type Entry struct {
	Rank     int    `json:"rank"`
	MatchKey string `json:"match_key"`
}

// Order is the parsed organization order, lowest rank first.
type Order []Entry

// Keys returns the match keys in rank order.
func (o Order) Keys() []string {
	keys := make([]string, len(o))
	for i, e := range o {
		keys[i] = e.MatchKey
	}
	return keys
}

// recognition artifacts from the vision model; applied in order
var corrections = []struct{ from, to string }{
	{"openal", "openai"},
	{"genal", "genai"},
	{" al ", " ai "},
}

// Parse converts a numbered list of titles into an Order. It never fails:
// lines that reduce to nothing are dropped and do not consume a rank.
func Parse(text string) Order {
	var order Order
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		key := NormalizeTitle(line)
		if key == "" {
			continue
		}
		order = append(order, Entry{Rank: len(order), MatchKey: key})
	}
	return order
}

// NormalizeTitle reduces one list line to its match key.
func NormalizeTitle(line string) string {
	title, _, _ := strings.Cut(line, "(")
	title = strings.TrimSpace(title)
	if _, rest, found := strings.Cut(title, ". "); found {
		title = rest
	}
	title = strings.ReplaceAll(title, ":", "")
	title = strings.ReplaceAll(title, "?", "")
	title = strings.ToLower(strings.TrimSpace(title))
	for _, c := range corrections {
		title = strings.ReplaceAll(title, c.from, c.to)
	}
	return title
}
