// Package wikitext extracts names from raw MediaWiki markup.
package wikitext

import (
	"regexp"
	"strings"
)

var (
	// A list entry: "* [[Target|Label]] (description".
	listEntryPattern = regexp.MustCompile(`^\*\s*\[\[(.+?)\]\]\s*\(`)
	boldPattern      = regexp.MustCompile(`'''(.*?)'''`)
)

// ReferenceTitles returns the link targets of list entries of the form
// "* [[Title]] (…)". Every pipe-separated part of the link is returned as a
// separate title. Other lines are ignored; the result may contain duplicates.
func ReferenceTitles(raw string) []string {
	var titles []string
	for line := range strings.SplitSeq(raw, "\n") {
		m := listEntryPattern.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if len(m) < 2 {
			continue
		}
		for part := range strings.SplitSeq(m[1], "|") {
			if part = strings.TrimSpace(part); part != "" {
				titles = append(titles, part)
			}
		}
	}
	return titles
}

// Bold returns the contents of every '''bold''' span, in order.
// Spans do not cross line breaks.
func Bold(raw string) []string {
	matches := boldPattern.FindAllStringSubmatch(raw, -1)
	spans := make([]string, 0, len(matches))
	for _, m := range matches {
		spans = append(spans, m[1])
	}
	return spans
}
