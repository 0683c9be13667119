// Package htmlutil provides HTML extraction helpers.
package htmlutil

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Link is an anchor found in an HTML document.
type Link struct {
	Text string // visible text, whitespace-trimmed
	Href string // raw href attribute, empty when absent
}

// Links returns every <a> element in htmlContent in document order.
// Anchors nested inside other anchors are reported separately.
func Links(htmlContent string) ([]Link, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	var links []Link
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			links = append(links, Link{Text: textContent(n), Href: attr(n, "href")})
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return links, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(sb.String())
}
