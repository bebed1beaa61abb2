package extract

import (
	"strings"

	"golang.org/x/net/html"
)

// VisibleText parses an HTML document and returns its visible text, skipping
// script, style, noscript, and iframe subtrees.
func VisibleText(htmlContent string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}

	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		// Block elements end any sentence mid-flight
		if n.Type == html.ElementNode {
			switch n.Data {
			case "p", "li", "div", "h1", "h2", "h3", "h4", "br", "tr":
				defer buf.WriteString("\n")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)
	return buf.String(), nil
}

// LooksLikeHTML reports whether content appears to be an HTML document
// rather than plain policy text.
func LooksLikeHTML(content string) bool {
	head := strings.ToLower(strings.TrimSpace(content))
	if strings.HasPrefix(head, "<!doctype html") || strings.HasPrefix(head, "<html") {
		return true
	}
	if len(head) > 512 {
		head = head[:512]
	}
	return strings.Contains(head, "<body") || strings.Contains(head, "<p>")
}
