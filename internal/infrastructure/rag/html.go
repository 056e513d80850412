package rag

import (
	"strings"

	"golang.org/x/net/html"
)

const maxHTMLText = 200_000

var noiseTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "svg": true, "iframe": true,
	"head": true, "nav": true, "footer": true, "form": true, "button": true,
}

var blockTags = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "br": true, "li": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "pre": true, "tr": true, "table": true, "ul": true, "ol": true,
}

// htmlToText extracts the readable text of an HTML page, one paragraph per
// block element. Unparseable input is returned unchanged.
func htmlToText(raw string) string {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return raw
	}

	root := findBody(doc)
	if root == nil {
		root = doc
	}
	stripNoise(root)

	var sb strings.Builder
	collectText(root, &sb)

	var paras []string
	for _, p := range strings.Split(sb.String(), "\n") {
		if p = strings.Join(strings.Fields(p), " "); p != "" {
			paras = append(paras, p)
		}
	}
	text := strings.Join(paras, "\n\n")
	if len(text) > maxHTMLText {
		text = text[:maxHTMLText]
	}
	return text
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}

func stripNoise(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		switch {
		case c.Type == html.CommentNode:
			n.RemoveChild(c)
		case c.Type == html.ElementNode && noiseTags[c.Data]:
			n.RemoveChild(c)
		default:
			stripNoise(c)
		}
		c = next
	}
}

func collectText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		return
	}
	block := n.Type == html.ElementNode && blockTags[n.Data]
	if block {
		sb.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
	if block {
		sb.WriteByte('\n')
	}
}
