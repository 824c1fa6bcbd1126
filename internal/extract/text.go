package extract

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/width"
)

// nodeText returns the whitespace-normalized text content of n, or "" when
// n is nil. Script and style contents are skipped.
func nodeText(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	collectText(&b, n)
	return collapseSpaces(strings.TrimSpace(b.String()))
}

func collectText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		switch strings.ToLower(n.Data) {
		case "script", "style", "noscript":
			return
		case "br":
			b.WriteString(" ")
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(b, c)
	}
}

// collapseSpaces turns every run of whitespace, including the ideographic
// space and nbsp, into a single ASCII space.
func collapseSpaces(s string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\u00a0' || r == '\u3000' {
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return b.String()
}

// narrow folds full-width digits and punctuation to their ASCII forms so
// numeric patterns match text typed with a CJK input method.
func narrow(s string) string {
	return width.Narrow.String(s)
}
