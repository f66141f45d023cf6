package delivery

import (
	"html"
	"regexp"
	"strings"

	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	boldRe      = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicRe    = regexp.MustCompile(`\*(.*?)\*`)
	underlineRe = regexp.MustCompile(`__(.*?)__`)
	strikeRe    = regexp.MustCompile(`~~(.*?)~~`)
	blankRunRe  = regexp.MustCompile(`\n[ \t\r]*\n(?:[ \t\r]*\n)*`)
)

// TextToHTML converts a plain body with light markup to HTML. Bodies that
// already contain tags are returned unchanged.
func TextToHTML(text string) string {
	if text == "" || (strings.Contains(text, "<") && strings.Contains(text, ">")) {
		return text
	}

	out := html.EscapeString(text)
	out = strings.ReplaceAll(strings.ReplaceAll(out, "\r\n", "\n"), "\n", "<br>")
	out = boldRe.ReplaceAllString(out, "<strong>${1}</strong>")
	out = italicRe.ReplaceAllString(out, "<em>${1}</em>")
	out = underlineRe.ReplaceAllString(out, "<u>${1}</u>")
	out = strikeRe.ReplaceAllString(out, "<del>${1}</del>")
	return out
}

// HTMLToText keeps the text nodes of an HTML document, drops script and
// style, breaks lines at block elements and collapses blank lines.
func HTMLToText(doc string) string {
	z := xhtml.NewTokenizer(strings.NewReader(doc))

	var b strings.Builder
	skip := 0
	for {
		tt := z.Next()
		switch tt {
		case xhtml.ErrorToken:
			// io.EOF or malformed input.
			return collapse(b.String())
		case xhtml.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		case xhtml.StartTagToken, xhtml.SelfClosingTagToken, xhtml.EndTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			switch a {
			case atom.Script, atom.Style:
				if tt == xhtml.StartTagToken {
					skip++
				} else if tt == xhtml.EndTagToken && skip > 0 {
					skip--
				}
			case atom.Br:
				b.WriteByte('\n')
			case atom.P, atom.Div, atom.Li, atom.Tr, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Blockquote:
				if tt != xhtml.SelfClosingTagToken {
					b.WriteByte('\n')
				}
			}
		}
	}
}

func collapse(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = blankRunRe.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}
