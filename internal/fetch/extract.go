package fetch

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// skipElements are elements whose subtree contributes no readable text.
var skipElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Iframe:   true,
	atom.Svg:      true,
	atom.Nav:      true,
	atom.Footer:   true,
	atom.Header:   true,
}

// blockElements get paragraph breaks around their content.
var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Section: true, atom.Article: true,
	atom.Main: true, atom.H1: true, atom.H2: true, atom.H3: true,
	atom.H4: true, atom.H5: true, atom.H6: true, atom.Blockquote: true,
	atom.Pre: true, atom.Ul: true, atom.Ol: true, atom.Table: true,
	atom.Tr: true, atom.Hr: true, atom.Figure: true,
}

// extractHTML parses HTML and returns (title, readable text content).
// Parse failures degrade to empty output rather than an error; the
// caller treats the page as having no extractable text.
func extractHTML(raw string) (string, string) {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return "", ""
	}

	var w walker
	w.visit(doc)
	return strings.TrimSpace(w.title), normalizeWhitespace(w.text.String())
}

type walker struct {
	title string
	text  strings.Builder
}

func (w *walker) visit(n *html.Node) {
	switch n.Type {
	case html.ElementNode:
		if n.DataAtom == atom.Title && w.title == "" {
			w.title = textOf(n)
			return
		}
		if skipElements[n.DataAtom] {
			return
		}
		if blockElements[n.DataAtom] && w.text.Len() > 0 {
			w.text.WriteString("\n\n")
		}
	case html.TextNode:
		if t := strings.TrimSpace(n.Data); t != "" {
			w.text.WriteString(t)
			w.text.WriteByte(' ')
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.visit(c)
	}

	if n.Type == html.ElementNode && (n.DataAtom == atom.Br || n.DataAtom == atom.Li) {
		w.text.WriteByte('\n')
	}
}

// textOf returns the concatenated text of a node's subtree.
func textOf(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textOf(c))
	}
	return b.String()
}

// normalizeWhitespace collapses space runs within lines and squeezes
// consecutive blank lines down to one.
func normalizeWhitespace(s string) string {
	var cleaned []string
	prevEmpty := false
	for _, line := range strings.Split(s, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if prevEmpty {
				continue
			}
			prevEmpty = true
		} else {
			prevEmpty = false
		}
		cleaned = append(cleaned, line)
	}
	return strings.TrimSpace(strings.Join(cleaned, "\n"))
}
