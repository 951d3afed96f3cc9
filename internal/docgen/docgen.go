// Package docgen produces office documents from markdown-ish text: a
// minimal Word document (create_docx) and a self-contained reveal.js
// slide deck (create_slide_deck).
package docgen

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// Docx writes a .docx file at path. Lines starting with "# " and
// "## " become headings (24pt and 18pt), everything else a plain
// paragraph. The archive carries only the parts Word requires to open
// the file.
func Docx(content, path string) error {
	var doc bytes.Buffer
	doc.WriteString(xml.Header)
	doc.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)

	for _, line := range strings.Split(content, "\n") {
		var size int
		switch {
		case strings.HasPrefix(line, "# "):
			line, size = strings.TrimPrefix(line, "# "), 48
		case strings.HasPrefix(line, "## "):
			line, size = strings.TrimPrefix(line, "## "), 36
		}
		doc.WriteString(`<w:p><w:r>`)
		if size > 0 {
			fmt.Fprintf(&doc, `<w:rPr><w:sz w:val="%d"/><w:b/></w:rPr>`, size)
		}
		doc.WriteString(`<w:t xml:space="preserve">`)
		xml.EscapeText(&doc, []byte(line))
		doc.WriteString(`</w:t></w:r></w:p>`)
	}
	doc.WriteString(`</w:body></w:document>`)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	parts := []struct{ name, body string }{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", relsXML},
		{"word/document.xml", doc.String()},
	}
	for _, p := range parts {
		w, err := zw.Create(p.name)
		if err != nil {
			return fmt.Errorf("create_docx: %w", err)
		}
		if _, err := w.Write([]byte(p.body)); err != nil {
			return fmt.Errorf("create_docx: %w", err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("create_docx: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("create_docx: %w", err)
	}
	return nil
}

// SlideDeck writes a reveal.js HTML presentation at path. Slides are
// separated by "---" lines; each slide's body is rendered as markdown.
func SlideDeck(content, path string) error {
	var slides bytes.Buffer
	for _, slide := range strings.Split(content, "---") {
		slide = strings.TrimSpace(slide)
		if slide == "" {
			continue
		}
		slides.WriteString("<section>\n")
		if err := markdown.Convert([]byte(slide), &slides); err != nil {
			return fmt.Errorf("create_slide_deck: render slide: %w", err)
		}
		slides.WriteString("</section>\n")
	}

	html := strings.Replace(slideDeckTemplate, "{{SLIDES}}", slides.String(), 1)
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return fmt.Errorf("create_slide_deck: %w", err)
	}
	return nil
}

const contentTypesXML = xml.Header + `<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/><Default Extension="xml" ContentType="application/xml"/><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`

const relsXML = xml.Header + `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/></Relationships>`

const slideDeckTemplate = `<!doctype html>
<html>
<head>
<meta charset="utf-8">
<link rel="stylesheet" href="https://cdnjs.cloudflare.com/ajax/libs/reveal.js/4.3.1/reveal.min.css">
<link rel="stylesheet" href="https://cdnjs.cloudflare.com/ajax/libs/reveal.js/4.3.1/theme/black.min.css">
</head>
<body>
<div class="reveal">
<div class="slides">
{{SLIDES}}</div>
</div>
<script src="https://cdnjs.cloudflare.com/ajax/libs/reveal.js/4.3.1/reveal.min.js"></script>
<script>Reveal.initialize();</script>
</body>
</html>
`
