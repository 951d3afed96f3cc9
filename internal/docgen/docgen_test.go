package docgen

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDocxStructure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.docx")
	content := "# Quarterly Report\n## Summary\nRevenue grew & margins held."

	if err := Docx(content, path); err != nil {
		t.Fatalf("Docx: %v", err)
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer zr.Close()

	parts := map[string]bool{}
	var document string
	for _, f := range zr.File {
		parts[f.Name] = true
		if f.Name == "word/document.xml" {
			rc, err := f.Open()
			if err != nil {
				t.Fatalf("open part: %v", err)
			}
			data, _ := io.ReadAll(rc)
			rc.Close()
			document = string(data)
		}
	}

	for _, want := range []string{"[Content_Types].xml", "_rels/.rels", "word/document.xml"} {
		if !parts[want] {
			t.Errorf("archive missing %s", want)
		}
	}

	if !strings.Contains(document, "Quarterly Report") {
		t.Error("heading text missing from document")
	}
	if strings.Contains(document, "# Quarterly") {
		t.Error("heading marker leaked into document text")
	}
	if !strings.Contains(document, `<w:sz w:val="48"/>`) {
		t.Error("top-level heading not sized")
	}
	// XML-sensitive characters are escaped.
	if !strings.Contains(document, "&amp;") {
		t.Error("ampersand not escaped")
	}
}

func TestSlideDeck(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck.html")
	content := "# Title Slide\nwelcome\n---\n# Second\n- point one\n- point two"

	if err := SlideDeck(content, path); err != nil {
		t.Fatalf("SlideDeck: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read deck: %v", err)
	}
	html := string(data)

	if got := strings.Count(html, "<section>"); got != 2 {
		t.Errorf("deck has %d sections, want 2", got)
	}
	if !strings.Contains(html, "<h1") || !strings.Contains(html, "Title Slide") {
		t.Error("markdown heading not rendered")
	}
	if !strings.Contains(html, "<li>point one</li>") {
		t.Error("markdown list not rendered")
	}
	if !strings.Contains(html, "reveal.min.js") {
		t.Error("reveal.js scaffolding missing")
	}
}

func TestSlideDeckSkipsEmptySlides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck.html")
	if err := SlideDeck("only slide\n---\n\n---\n", path); err != nil {
		t.Fatalf("SlideDeck: %v", err)
	}
	data, _ := os.ReadFile(path)
	if got := strings.Count(string(data), "<section>"); got != 1 {
		t.Errorf("deck has %d sections, want 1", got)
	}
}
