package tools

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileOps provides the file capabilities behind list_dir, read_file,
// write_file, search_files, and find_file_smart. Scope enforcement is
// the approval gateway's job; FileOps only resolves relative paths
// against the invocation's working directory.
type FileOps struct{}

// NewFileOps creates the file capability provider.
func NewFileOps() *FileOps {
	return &FileOps{}
}

// resolve anchors a relative path at the working directory.
func (f *FileOps) resolve(workingDir, path string) string {
	if path == "" {
		path = "."
	}
	if filepath.IsAbs(path) || workingDir == "" {
		return filepath.Clean(path)
	}
	return filepath.Clean(filepath.Join(workingDir, path))
}

// maxReadBytes caps read_file output fed back to the model.
const maxReadBytes = 50 * 1024

// List returns directory entries, directories suffixed with "/".
func (f *FileOps) List(workingDir, path string) (string, error) {
	abs := f.resolve(workingDir, path)
	entries, err := os.ReadDir(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("directory not found: %s", path)
		}
		return "", fmt.Errorf("read directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return "(empty directory)", nil
	}
	return strings.Join(names, "\n"), nil
}

// Read returns a file's contents, truncated at maxReadBytes.
func (f *FileOps) Read(workingDir, path string) (string, error) {
	abs := f.resolve(workingDir, path)
	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %s", path)
		}
		return "", fmt.Errorf("read file: %w", err)
	}

	content := string(data)
	if len(content) > maxReadBytes {
		content = content[:maxReadBytes] + "\n\n[... truncated ...]"
	}
	return content, nil
}

// Write writes content to a file, creating parent directories.
func (f *FileOps) Write(workingDir, path, content string) error {
	abs := f.resolve(workingDir, path)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// searchLimits bound text search work and output.
const (
	searchMaxMatches  = 50
	searchMaxFileSize = 1 << 20 // skip files over 1MB
)

// Search scans files under root for lines containing query
// (case-insensitive) and returns "path:line: text" matches.
func (f *FileOps) Search(workingDir, query, root string) (string, error) {
	if query == "" {
		return "", fmt.Errorf("query is required")
	}
	abs := f.resolve(workingDir, root)
	lowered := strings.ToLower(query)

	var matches []string
	err := filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != abs {
				return filepath.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil || info.Size() > searchMaxFileSize {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		rel, _ := filepath.Rel(abs, path)
		for i, line := range strings.Split(string(data), "\n") {
			if strings.Contains(strings.ToLower(line), lowered) {
				matches = append(matches, fmt.Sprintf("%s:%d: %s", rel, i+1, strings.TrimSpace(line)))
				if len(matches) >= searchMaxMatches {
					return filepath.SkipAll
				}
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("search: %w", err)
	}
	if len(matches) == 0 {
		return fmt.Sprintf("No matches for %q", query), nil
	}
	return strings.Join(matches, "\n"), nil
}

// FindSmart walks root looking for file names containing every
// character of query in order (a loose subsequence match), ranked by
// how compact the match is.
func (f *FileOps) FindSmart(workingDir, query, root string) (string, error) {
	if query == "" {
		return "", fmt.Errorf("query is required")
	}
	abs := f.resolve(workingDir, root)
	lowered := strings.ToLower(query)

	type hit struct {
		rel   string
		score int
	}
	var hits []hit
	err := filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != abs {
				return filepath.SkipDir
			}
			return nil
		}
		name := strings.ToLower(d.Name())
		if score, ok := subsequenceScore(name, lowered); ok {
			rel, _ := filepath.Rel(abs, path)
			hits = append(hits, hit{rel: rel, score: score})
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("find: %w", err)
	}
	if len(hits) == 0 {
		return fmt.Sprintf("No files matching %q", query), nil
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].score < hits[j].score })
	if len(hits) > 20 {
		hits = hits[:20]
	}
	names := make([]string, len(hits))
	for i, h := range hits {
		names[i] = h.rel
	}
	return strings.Join(names, "\n"), nil
}

// subsequenceScore reports whether every rune of query appears in name
// in order; lower scores are tighter matches.
func subsequenceScore(name, query string) (int, bool) {
	if query == "" {
		return 0, true
	}
	qi := 0
	first := -1
	last := 0
	for i, r := range name {
		if qi < len(query) && byte(r) == query[qi] {
			if first == -1 {
				first = i
			}
			last = i
			qi++
		}
	}
	if qi < len(query) {
		return 0, false
	}
	return (last - first) - len(query) + 1, true
}
