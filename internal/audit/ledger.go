// Package audit provides the append-only, hash-chained ledger of
// executed actions. Each line of the ledger file is one JSON record
// whose hash covers the previous record's hash, so a verifier can
// detect tampering or truncation after the fact. Integrity is
// advisory: there is no signing or external anchoring, and append
// failures are swallowed so that audit unavailability never blocks
// action execution.
package audit

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/deskwork/deskwork/internal/retry"
)

const (
	// appendAttempts bounds retries when the ledger file is busy.
	appendAttempts = 3
	appendDelay    = 50 * time.Millisecond

	// ReadLimit caps how many entries Read returns.
	ReadLimit = 100
)

// Entry is a single ledger record.
type Entry struct {
	TS         int64  `json:"ts"`
	Tool       string `json:"tool"`
	Status     string `json:"status"`
	Action     string `json:"action"`
	DurationMS int64  `json:"duration_ms"`
	WorkingDir string `json:"working_dir,omitempty"`
	PrevHash   string `json:"prev_hash"`
	Hash       string `json:"hash"`
}

// Ledger appends to and reads from a single JSONL file. It is safe for
// concurrent use within one process; correctness under concurrent
// writers from multiple processes is not guaranteed (the last-line
// hash recovery is racy across processes).
type Ledger struct {
	path   string
	logger *slog.Logger
}

// New creates a ledger backed by the file at path. The file is created
// lazily on first append.
func New(path string, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{path: path, logger: logger}
}

// Path returns the ledger file location.
func (l *Ledger) Path() string {
	return l.path
}

// computeHash derives an entry's hash from its content and the
// previous entry's hash. An absent working directory contributes
// nothing to the input.
func computeHash(prevHash, tool, status, action string, durationMS int64, workingDir string, ts int64) string {
	h := sha256.New()
	h.Write([]byte(prevHash))
	h.Write([]byte(tool))
	h.Write([]byte(status))
	h.Write([]byte(action))
	fmt.Fprintf(h, "%d", durationMS)
	if workingDir != "" {
		h.Write([]byte(workingDir))
	}
	fmt.Fprintf(h, "%d", ts)
	return hex.EncodeToString(h.Sum(nil))
}

// lastHash returns the hash of the final parsable line, or "" when the
// file is absent, unreadable, or empty. The file is the sole source of
// truth for chain linkage.
func (l *Ledger) lastHash() string {
	f, err := os.Open(l.path)
	if err != nil {
		return ""
	}
	defer f.Close()

	var last string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			last = line
		}
	}
	if last == "" {
		return ""
	}
	var e Entry
	if err := json.Unmarshal([]byte(last), &e); err != nil {
		return ""
	}
	return e.Hash
}

// Append records one executed action. Contention is handled by bounded
// retry; if all attempts fail the entry is dropped with a warning.
// Append never returns an error to avoid blocking tool execution on
// audit availability.
func (l *Ledger) Append(tool, status, action string, duration time.Duration, workingDir string) {
	ts := time.Now().Unix()
	durationMS := duration.Milliseconds()
	prev := l.lastHash()

	e := Entry{
		TS:         ts,
		Tool:       tool,
		Status:     status,
		Action:     action,
		DurationMS: durationMS,
		WorkingDir: workingDir,
		PrevHash:   prev,
		Hash:       computeHash(prev, tool, status, action, durationMS, workingDir, ts),
	}

	line, err := json.Marshal(e)
	if err != nil {
		l.logger.Warn("audit entry marshal failed", "tool", tool, "error", err)
		return
	}

	err = retry.Do(context.Background(), appendAttempts, retry.Fixed(appendDelay), func() error {
		f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = f.Write(append(line, '\n'))
		return err
	})
	if err != nil {
		l.logger.Warn("audit append dropped", "tool", tool, "error", err)
	}
}

// Read returns up to limit entries, most recent first. limit values
// outside 1..ReadLimit are clamped to ReadLimit. Unparsable lines are
// skipped. A missing file yields an empty slice.
func (l *Ledger) Read(limit int) ([]Entry, error) {
	if limit <= 0 || limit > ReadLimit {
		limit = ReadLimit
	}

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan ledger: %w", err)
	}

	// Reverse and cap.
	out := make([]Entry, 0, limit)
	for i := len(entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, entries[i])
	}
	return out, nil
}

// Verify walks the full chain in file order, recomputing every hash.
// It returns the zero-based index of the first entry whose linkage or
// content hash is broken, or -1 when the chain is intact.
func (l *Ledger) Verify() (int, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return -1, nil
		}
		return 0, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	prev := ""
	idx := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return idx, nil
		}
		if e.PrevHash != prev {
			return idx, nil
		}
		want := computeHash(e.PrevHash, e.Tool, e.Status, e.Action, e.DurationMS, e.WorkingDir, e.TS)
		if e.Hash != want {
			return idx, nil
		}
		prev = e.Hash
		idx++
	}
	if err := scanner.Err(); err != nil {
		return idx, fmt.Errorf("scan ledger: %w", err)
	}
	return -1, nil
}
