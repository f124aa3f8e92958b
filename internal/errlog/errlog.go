package errlog

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/five82/snout/internal/apierr"
)

// MaxLines is the number of entries kept on disk.
const MaxLines = 500

const (
	timeLayout = "2006-01-02 15:04:05"
	separator  = " – "
)

// Entry is one parsed line of the log.
type Entry struct {
	Time    time.Time
	Kind    string
	Path    string
	Message string
}

// Log appends failures to a capped text file.
type Log struct {
	path string
	max  int
	now  func() time.Time

	mu sync.Mutex
}

// New returns a Log writing to path. The file is created on first append.
func New(path string) *Log {
	return &Log{path: path, max: MaxLines, now: time.Now}
}

// Path returns the file the log writes to.
func (l *Log) Path() string {
	return l.path
}

// Record appends a classified entry for err. Nil errors and a nil Log are
// ignored.
func (l *Log) Record(err error) error {
	if err == nil || l == nil {
		return nil
	}
	kind := apierr.KindOf(err)
	path := "-"
	var classified *apierr.Error
	if errors.As(err, &classified) && classified.Path != "" {
		path = classified.Path
	}
	return l.Append(kind.String(), path, err.Error())
}

// Append writes one entry and trims the file to the newest entries.
func (l *Log) Append(kind, path, message string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create error log dir: %w", err)
	}
	line := FormatEntry(Entry{Time: l.now(), Kind: kind, Path: path, Message: message})
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open error log: %w", err)
	}
	if _, err := file.WriteString(line + "\n"); err != nil {
		_ = file.Close()
		return fmt.Errorf("write error log: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close error log: %w", err)
	}
	return l.trim()
}

func (l *Log) trim() error {
	lines, total, err := readTail(l.path, l.max)
	if err != nil {
		return err
	}
	if total <= l.max {
		return nil
	}
	tmp, err := os.CreateTemp(filepath.Dir(l.path), ".errors-*.log")
	if err != nil {
		return fmt.Errorf("trim error log: %w", err)
	}
	w := bufio.NewWriter(tmp)
	for _, line := range lines {
		_, _ = w.WriteString(line)
		_ = w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("trim error log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("trim error log: %w", err)
	}
	if err := os.Rename(tmp.Name(), l.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("trim error log: %w", err)
	}
	return nil
}

// Tail returns at most n of the newest lines, oldest first. A missing file
// yields no lines and no error.
func (l *Log) Tail(n int) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lines, _, err := readTail(l.path, n)
	return lines, err
}

// Entries returns the newest n entries parsed. Lines that do not parse are
// kept as message-only entries.
func (l *Log) Entries(n int) ([]Entry, error) {
	lines, err := l.Tail(n)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(lines))
	for _, line := range lines {
		entry, ok := ParseEntry(line)
		if !ok {
			entry = Entry{Message: line}
		}
		out = append(out, entry)
	}
	return out, nil
}

// Clear removes every entry.
func (l *Log) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear error log: %w", err)
	}
	return nil
}

// FormatEntry renders e as a single log line.
func FormatEntry(e Entry) string {
	kind := strings.TrimSpace(e.Kind)
	if kind == "" {
		kind = apierr.Generic.String()
	}
	path := strings.TrimSpace(e.Path)
	if path == "" {
		path = "-"
	}
	message := strings.Join(strings.Fields(e.Message), " ")
	return e.Time.Format(timeLayout) + " " + kind + " " + path + separator + message
}

// ParseEntry splits a line written by FormatEntry.
func ParseEntry(line string) (Entry, bool) {
	if len(line) < len(timeLayout)+1 {
		return Entry{}, false
	}
	ts, err := time.ParseInLocation(timeLayout, line[:len(timeLayout)], time.Local)
	if err != nil {
		return Entry{}, false
	}
	rest := line[len(timeLayout)+1:]
	head, message, found := strings.Cut(rest, separator)
	if !found {
		return Entry{}, false
	}
	kind, path, _ := strings.Cut(head, " ")
	return Entry{Time: ts, Kind: kind, Path: path, Message: message}, true
}

// readTail returns at most maxLines from the end of the file at path along
// with the total number of lines in the file.
func readTail(path string, maxLines int) ([]string, int, error) {
	if maxLines <= 0 {
		return nil, 0, nil
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open error log: %w", err)
	}
	defer file.Close()

	ring := make([]string, maxLines)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	total := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		total++
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read error log: %w", err)
	}

	count := min(total, maxLines)
	lines := make([]string, count)
	if total >= maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, total, nil
}
